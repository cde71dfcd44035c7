package evaluate

import (
	"log/slog"

	"github.com/swdee/go-posescore"
)

// Option configures an Evaluator
type Option func(*config)

// Observer is called once for every pair whose keypoints were extracted, with
// the pair result and both keypoint sets.  Calls are serialized.
type Observer func(res PairResult, reference, candidate posescore.KeypointSet)

type config struct {
	workers   int
	keypoints int
	logger    *slog.Logger
	observer  Observer
}

func defaultConfig() config {
	return config{
		workers: 1,
		logger:  slog.Default(),
	}
}

// WithWorkers sets how many pairs are evaluated concurrently (default: 1).
// The Extractor must be safe for concurrent use when n > 1, such as a
// posescore.Pool.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithKeypoints sets the number of keypoints the Extractor returns per image.
// New rejects a sigma table of any other length.
func WithKeypoints(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.keypoints = n
		}
	}
}

// WithLogger sets the logger (default: slog.Default())
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers a callback receiving each evaluated pair's keypoints,
// used for rendering overlays
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

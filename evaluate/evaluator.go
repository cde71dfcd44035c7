// Package evaluate runs batch pose evaluation, pairing reference pose images
// with generated images and scoring each pair with OKS.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/swdee/go-posescore"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrMissingCandidate indicates no generated image exists for a reference
	ErrMissingCandidate = errors.New("evaluate: generated image not found")

	// ErrNoExtractor indicates an Evaluator was created without an Extractor
	ErrNoExtractor = errors.New("evaluate: no keypoint extractor")
)

// Evaluator scores generated images against reference pose images
type Evaluator struct {
	extractor posescore.Extractor
	sigmas    posescore.SigmaTable
	cfg       config
	// observeMu serializes Observer calls across workers
	observeMu sync.Mutex
}

// New returns an Evaluator using the given keypoint extractor and sigma table.
// An invalid sigma table, or one whose length differs from the keypoint count
// set with WithKeypoints, is a configuration error and is returned here so a
// run never starts with it.
func New(extractor posescore.Extractor, sigmas posescore.SigmaTable,
	opts ...Option) (*Evaluator, error) {

	if extractor == nil {
		return nil, ErrNoExtractor
	}

	if err := sigmas.Validate(); err != nil {
		return nil, err
	}

	cfg := defaultConfig()

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.keypoints > 0 && sigmas.Len() != cfg.keypoints {
		return nil, fmt.Errorf("%w: %s has %d sigmas, extractor reports %d keypoints",
			posescore.ErrInvalidSigmas, sigmas.Name(), sigmas.Len(), cfg.keypoints)
	}

	return &Evaluator{
		extractor: extractor,
		sigmas:    sigmas,
		cfg:       cfg,
	}, nil
}

// Sigmas returns the sigma table the Evaluator scores with
func (e *Evaluator) Sigmas() posescore.SigmaTable {
	return e.sigmas
}

// Run evaluates every reference entry against the candidate the lookup
// resolves it to.  Per pair failures are recorded as skipped results and
// never stop the run.  Results are returned in the order of refs regardless
// of the number of workers.  An error is only returned if ctx is done before
// the run completes.
func (e *Evaluator) Run(ctx context.Context, refs []Entry,
	lookup CandidateLookup) (Summary, error) {

	results := make([]PairResult, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.workers)

	for i, ref := range refs {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			results[i] = e.evaluatePair(gctx, i, ref, lookup)
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Summary{}, fmt.Errorf("evaluation interrupted: %w", err)
	}

	return NewSummary(results), nil
}

// RunDirs evaluates the images of refDir against those in candDir paired by
// base name
func (e *Evaluator) RunDirs(ctx context.Context, refDir, candDir string) (Summary, error) {

	refs, err := DirectoryEntries(refDir)

	if err != nil {
		return Summary{}, err
	}

	lookup, err := DirectoryLookup(candDir)

	if err != nil {
		return Summary{}, err
	}

	e.cfg.logger.Info("evaluating directories", "reference_dir", refDir,
		"candidate_dir", candDir, "references", len(refs),
		"sigmas", e.sigmas.Name(), "workers", e.cfg.workers)

	return e.Run(ctx, refs, lookup)
}

// evaluatePair scores a single reference against its candidate
func (e *Evaluator) evaluatePair(ctx context.Context, index int, ref Entry,
	lookup CandidateLookup) (res PairResult) {

	res = PairResult{Index: index, Reference: ref.Name}

	cand, ok := lookup(ref)

	if !ok {
		return e.skip(res, SkipMissingCandidate,
			fmt.Errorf("%w: %s", ErrMissingCandidate, ref.Name))
	}

	res.Candidate = cand.Name

	refKps, err := e.extract(ctx, ref.Path)

	if err != nil {
		return e.skip(res, SkipDetectionFailed, err)
	}

	candKps, err := e.extract(ctx, cand.Path)

	if err != nil {
		return e.skip(res, SkipDetectionFailed, err)
	}

	defer func() {
		e.observe(res, refKps, candKps)
	}()

	res.Area, err = posescore.BBoxArea(refKps)

	if err != nil {
		return e.skip(res, SkipNoKeypoints, fmt.Errorf("%w: %s", err, ref.Name))
	}

	res.OKS, err = posescore.Score(candKps, refKps, e.sigmas, res.Area)

	if err != nil {
		reason := SkipShapeMismatch

		if errors.Is(err, posescore.ErrNoKeypoints) {
			reason = SkipNoKeypoints
		}

		res.OKS = 0
		return e.skip(res, reason, err)
	}

	e.cfg.logger.Debug("pair scored", "reference", res.Reference,
		"candidate", res.Candidate, "oks", res.OKS, "area", res.Area)

	return res
}

// extract runs the extractor, making sure any failure is reported as a
// DetectionError
func (e *Evaluator) extract(ctx context.Context, file string) (posescore.KeypointSet, error) {

	kps, err := e.extractor.Extract(ctx, file)

	if err == nil {
		return kps, nil
	}

	var detErr *posescore.DetectionError

	if errors.As(err, &detErr) {
		return nil, err
	}

	return nil, &posescore.DetectionError{File: file, Err: err}
}

// skip marks the result as skipped and logs it
func (e *Evaluator) skip(res PairResult, reason SkipReason, err error) PairResult {

	res.Skip = reason
	res.Err = err

	e.cfg.logger.Warn("pair skipped", "reference", res.Reference,
		"candidate", res.Candidate, "reason", reason.String(), "error", err)

	return res
}

// observe hands the final pair result and keypoints to the Observer
func (e *Evaluator) observe(res PairResult, refKps, candKps posescore.KeypointSet) {

	if e.cfg.observer == nil {
		return
	}

	e.observeMu.Lock()
	defer e.observeMu.Unlock()

	e.cfg.observer(res, refKps, candKps)
}

package posescore

import (
	"context"
)

// Extractor is the capability to detect the pose keypoints of a person in an
// image file.  Implementations must return exactly one entry per joint of the
// skeleton, marking undetected joints as absent rather than omitting them, so
// index alignment between sets is preserved.  When the image can not be
// processed at all a *DetectionError is returned.
type Extractor interface {
	Extract(ctx context.Context, file string) (KeypointSet, error)
}

// ExtractorFunc adapts an ordinary function to the Extractor interface
type ExtractorFunc func(ctx context.Context, file string) (KeypointSet, error)

// Extract calls f(ctx, file)
func (f ExtractorFunc) Extract(ctx context.Context, file string) (KeypointSet, error) {
	return f(ctx, file)
}

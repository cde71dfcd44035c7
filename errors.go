package posescore

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch indicates two keypoint sets, or a keypoint set and the
	// sigma table, disagree on the number of keypoints
	ErrShapeMismatch = errors.New("posescore: keypoint shape mismatch")

	// ErrNoKeypoints indicates a keypoint set needed for normalization has no
	// detected keypoints
	ErrNoKeypoints = errors.New("posescore: no keypoints detected")

	// ErrDetection indicates the keypoint extractor could not process an image
	ErrDetection = errors.New("posescore: keypoint detection failed")

	// ErrInvalidSigmas indicates a malformed sigma table
	ErrInvalidSigmas = errors.New("posescore: invalid sigma table")
)

// ShapeMismatchError records the lengths that disagreed in a comparison
type ShapeMismatchError struct {
	Predicted int
	Reference int
	Sigmas    int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%v: predicted=%d reference=%d sigmas=%d",
		ErrShapeMismatch, e.Predicted, e.Reference, e.Sigmas)
}

// Unwrap allows errors.Is(err, ErrShapeMismatch)
func (e *ShapeMismatchError) Unwrap() error {
	return ErrShapeMismatch
}

// DetectionError is returned by an Extractor that could not process an image
type DetectionError struct {
	// File is the image the extractor was given
	File string
	// Err is the underlying cause
	Err error
}

func (e *DetectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", ErrDetection, e.File)
	}

	return fmt.Sprintf("%v: %s: %v", ErrDetection, e.File, e.Err)
}

// Unwrap returns the underlying cause
func (e *DetectionError) Unwrap() error {
	return e.Err
}

// Is matches ErrDetection in addition to the wrapped cause
func (e *DetectionError) Is(target error) bool {
	return target == ErrDetection
}

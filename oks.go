package posescore

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// epsilon is the float64 machine epsilon added to the normalization area so
// a zero area bounding box does not divide by zero
const epsilon = 0x1p-52

// Score computes the Object Keypoint Similarity between the predicted and
// reference keypoint sets.  Each joint contributes exp(-d²/(2σ²(area+ε)))
// where d is the distance between the predicted and reference locations, and
// the result is the mean over the joints.
//
// All three of predicted, reference and sigmas must have the same length,
// otherwise a *ShapeMismatchError is returned.  Joints absent from the
// reference are left out of the mean, joints present in the reference but
// absent from the prediction contribute zero.  A reference with no present
// joints returns ErrNoKeypoints.
//
// The result is in (0, 1] whenever at least one joint present in the
// reference is also present in the prediction.  When every such joint is
// absent from the prediction the score is exactly 0.
func Score(predicted, reference KeypointSet, sigmas SigmaTable, area float64) (float64, error) {

	if len(predicted) != len(reference) || len(reference) != sigmas.Len() {
		return 0, &ShapeMismatchError{
			Predicted: len(predicted),
			Reference: len(reference),
			Sigmas:    sigmas.Len(),
		}
	}

	// a degenerate bounding box can not shrink the variance below epsilon
	if area < 0 {
		area = 0
	}

	sims := make([]float64, 0, len(reference))

	for i, ref := range reference {

		if !ref.Present {
			continue
		}

		pred := predicted[i]

		if !pred.Present {
			sims = append(sims, 0)
			continue
		}

		dx := pred.X - ref.X
		dy := pred.Y - ref.Y
		d := dx*dx + dy*dy

		sigma := sigmas.At(i)
		v := 2 * sigma * sigma * (area + epsilon)

		sims = append(sims, math.Exp(-d/v))
	}

	if len(sims) == 0 {
		return 0, ErrNoKeypoints
	}

	return floats.Sum(sims) / float64(len(sims)), nil
}

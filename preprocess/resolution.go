package preprocess

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// ResolutionStep is the multiple image sides are rounded to when resizing to
// a working resolution
const ResolutionStep = 64

// ResolutionSize returns the dimensions an image of width x height is scaled
// to so its shorter side equals resolution, with both sides rounded to a
// multiple of ResolutionStep.  The scale factors applied to each axis are
// also returned.
func ResolutionSize(width, height, resolution int) (size image.Point, scaleX, scaleY float64) {

	k := float64(resolution) / math.Min(float64(width), float64(height))

	w := roundStep(float64(width) * k)
	h := roundStep(float64(height) * k)

	return image.Pt(w, h), float64(w) / float64(width), float64(h) / float64(height)
}

// ResolutionResize scales src into dest using ResolutionSize.  Upscaling uses
// Lanczos interpolation and downscaling pixel area relation.  It returns the
// per axis scale factors needed to map coordinates back to src.
func ResolutionResize(src gocv.Mat, dest *gocv.Mat, resolution int) (scaleX, scaleY float64) {

	size, scaleX, scaleY := ResolutionSize(src.Cols(), src.Rows(), resolution)

	interp := gocv.InterpolationArea

	if scaleX > 1 || scaleY > 1 {
		interp = gocv.InterpolationLanczos4
	}

	gocv.Resize(src, dest, size, 0, 0, interp)

	return scaleX, scaleY
}

func roundStep(v float64) int {

	n := int(math.Round(v/ResolutionStep)) * ResolutionStep

	if n < ResolutionStep {
		return ResolutionStep
	}

	return n
}

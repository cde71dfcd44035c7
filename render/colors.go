package render

import "image/color"

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Pink   = color.RGBA{R: 255, G: 0, B: 255, A: 255}

	// ReferenceColor is used to draw the reference (ground truth) skeleton in
	// comparison overlays
	ReferenceColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	// CandidateColor is used to draw the generated image skeleton in
	// comparison overlays
	CandidateColor = color.RGBA{R: 255, G: 51, B: 51, A: 255}

	// postPalette are the colors used for the skeleton/pose
	posePalette = []color.RGBA{
		{R: 255, G: 128, B: 0, A: 255},
		{R: 255, G: 153, B: 51, A: 255},
		{R: 255, G: 178, B: 102, A: 255},
		{R: 230, G: 230, B: 0, A: 255},
		{R: 255, G: 153, B: 255, A: 255},
		{R: 153, G: 204, B: 255, A: 255},
		{R: 255, G: 102, B: 255, A: 255},
		{R: 255, G: 51, B: 255, A: 255},
		{R: 102, G: 178, B: 255, A: 255},
		{R: 51, G: 153, B: 255, A: 255},
		{R: 255, G: 153, B: 153, A: 255},
		{R: 255, G: 102, B: 102, A: 255},
		{R: 255, G: 51, B: 51, A: 255},
		{R: 153, G: 255, B: 153, A: 255},
		{R: 102, G: 255, B: 102, A: 255},
		{R: 51, G: 255, B: 51, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 0, G: 0, B: 255, A: 255},
		{R: 255, G: 0, B: 0, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}

	// keyPointColors correspond to the skeleton/pose key points
	// and colors to use to render for the joints (circles).
	// require 17 colors
	keyPointColors = []color.RGBA{
		posePalette[16], posePalette[16], posePalette[16], posePalette[16], posePalette[16],
		posePalette[9], posePalette[9], posePalette[9], posePalette[9], posePalette[9],
		posePalette[9], posePalette[0], posePalette[0], posePalette[0], posePalette[0],
		posePalette[0], posePalette[0],
	}

	// limbColors correspond to the lines drawn between the key points
	// on the skeleton/pose.  require 19 colors
	limbColors = []color.RGBA{
		posePalette[0], posePalette[0], posePalette[0], posePalette[0], posePalette[7],
		posePalette[7], posePalette[7], posePalette[9], posePalette[9], posePalette[9],
		posePalette[9], posePalette[9], posePalette[16], posePalette[16], posePalette[16],
		posePalette[16], posePalette[16], posePalette[16], posePalette[16],
	}
)

// Style defines the colors used to draw a skeleton.  Nil slices fall back to
// the pose palette.
type Style struct {
	// LimbColors has one color per skeleton limb
	LimbColors []color.RGBA
	// JointColors has one color per keypoint
	JointColors []color.RGBA
	// LineThickness of the limbs
	LineThickness int
	// JointRadius of the circles drawn at joints
	JointRadius int
}

// PaletteStyle returns the multi colored pose palette style
func PaletteStyle() Style {
	return Style{
		LimbColors:    limbColors,
		JointColors:   keyPointColors,
		LineThickness: 2,
		JointRadius:   3,
	}
}

// SolidStyle returns a style drawing the whole skeleton in one color
func SolidStyle(c color.RGBA) Style {

	limbs := make([]color.RGBA, len(limbColors))
	joints := make([]color.RGBA, len(keyPointColors))

	for i := range limbs {
		limbs[i] = c
	}

	for i := range joints {
		joints[i] = c
	}

	return Style{
		LimbColors:    limbs,
		JointColors:   joints,
		LineThickness: 2,
		JointRadius:   3,
	}
}

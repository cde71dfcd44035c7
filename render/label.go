package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Labeler writes text onto images using a font face
type Labeler struct {
	face font.Face
	// Color of the text
	Color color.RGBA
	// Background is drawn as a box behind the text
	Background color.RGBA
	// Pad around the text inside the background box
	Pad int
}

// NewLabeler returns a Labeler using the built in fixed width font
func NewLabeler() *Labeler {
	return &Labeler{
		face:       basicfont.Face7x13,
		Color:      White,
		Background: Black,
		Pad:        4,
	}
}

// NewTTFLabeler returns a Labeler using the TTF font file at the given point
// size
func NewTTFLabeler(fontPath string, size float64) (*Labeler, error) {

	// load font data
	fontBytes, err := os.ReadFile(fontPath)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	// parse the font
	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	// create a type face
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	l := NewLabeler()
	l.face = face

	return l, nil
}

// Size returns the pixel dimensions of the label box for text
func (l *Labeler) Size(text string) image.Point {

	metrics := l.face.Metrics()
	width := font.MeasureString(l.face, text).Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	return image.Pt(width+2*l.Pad, height+2*l.Pad)
}

// PutText draws text in a background box with its top left corner at pt.  The
// box is clipped to the image.
func (l *Labeler) PutText(img *gocv.Mat, text string, pt image.Point) error {

	size := l.Size(text)
	box := image.Rectangle{Min: pt, Max: pt.Add(size)}.
		Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

	if box.Empty() {
		return nil
	}

	// create image with text writing
	rgba := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(l.Background), image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(l.Color),
		Face: l.face,
		Dot: fixed.Point26_6{
			X: fixed.I(l.Pad),
			Y: fixed.I(l.Pad) + l.face.Metrics().Ascent,
		},
	}
	dr.DrawString(text)

	// convert image.RGBA to gocv.Mat
	label, err := gocv.NewMatFromBytes(size.Y, size.X, gocv.MatTypeCV8UC4, rgba.Pix)

	if err != nil || label.Empty() {
		return fmt.Errorf("error creating Mat from RGBA: %v", err)
	}

	defer label.Close()

	gocv.CvtColor(label, &label, gocv.ColorRGBAToBGR)

	// copy the visible part of the label onto the image
	src := label.Region(image.Rect(0, 0, box.Dx(), box.Dy()))
	defer src.Close()

	dst := img.Region(box)
	defer dst.Close()

	src.CopyTo(&dst)

	return nil
}

package preprocess

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrEmptyImage is returned when an image file could not be decoded
var ErrEmptyImage = errors.New("preprocess: image could not be read")

// LoadImage reads an image file as a 3 channel 8 bit BGR Mat.  Grey scale
// images are expanded and images with an alpha channel are composited onto
// white, as pose maps are commonly saved with transparent backgrounds.  The
// caller must Close the returned Mat.
func LoadImage(file string) (gocv.Mat, error) {

	img := gocv.IMRead(file, gocv.IMReadUnchanged)

	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrEmptyImage, file)
	}

	switch img.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return ToBGR(img)
	}

	// 16 bit and float images are left to OpenCV to convert
	img.Close()
	img = gocv.IMRead(file, gocv.IMReadColor)

	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrEmptyImage, file)
	}

	return img, nil
}

// ToBGR converts an 8 bit 1, 3 or 4 channel Mat to 3 channel BGR, taking
// ownership of src
func ToBGR(src gocv.Mat) (gocv.Mat, error) {

	switch src.Channels() {
	case 3:
		return src, nil

	case 1:
		dst := gocv.NewMat()
		gocv.CvtColor(src, &dst, gocv.ColorGrayToBGR)
		src.Close()
		return dst, nil

	case 4:
		dst, err := compositeOnWhite(src)
		src.Close()
		return dst, err
	}

	ch := src.Channels()
	src.Close()

	return gocv.NewMat(), fmt.Errorf("%w: unsupported channel count %d",
		ErrEmptyImage, ch)
}

// compositeOnWhite blends a BGRA image over a white background using its
// alpha channel
func compositeOnWhite(src gocv.Mat) (gocv.Mat, error) {

	bgra := src

	if !src.IsContinuous() {
		bgra = src.Clone()
		defer bgra.Close()
	}

	in, err := bgra.DataPtrUint8()

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error reading image data: %w", err)
	}

	dst := gocv.NewMatWithSize(src.Rows(), src.Cols(), gocv.MatTypeCV8UC3)
	out, err := dst.DataPtrUint8()

	if err != nil {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("error reading image data: %w", err)
	}

	for px := 0; px < src.Rows()*src.Cols(); px++ {
		alpha := float32(in[px*4+3]) / 255

		for c := 0; c < 3; c++ {
			v := float32(in[px*4+c])*alpha + 255*(1-alpha)
			out[px*3+c] = uint8(v + 0.5)
		}
	}

	return dst, nil
}

// BlobFromBGR converts a letterboxed BGR Mat of the model input size into a
// NCHW float32 RGB tensor scaled to [0,1]
func BlobFromBGR(img gocv.Mat) ([]float32, error) {

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(img.Cols(), img.Rows()),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error reading blob data: %w", err)
	}

	// the blob owns data so copy it out before closing
	out := make([]float32, len(data))
	copy(out, data)

	return out, nil
}

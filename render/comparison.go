package render

import (
	"fmt"
	"image"

	"github.com/swdee/go-posescore"
	"github.com/swdee/go-posescore/preprocess"
	"gocv.io/x/gocv"
)

// Comparison draws the reference skeleton and the candidate skeleton over
// img, with a text label in the top left corner
func Comparison(img *gocv.Mat, reference, candidate posescore.KeypointSet,
	text string, labeler *Labeler) error {

	PoseSkeleton(img, reference, SolidStyle(ReferenceColor))
	PoseSkeleton(img, candidate, SolidStyle(CandidateColor))

	if text == "" || labeler == nil {
		return nil
	}

	return labeler.PutText(img, text, image.Pt(0, 0))
}

// SaveComparison loads the candidate image, draws the comparison overlay and
// writes it to outFile
func SaveComparison(outFile, candidateFile string, reference, candidate posescore.KeypointSet,
	text string, labeler *Labeler) error {

	img, err := preprocess.LoadImage(candidateFile)

	if err != nil {
		return err
	}

	defer img.Close()

	if err := Comparison(&img, reference, candidate, text, labeler); err != nil {
		return err
	}

	if ok := gocv.IMWrite(outFile, img); !ok {
		return fmt.Errorf("failed to save overlay image %s", outFile)
	}

	return nil
}

package render

import (
	"github.com/swdee/go-posescore"
	"gocv.io/x/gocv"
	"image"
	"math"
)

var (
	// skeleton defines the pose skeleton points to draw lines between.  The numbers
	// are paired, so (16,14) means draw line from right ankle to right knee.
	skeleton = [38]int{16, 14, 14, 12, 17, 15, 15, 13, 12, 13, 6, 12, 7, 13, 6, 7, 6, 8,
		7, 9, 8, 10, 9, 11, 2, 3, 1, 2, 1, 3, 2, 4, 3, 5, 4, 6, 5, 7}
)

// PoseKeyPoints renders the provided pose keypoints for all people using the
// pose palette
func PoseKeyPoints(img *gocv.Mat, sets []posescore.KeypointSet) {
	for _, set := range sets {
		PoseSkeleton(img, set, PaletteStyle())
	}
}

// PoseSkeleton renders a single COCO skeleton.  Limbs with an absent end point
// and absent joints are not drawn.  Sets that are not COCO shaped only have
// their joints drawn.
func PoseSkeleton(img *gocv.Mat, set posescore.KeypointSet, style Style) {

	if len(set) == posescore.COCOKeyPointsNumber {
		// draw skeleton lines
		for j := 0; j < len(skeleton)/2; j++ {
			a := set[skeleton[2*j]-1]
			b := set[skeleton[2*j+1]-1]

			if !a.Present || !b.Present {
				continue
			}

			gocv.Line(img, toPoint(a), toPoint(b), style.LimbColors[j%len(style.LimbColors)],
				style.LineThickness)
		}
	}

	// draw circles at skeleton joints
	for j, kp := range set {
		if !kp.Present {
			continue
		}

		gocv.Circle(img, toPoint(kp), style.JointRadius,
			style.JointColors[j%len(style.JointColors)], -1)
	}
}

// toPoint rounds a keypoint to the nearest pixel
func toPoint(kp posescore.Keypoint) image.Point {
	return image.Pt(int(math.Round(kp.X)), int(math.Round(kp.Y)))
}

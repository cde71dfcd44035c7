package posescore

import (
	"fmt"
	"math"
)

/* COCO skeleton keypoints
0: Nose
1: Left Eye
2: Right Eye
3: Left Ear
4: Right Ear
5: Left Shoulder
6: Right Shoulder
7: Left Elbow
8: Right Elbow
9: Left Wrist
10: Right Wrist
11: Left Hip
12: Right Hip
13: Left Knee
14: Right Knee
15: Left Ankle
16: Right Ankle
*/

// COCOKeyPointsNumber is the number of keypoints in the COCO body skeleton
const COCOKeyPointsNumber = 17

// Keypoint is a single anatomical landmark location in pixel coordinates of
// the image it was extracted from.  The zero value is an absent keypoint, ie:
// a joint the detector did not find, which is distinct from a point at (0,0).
type Keypoint struct {
	X float64
	Y float64
	// Score is the detector confidence for the keypoint.  It is carried for
	// reporting only and takes no part in OKS scoring
	Score float32
	// Present is false when the joint was not detected
	Present bool
}

// Pt returns a present keypoint at the given coordinates
func Pt(x, y float64) Keypoint {
	return Keypoint{X: x, Y: y, Present: true}
}

// Absent returns a keypoint marking an undetected joint
func Absent() Keypoint {
	return Keypoint{}
}

// String returns a readable form of the keypoint
func (k Keypoint) String() string {
	if !k.Present {
		return "(absent)"
	}

	return fmt.Sprintf("(%.1f,%.1f)", k.X, k.Y)
}

// KeypointSet is an ordered sequence of keypoints where index i always
// refers to the same joint of the skeleton definition
type KeypointSet []Keypoint

// NewAbsentSet returns a set of n keypoints all marked absent
func NewAbsentSet(n int) KeypointSet {
	return make(KeypointSet, n)
}

// PresentCount returns the number of detected keypoints in the set
func (s KeypointSet) PresentCount() int {

	n := 0

	for _, kp := range s {
		if kp.Present {
			n++
		}
	}

	return n
}

// Empty reports if the set contains no detected keypoints
func (s KeypointSet) Empty() bool {
	return s.PresentCount() == 0
}

// BBoxArea returns the area of the tightest axis aligned rectangle containing
// the present keypoints of the set.  A set without present keypoints has no
// bounding box and returns ErrNoKeypoints.
func BBoxArea(s KeypointSet) (float64, error) {

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	found := false

	for _, kp := range s {
		if !kp.Present {
			continue
		}

		found = true
		minX = math.Min(minX, kp.X)
		maxX = math.Max(maxX, kp.X)
		minY = math.Min(minY, kp.Y)
		maxY = math.Max(maxY, kp.Y)
	}

	if !found {
		return 0, ErrNoKeypoints
	}

	return (maxX - minX) * (maxY - minY), nil
}

package postprocess

import (
	"fmt"

	"github.com/swdee/go-posescore"
	"github.com/swdee/go-posescore/postprocess/result"
	"github.com/swdee/go-posescore/preprocess"
)

// YOLOv8Pose defines the struct for YOLOv8 pose model post processing of the
// float output tensor exported by ONNX
type YOLOv8Pose struct {
	// Params are the Model configuration parameters
	Params YOLOv8PoseParams
	// idGen provides the next number for each detection result ID
	idGen *result.IDGenerator
}

// YOLOv8PoseParams defines the struct containing the YOLOv8 parameters to use
// for post processing operations
type YOLOv8PoseParams struct {
	// BoxThreshold is the minimum probability score required for a bounding box
	// region to be considered for processing
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes for both to be kept
	NMSThreshold float32
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with
	ObjectClassNum int
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned
	MaxObjectNumber int
	// KeyPointsNumber is the number of COCO keypoints representing different parts
	// of the body the pose model is trained on
	KeyPointsNumber int
}

// YOLOv8PoseCOCOParams returns an instance of YOLOv8PoseParams configured with
// default values for a Model trained on the COCO dataset featuring:
// - Object Classes: 1
// - Box Threshold: 0.5
// - NMS Threshold: 0.4
// - Maximum Object Number: 64
// - KeyPoints Number: 17
func YOLOv8PoseCOCOParams() YOLOv8PoseParams {
	return YOLOv8PoseParams{
		BoxThreshold:    0.5,
		NMSThreshold:    0.4,
		ObjectClassNum:  1,
		MaxObjectNumber: 64,
		KeyPointsNumber: posescore.COCOKeyPointsNumber,
	}
}

// NewYOLOv8Pose returns an instance of the YOLOv8Pose post processor
func NewYOLOv8Pose(p YOLOv8PoseParams) *YOLOv8Pose {
	return &YOLOv8Pose{
		Params: p,
		idGen:  result.NewIDGenerator(),
	}
}

// Channels returns the number of rows per anchor in the output tensor, being
// the box (4), the class scores and x, y, score for each keypoint
func (y *YOLOv8Pose) Channels() int {
	return 4 + y.Params.ObjectClassNum + 3*y.Params.KeyPointsNumber
}

// YOLOv8PoseResult defines a struct used for pose detection results.  Results
// are ordered by descending probability.
type YOLOv8PoseResult struct {
	DetectResults []result.DetectResult
	KeyPoints     [][]result.KeyPoint
}

var _ result.DetectionResult = YOLOv8PoseResult{}

// GetDetectResults returns the object detection results containing bounding
// boxes
func (r YOLOv8PoseResult) GetDetectResults() []result.DetectResult {
	return r.DetectResults
}

// GetKeyPoints returns the keypoints of every detected person
func (r YOLOv8PoseResult) GetKeyPoints() [][]result.KeyPoint {
	return r.KeyPoints
}

// KeypointSet converts the keypoints of detected person i into a KeypointSet.
// Keypoints with a score below threshold are marked absent.
func (r YOLOv8PoseResult) KeypointSet(i int, threshold float32) posescore.KeypointSet {

	kps := r.KeyPoints[i]
	set := posescore.NewAbsentSet(len(kps))

	for j, kp := range kps {
		if kp.Score < threshold {
			continue
		}

		set[j] = posescore.Keypoint{
			X:       float64(kp.X),
			Y:       float64(kp.Y),
			Score:   kp.Score,
			Present: true,
		}
	}

	return set
}

// strideData holds the candidate boxes above the box threshold
type strideData struct {
	filterBoxes []float32
	objProbs    []float32
	classID     []int
}

// DetectObjects takes the model output tensor of shape
// [1, Channels(), anchors] in letterboxed input coordinates and runs the pose
// detection process, returning keypoints mapped to the resizer source image
func (y *YOLOv8Pose) DetectObjects(output []float32, anchors int,
	resizer *preprocess.Resizer) (YOLOv8PoseResult, error) {

	if anchors <= 0 || len(output) != y.Channels()*anchors {
		return YOLOv8PoseResult{}, fmt.Errorf("output tensor has %d values, expected %d channels x %d anchors",
			len(output), y.Channels(), anchors)
	}

	data := &strideData{}
	validCount := y.filterAnchors(output, anchors, data)

	if validCount <= 0 {
		// no object detected
		return YOLOv8PoseResult{}, nil
	}

	// indexArray is used to keep and index of detect objects contained in
	// the stride "data" variable
	indexArray := make([]int, validCount)

	for i := 0; i < validCount; i++ {
		indexArray[i] = i
	}

	quickSortIndiceInverse(data.objProbs, 0, validCount-1, indexArray)

	// create a unique set of ClassID (ie: eliminate any multiples found)
	classSet := make(map[int]bool)

	for _, id := range data.classID {
		classSet[id] = true
	}

	// for each classID in the classSet calculate the NMS
	for c := range classSet {
		nms(validCount, data.filterBoxes, data.classID, indexArray, c,
			y.Params.NMSThreshold, 5)
	}

	// collate objects into a result for returning
	group := make([]result.DetectResult, 0)
	allKeyPoints := make([][]result.KeyPoint, 0)
	lastCount := 0

	srcW := float32(resizer.SrcWidth())
	srcH := float32(resizer.SrcHeight())

	for i := 0; i < validCount; i++ {
		if indexArray[i] == -1 || lastCount >= y.Params.MaxObjectNumber {
			continue
		}
		n := indexArray[i]

		x1, y1 := resizer.ToSource(data.filterBoxes[n*5+0], data.filterBoxes[n*5+1])
		x2, y2 := resizer.ToSource(data.filterBoxes[n*5+0]+data.filterBoxes[n*5+2],
			data.filterBoxes[n*5+1]+data.filterBoxes[n*5+3])
		anchor := int(data.filterBoxes[n*5+4])

		keyPtData := make([]result.KeyPoint, 0, y.Params.KeyPointsNumber)
		kpBase := 4 + y.Params.ObjectClassNum

		for j := 0; j < y.Params.KeyPointsNumber; j++ {
			kpX := output[(kpBase+j*3+0)*anchors+anchor]
			kpY := output[(kpBase+j*3+1)*anchors+anchor]
			kpScore := output[(kpBase+j*3+2)*anchors+anchor]

			sx, sy := resizer.ToSource(kpX, kpY)

			keyPtData = append(keyPtData, result.KeyPoint{
				X:     float32(sx),
				Y:     float32(sy),
				Score: kpScore,
			})
		}

		allKeyPoints = append(allKeyPoints, keyPtData)

		group = append(group, result.DetectResult{
			Box: result.BoxRect{
				Left:   int(clamp(float32(x1), 0, srcW)),
				Top:    int(clamp(float32(y1), 0, srcH)),
				Right:  int(clamp(float32(x2), 0, srcW)),
				Bottom: int(clamp(float32(y2), 0, srcH)),
			},
			Probability: data.objProbs[i],
			Class:       data.classID[n],
			ID:          y.idGen.GetNext(),
		})

		lastCount++
	}

	return YOLOv8PoseResult{
		DetectResults: group,
		KeyPoints:     allKeyPoints,
	}, nil
}

// filterAnchors collects every anchor whose best class score passes the box
// threshold.  Boxes are stored as x, y, width, height and anchor index.
func (y *YOLOv8Pose) filterAnchors(output []float32, anchors int, data *strideData) int {

	validCount := 0

	for i := 0; i < anchors; i++ {

		bestProb := float32(0)
		bestClass := -1

		for c := 0; c < y.Params.ObjectClassNum; c++ {
			prob := output[(4+c)*anchors+i]

			if prob > bestProb {
				bestProb = prob
				bestClass = c
			}
		}

		if bestClass < 0 || bestProb < y.Params.BoxThreshold {
			continue
		}

		cx := output[0*anchors+i]
		cy := output[1*anchors+i]
		w := output[2*anchors+i]
		h := output[3*anchors+i]

		data.filterBoxes = append(data.filterBoxes, cx-w/2, cy-h/2, w, h, float32(i))
		data.objProbs = append(data.objProbs, bestProb)
		data.classID = append(data.classID, bestClass)

		validCount++
	}

	return validCount
}

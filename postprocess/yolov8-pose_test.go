package postprocess

import (
	"math"
	"testing"

	"github.com/swdee/go-posescore/preprocess"
)

// poseTensor builds an output tensor in [channels, anchors] layout
type poseTensor struct {
	data    []float32
	anchors int
	kpBase  int
}

func newPoseTensor(y *YOLOv8Pose, anchors int) *poseTensor {
	return &poseTensor{
		data:    make([]float32, y.Channels()*anchors),
		anchors: anchors,
		kpBase:  4 + y.Params.ObjectClassNum,
	}
}

func (p *poseTensor) setBox(anchor int, cx, cy, w, h, prob float32) {
	p.data[0*p.anchors+anchor] = cx
	p.data[1*p.anchors+anchor] = cy
	p.data[2*p.anchors+anchor] = w
	p.data[3*p.anchors+anchor] = h
	p.data[4*p.anchors+anchor] = prob
}

func (p *poseTensor) setKeyPoint(anchor, kp int, x, y, score float32) {
	p.data[(p.kpBase+kp*3+0)*p.anchors+anchor] = x
	p.data[(p.kpBase+kp*3+1)*p.anchors+anchor] = y
	p.data[(p.kpBase+kp*3+2)*p.anchors+anchor] = score
}

func TestYOLOv8PoseDetectObjects(t *testing.T) {

	y := NewYOLOv8Pose(YOLOv8PoseCOCOParams())

	if y.Channels() != 56 {
		t.Fatalf("expected 56 channels for COCO pose, got %d", y.Channels())
	}

	out := newPoseTensor(y, 4)

	// strongest person, an overlapping duplicate, a second person and noise
	out.setBox(0, 125, 150, 50, 100, 0.9)
	out.setBox(1, 127, 151, 50, 100, 0.8)
	out.setBox(2, 420, 420, 40, 40, 0.7)
	out.setBox(3, 300, 300, 40, 40, 0.1)

	for j := 0; j < 17; j++ {
		out.setKeyPoint(0, j, float32(100+j), float32(200+j), 0.9)
		out.setKeyPoint(2, j, 400, 400, 0.9)
	}

	out.setKeyPoint(0, 5, 0, 0, 0.2)

	// letterbox of a 1280x720 source, scale 0.5 with 140 pixels top padding
	resizer := preprocess.NewResizer(1280, 720, 640, 640)
	defer resizer.Close()

	res, err := y.DetectObjects(out.data, out.anchors, resizer)

	if err != nil {
		t.Fatal(err)
	}

	if len(res.GetDetectResults()) != 2 || len(res.GetKeyPoints()) != 2 {
		t.Fatalf("expected 2 people after NMS, got %d", len(res.GetDetectResults()))
	}

	best := res.GetDetectResults()[0]

	if math.Abs(float64(best.Probability-0.9)) > 1e-6 {
		t.Errorf("expected most confident person first, got probability %f", best.Probability)
	}

	// box x 100..150, y 100..200 in letterbox space
	if best.Box.Left != 200 || best.Box.Right != 300 || best.Box.Top != 0 || best.Box.Bottom != 120 {
		t.Errorf("unexpected source box %+v", best.Box)
	}

	set := res.KeypointSet(0, 0.5)

	if len(set) != 17 {
		t.Fatalf("expected 17 keypoints, got %d", len(set))
	}

	if set[5].Present {
		t.Error("expected low confidence keypoint to be absent")
	}

	kp := set[0]

	if !kp.Present || math.Abs(kp.X-200) > 1e-3 || math.Abs(kp.Y-120) > 1e-3 {
		t.Errorf("expected first keypoint at (200,120), got %v", kp)
	}
}

func TestYOLOv8PoseNoDetections(t *testing.T) {

	y := NewYOLOv8Pose(YOLOv8PoseCOCOParams())
	out := newPoseTensor(y, 3)

	resizer := preprocess.NewResizer(640, 640, 640, 640)
	defer resizer.Close()

	res, err := y.DetectObjects(out.data, out.anchors, resizer)

	if err != nil {
		t.Fatal(err)
	}

	if len(res.GetDetectResults()) != 0 {
		t.Errorf("expected no detections, got %d", len(res.GetDetectResults()))
	}
}

func TestYOLOv8PoseBadTensor(t *testing.T) {

	y := NewYOLOv8Pose(YOLOv8PoseCOCOParams())

	resizer := preprocess.NewResizer(640, 640, 640, 640)
	defer resizer.Close()

	if _, err := y.DetectObjects(make([]float32, 55*10), 10, resizer); err == nil {
		t.Error("expected error for tensor with wrong channel count")
	}
}

func TestCalculateOverlap(t *testing.T) {

	tests := []struct {
		name string
		box0 [4]float32
		box1 [4]float32
		want float32
	}{
		{"identical", [4]float32{0, 0, 9, 9}, [4]float32{0, 0, 9, 9}, 1},
		{"disjoint", [4]float32{0, 0, 9, 9}, [4]float32{20, 20, 29, 29}, 0},
		{"half", [4]float32{0, 0, 9, 9}, [4]float32{5, 0, 14, 9}, 50.0 / 150.0},
	}

	for _, tc := range tests {
		got := calculateOverlap(tc.box0[0], tc.box0[1], tc.box0[2], tc.box0[3],
			tc.box1[0], tc.box1[1], tc.box1[2], tc.box1[3])

		if math.Abs(float64(got-tc.want)) > 1e-6 {
			t.Errorf("%s: expected IoU %f, got %f", tc.name, tc.want, got)
		}
	}
}

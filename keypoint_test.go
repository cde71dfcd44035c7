package posescore

import (
	"errors"
	"testing"
)

func TestBBoxArea(t *testing.T) {

	tests := []struct {
		name string
		set  KeypointSet
		want float64
	}{
		{"rectangle", KeypointSet{Pt(10, 20), Pt(30, 60), Pt(20, 40)}, 20 * 40},
		{"single point", KeypointSet{Pt(5, 5)}, 0},
		{"horizontal line", KeypointSet{Pt(0, 5), Pt(10, 5)}, 0},
		{"ignores absent", KeypointSet{Pt(0, 0), Absent(), Pt(2, 3)}, 6},
		{"negative coordinates", KeypointSet{Pt(-5, -5), Pt(5, 5)}, 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := BBoxArea(tc.set)

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tc.want {
				t.Errorf("expected area %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBBoxAreaEmpty(t *testing.T) {

	for _, set := range []KeypointSet{nil, NewAbsentSet(17)} {
		if _, err := BBoxArea(set); !errors.Is(err, ErrNoKeypoints) {
			t.Errorf("expected ErrNoKeypoints for %v, got %v", set, err)
		}
	}
}

func TestKeypointZeroValueIsAbsent(t *testing.T) {

	var kp Keypoint

	if kp.Present {
		t.Error("zero value keypoint should be absent")
	}

	if !Pt(0, 0).Present {
		t.Error("Pt(0,0) should be present")
	}

	set := KeypointSet{Pt(0, 0), Absent(), Pt(1, 1)}

	if set.PresentCount() != 2 {
		t.Errorf("expected 2 present keypoints, got %d", set.PresentCount())
	}

	if !NewAbsentSet(3).Empty() {
		t.Error("absent set should be empty")
	}
}

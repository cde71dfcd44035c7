package onnx

import (
	"math"
	"testing"
)

func TestHalfPrecisionRoundTrip(t *testing.T) {

	values := []float32{0, 1, -2.5, 0.333, 640, 1e-3}

	buf := float32ToHalfBytes(values)

	if len(buf) != len(values)*2 {
		t.Fatalf("expected %d bytes, got %d", len(values)*2, len(buf))
	}

	got := halfBytesToFloat32(buf)

	for i, v := range values {
		// half precision has an 11 bit significand
		tol := math.Max(math.Abs(float64(v))/1024, 1e-4)

		if math.Abs(float64(got[i]-v)) > tol {
			t.Errorf("value %d: expected ~%f, got %f", i, v, got[i])
		}
	}
}

func TestAnchorCount(t *testing.T) {

	tests := []struct {
		size int
		want int
	}{
		{640, 8400},
		{320, 2100},
		{1280, 33600},
	}

	for _, tc := range tests {
		if got := anchorCount(tc.size); got != tc.want {
			t.Errorf("size %d: expected %d anchors, got %d", tc.size, tc.want, got)
		}
	}
}

func TestDefaultParams(t *testing.T) {

	p := DefaultParams()

	if p.Pose.Channels() != 56 {
		t.Errorf("expected 56 output channels, got %d", p.Pose.Channels())
	}

	if p.Resolution != 512 || p.InputSize != 640 {
		t.Errorf("unexpected default sizes %+v", p)
	}
}

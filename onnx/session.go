// Package onnx provides a YOLOv8-pose keypoint Extractor running on ONNX
// Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// ErrSessionClosed is returned when running inference on a closed Session
var ErrSessionClosed = errors.New("onnx: session is closed")

// initORT initializes the ONNX Runtime environment once.  The shared library
// path of the first call is used, an empty path leaves the onnxruntime_go
// default in place.
func initORT(sharedLibrary string) error {
	ortEnvOnce.Do(func() {
		if sharedLibrary != "" {
			ort.SetSharedLibraryPath(sharedLibrary)
		}
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// tensorSpec describes the shape and precision of a model input or output
type tensorSpec struct {
	name  string
	shape ort.Shape
	half  bool
}

// Session wraps an ONNX Runtime session of a pose model with a single image
// input and a single output tensor
type Session struct {
	session *ort.DynamicAdvancedSession
	input   tensorSpec
	output  tensorSpec
	mu      sync.Mutex
	closed  bool
}

// NewSession creates a new ONNX session from a pose model file.  The tensor
// names, shapes and precision are read from the model, falling back to those
// in p for dimensions exported as dynamic.
func NewSession(modelFile string, p Params, sharedLibrary string) (*Session, error) {

	if _, err := os.Stat(modelFile); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initORT(sharedLibrary); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	input, output, err := modelSpecs(modelFile, p)

	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()

	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}

	defer func() { _ = options.Destroy() }()

	if p.Threads > 0 {
		if err := options.SetIntraOpNumThreads(p.Threads); err != nil {
			return nil, fmt.Errorf("setting thread count: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelFile,
		[]string{input.name}, []string{output.name}, options)

	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{session: session, input: input, output: output}, nil
}

// modelSpecs reads the input and output tensor descriptions of the model
func modelSpecs(modelFile string, p Params) (tensorSpec, tensorSpec, error) {

	inputs, outputs, err := ort.GetInputOutputInfo(modelFile)

	if err != nil {
		return tensorSpec{}, tensorSpec{}, fmt.Errorf("reading model tensors: %w", err)
	}

	if len(inputs) != 1 || len(outputs) < 1 {
		return tensorSpec{}, tensorSpec{}, fmt.Errorf("expected a single input pose model, got %d inputs and %d outputs",
			len(inputs), len(outputs))
	}

	in := tensorSpec{
		name:  inputs[0].Name,
		shape: resolveShape(inputs[0].Dimensions, ort.NewShape(1, 3, int64(p.InputSize), int64(p.InputSize))),
		half:  inputs[0].DataType == ort.TensorElementDataTypeFloat16,
	}

	out := tensorSpec{
		name:  outputs[0].Name,
		shape: resolveShape(outputs[0].Dimensions, ort.NewShape(1, int64(p.Pose.Channels()), int64(anchorCount(int(in.shape[2]))))),
		half:  outputs[0].DataType == ort.TensorElementDataTypeFloat16,
	}

	if len(in.shape) != 4 || len(out.shape) != 3 {
		return tensorSpec{}, tensorSpec{}, fmt.Errorf("unexpected tensor shapes input=%v output=%v",
			in.shape, out.shape)
	}

	if int(out.shape[1]) != p.Pose.Channels() {
		return tensorSpec{}, tensorSpec{}, fmt.Errorf("model output has %d channels, expected %d for %d keypoints",
			out.shape[1], p.Pose.Channels(), p.Pose.KeyPointsNumber)
	}

	return in, out, nil
}

// resolveShape replaces dynamic (negative) model dimensions with those of
// fallback
func resolveShape(dims, fallback ort.Shape) ort.Shape {

	if len(dims) != len(fallback) {
		return fallback
	}

	shape := make(ort.Shape, len(dims))

	for i, d := range dims {
		if d <= 0 {
			d = fallback[i]
		}
		shape[i] = d
	}

	return shape
}

// anchorCount returns the number of YOLOv8 anchors for a square input of
// size, being the grid cells of the stride 8, 16 and 32 heads
func anchorCount(size int) int {

	n := 0

	for _, stride := range []int{8, 16, 32} {
		g := size / stride
		n += g * g
	}

	return n
}

// InputSize returns the square input dimension of the model
func (s *Session) InputSize() int {
	return int(s.input.shape[3])
}

// Anchors returns the number of anchors in the model output
func (s *Session) Anchors() int {
	return int(s.output.shape[2])
}

// Infer runs the model on a NCHW float blob and returns the flattened output
// tensor as float32
func (s *Session) Infer(ctx context.Context, blob []float32) ([]float32, error) {

	// check context before expensive operation
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	if int64(len(blob)) != s.input.shape.FlattenedSize() {
		return nil, fmt.Errorf("input blob has %d values, model expects %v",
			len(blob), s.input.shape)
	}

	input, err := s.newInput(blob)

	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}

	defer func() { _ = input.Destroy() }()

	output, err := s.newOutput()

	if err != nil {
		return nil, fmt.Errorf("creating output tensor: %w", err)
	}

	defer func() { _ = output.Destroy() }()

	if err := s.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}

	switch t := output.(type) {
	case *ort.Tensor[float32]:
		out := make([]float32, len(t.GetData()))
		copy(out, t.GetData())
		return out, nil
	case *ort.CustomDataTensor:
		return halfBytesToFloat32(t.GetData()), nil
	}

	return nil, fmt.Errorf("unexpected output tensor type %T", output)
}

func (s *Session) newInput(blob []float32) (ort.Value, error) {

	if s.input.half {
		return ort.NewCustomDataTensor(s.input.shape, float32ToHalfBytes(blob),
			ort.TensorElementDataTypeFloat16)
	}

	return ort.NewTensor(s.input.shape, blob)
}

func (s *Session) newOutput() (ort.Value, error) {

	if s.output.half {
		buf := make([]byte, s.output.shape.FlattenedSize()*2)
		return ort.NewCustomDataTensor(s.output.shape, buf,
			ort.TensorElementDataTypeFloat16)
	}

	return ort.NewEmptyTensor[float32](s.output.shape)
}

// Close releases ONNX resources
func (s *Session) Close() error {

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	if s.session != nil {
		return s.session.Destroy()
	}

	return nil
}

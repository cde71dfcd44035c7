package onnx

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/swdee/go-posescore"
	"github.com/swdee/go-posescore/postprocess"
	"github.com/swdee/go-posescore/preprocess"
	"gocv.io/x/gocv"
)

// letterboxColor is the padding colour YOLO models are trained with
var letterboxColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Params defines the pose extraction parameters
type Params struct {
	// Resolution is the length the shorter image side is scaled to before
	// detection, rounded to a multiple of 64.  Zero disables the step.
	Resolution int
	// InputSize is the square model input dimension used when the model
	// exports it as dynamic
	InputSize int
	// KeypointThreshold is the minimum keypoint confidence for a joint to be
	// reported present
	KeypointThreshold float32
	// Threads is the number of intra op threads for ONNX Runtime, zero uses
	// the runtime default
	Threads int
	// Pose are the YOLOv8 pose post processing parameters
	Pose postprocess.YOLOv8PoseParams
}

// DefaultParams returns parameters for a COCO trained YOLOv8-pose model:
// - Resolution: 512
// - Input Size: 640
// - Keypoint Threshold: 0.5
func DefaultParams() Params {
	return Params{
		Resolution:        512,
		InputSize:         640,
		KeypointThreshold: 0.5,
		Pose:              postprocess.YOLOv8PoseCOCOParams(),
	}
}

// Option configures an Extractor
type Option func(*options)

type options struct {
	sharedLibrary string
	logger        *slog.Logger
}

// WithSharedLibrary sets the path of the onnxruntime shared library.  Only
// the path given to the first Extractor created takes effect.
func WithSharedLibrary(path string) Option {
	return func(o *options) {
		o.sharedLibrary = path
	}
}

// WithLogger sets the logger (default: slog.Default())
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Extractor detects the pose keypoints of the most confident person in an
// image using a YOLOv8-pose ONNX model.  It implements posescore.Extractor and
// is safe for concurrent use, although calls are serialized on the session.
type Extractor struct {
	session *Session
	pose    *postprocess.YOLOv8Pose
	params  Params
	logger  *slog.Logger
}

// NewExtractor loads the model file and returns an Extractor
func NewExtractor(modelFile string, p Params, opts ...Option) (*Extractor, error) {

	o := options{logger: slog.Default()}

	for _, opt := range opts {
		opt(&o)
	}

	session, err := NewSession(modelFile, p, o.sharedLibrary)

	if err != nil {
		return nil, err
	}

	o.logger.Debug("pose model loaded", "model", modelFile,
		"input_size", session.InputSize(), "anchors", session.Anchors(),
		"half_precision", session.input.half)

	return &Extractor{
		session: session,
		pose:    postprocess.NewYOLOv8Pose(p.Pose),
		params:  p,
		logger:  o.logger,
	}, nil
}

// NewPool returns a pool of size Extractors of the same model for
// concurrent evaluation
func NewPool(size int, modelFile string, p Params, opts ...Option) (*posescore.Pool, error) {
	return posescore.NewPool(size, func(i int) (posescore.Extractor, error) {
		ex, err := NewExtractor(modelFile, p, opts...)

		if err != nil {
			return nil, fmt.Errorf("creating extractor %d: %w", i, err)
		}

		return ex, nil
	})
}

// Extract returns the keypoints of the most confident person in the image
// file, in the pixel coordinates of the file.  When nobody is detected every
// keypoint is absent.
func (e *Extractor) Extract(ctx context.Context, file string) (posescore.KeypointSet, error) {

	img, err := preprocess.LoadImage(file)

	if err != nil {
		return nil, &posescore.DetectionError{File: file, Err: err}
	}

	defer img.Close()

	work := img
	scaleX, scaleY := 1.0, 1.0

	if e.params.Resolution > 0 {
		work = gocv.NewMat()
		defer work.Close()

		scaleX, scaleY = preprocess.ResolutionResize(img, &work, e.params.Resolution)
	}

	size := e.session.InputSize()
	resizer := preprocess.NewResizer(work.Cols(), work.Rows(), size, size)
	defer resizer.Close()

	letterbox := gocv.NewMat()
	defer letterbox.Close()

	resizer.LetterBoxResize(work, &letterbox, letterboxColor)

	blob, err := preprocess.BlobFromBGR(letterbox)

	if err != nil {
		return nil, &posescore.DetectionError{File: file, Err: err}
	}

	output, err := e.session.Infer(ctx, blob)

	if err != nil {
		return nil, &posescore.DetectionError{File: file, Err: err}
	}

	res, err := e.pose.DetectObjects(output, e.session.Anchors(), resizer)

	if err != nil {
		return nil, &posescore.DetectionError{File: file, Err: err}
	}

	if len(res.GetKeyPoints()) == 0 {
		e.logger.Debug("no person detected", "file", file)
		return posescore.NewAbsentSet(e.params.Pose.KeyPointsNumber), nil
	}

	set := res.KeypointSet(0, e.params.KeypointThreshold)

	// map from the working resolution back to the source image
	for i := range set {
		if set[i].Present {
			set[i].X /= scaleX
			set[i].Y /= scaleY
		}
	}

	e.logger.Debug("keypoints extracted", "file", file,
		"people", len(res.GetKeyPoints()), "present", set.PresentCount(),
		"probability", res.GetDetectResults()[0].Probability)

	return set, nil
}

// Close releases the model session
func (e *Extractor) Close() error {
	return e.session.Close()
}

/*
go-posescore measures how closely generated images reproduce a target human
pose.  Keypoints are extracted from a reference (ground truth) pose image and
from a generated image, then compared using Object Keypoint Similarity (OKS),
the exponential decay metric used by the COCO keypoint benchmark.

The root package provides the keypoint types, the sigma tables for a skeleton
definition, the OKS scorer and the Extractor interface any pose detector must
satisfy.  Batch evaluation of directories of images lives in the evaluate
subpackage, and an ONNX Runtime YOLOv8-pose Extractor in the onnx subpackage.

See cmd/poseeval for a command line tool wiring the pieces together.
*/
package posescore

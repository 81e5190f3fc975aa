// Package ai defines the object detector abstraction and the pure-Go parts of
// the detection pipeline: model output parsing, label tables, normalization
// and the remote inference client. The OpenCV-backed detector lives in the
// opencv subpackage.
package ai

import "context"

const (
	// DefaultConfidenceThreshold is the minimum confidence for a detection to be reported.
	DefaultConfidenceThreshold = 0.25
	// DefaultNMSThreshold is the IoU above which overlapping boxes are suppressed.
	DefaultNMSThreshold = 0.45
)

// Object is a detection in source-image pixel coordinates (xyxy).
type Object struct {
	ClassID    int
	Label      string
	Confidence float32
	X1, Y1     float32
	X2, Y2     float32
}

// Result is the output of one Detect call.
type Result struct {
	Width   int
	Height  int
	Objects []Object
}

// Detector runs object detection on an encoded image.
type Detector interface {
	Detect(ctx context.Context, image []byte) (*Result, error)
	Name() string
	Close() error
}

// Annotator is implemented by detectors that can draw their results.
type Annotator interface {
	Annotate(ctx context.Context, image []byte, objects []Object) ([]byte, error)
}

// HealthChecker is implemented by detectors with an external dependency.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

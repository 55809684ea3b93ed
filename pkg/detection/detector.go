// Package detection turns camera frames into face detections and feeds
// them to the tracking controller.
package detection

import (
	"image"
	"time"
)

// Detection represents a detected face. Coordinates are normalized to the
// frame (0-1). Only XMin and Width drive pan decisions.
type Detection struct {
	XMin, YMin    float64 // Top-left corner
	Width, Height float64
	Confidence    float64
}

// Center returns the horizontal center of the box.
func (d Detection) Center() float64 {
	return d.XMin + d.Width/2
}

// Result is the detector output for one frame, in detector order.
// Err is set when detection itself failed; Detections is then empty.
type Result struct {
	Seq        uint64
	Detections []Detection
	Err        error
	At         time.Time
}

// Detector is the interface for face detection backends.
type Detector interface {
	// Detect finds faces in the image and returns their positions
	Detect(img image.Image) ([]Detection, error)

	// Close releases resources
	Close() error
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(img image.Image) ([]Detection, error)

// Detect calls f(img).
func (f DetectorFunc) Detect(img image.Image) ([]Detection, error) { return f(img) }

// Close is a no-op.
func (f DetectorFunc) Close() error { return nil }

// Config holds detector configuration
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence (default 0.7)
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.7,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// SelectPrimary picks the widest detection, the face assumed nearest.
// Ties keep the first one encountered. Returns false for an empty slice.
func SelectPrimary(dets []Detection) (Detection, bool) {
	if len(dets) == 0 {
		return Detection{}, false
	}

	best := 0
	for i := 1; i < len(dets); i++ {
		if dets[i].Width > dets[best].Width {
			best = i
		}
	}
	return dets[best], true
}

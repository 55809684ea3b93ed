package device

import (
	"fmt"
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMaxReplyBytes caps how much of a command reply is read.
const DefaultMaxReplyBytes = 4096

// Servo angle telemetry outside this range is rejected.
const (
	MinAngle = 0
	MaxAngle = 360
)

// Reply describes one completed device call, successful or not.
type Reply struct {
	ID       string        `json:"id"`
	Path     string        `json:"path"`
	Status   int           `json:"status,omitempty"`
	Angle    *int          `json:"angle,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// ParseAngle extracts the numeric "angle" field from a JSON reply body.
// Invalid JSON, a missing field, a non-numeric or fractional value, or an
// angle outside MinAngle..MaxAngle yields ErrMalformedTelemetry.
func ParseAngle(body []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedTelemetry, err)
	}

	raw, ok := fields["angle"]
	if !ok {
		return 0, fmt.Errorf("%w: no angle field", ErrMalformedTelemetry)
	}

	v, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: angle is %T", ErrMalformedTelemetry, raw)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: angle %v is not whole", ErrMalformedTelemetry, v)
	}
	if v < MinAngle || v > MaxAngle {
		return 0, fmt.Errorf("%w: angle %v out of range", ErrMalformedTelemetry, v)
	}
	return int(v), nil
}

package device

import (
	"fmt"
	"strings"
)

// Direction is a servo step direction.
type Direction int

const (
	Left Direction = iota + 1
	Right
)

// String returns the wire name used by the servo endpoint.
func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Valid reports whether d is Left or Right.
func (d Direction) Valid() bool {
	return d == Left || d == Right
}

// ParseDirection parses "left" or "right" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Command is one outbound device operation. The set is closed:
// FetchFrame, Move and SetIllumination.
type Command interface {
	// Name identifies the command in logs and channel stats.
	Name() string
	command()
}

// FetchFrame requests the next camera frame.
type FetchFrame struct{}

// Move steps the servo. Found is forwarded to the device as telemetry only.
// A zero-degree move is a "still tracking" heartbeat, not motion.
type Move struct {
	Direction Direction
	Degrees   uint
	Found     bool
}

// SetIllumination sets the LED brightness. Level 0 is off.
type SetIllumination struct {
	Level uint
}

func (FetchFrame) Name() string      { return "fetch_frame" }
func (Move) Name() string            { return "move" }
func (SetIllumination) Name() string { return "set_illumination" }

func (FetchFrame) command()      {}
func (Move) command()            {}
func (SetIllumination) command() {}

// Path returns the request path and query for the servo endpoint.
func (m Move) Path() string {
	return fmt.Sprintf("/servo?dir=%s&step=%d&found=%t", m.Direction, m.Degrees, m.Found)
}

// Path returns the request path and query for the LED endpoint.
func (s SetIllumination) Path() string {
	return fmt.Sprintf("/led?bright=%d", s.Level)
}

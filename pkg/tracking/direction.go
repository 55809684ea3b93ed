package tracking

import "github.com/teslashibe/go-zakuhead/pkg/device"

// FaceDirection is the last known side of the frame the face was on.
type FaceDirection int

const (
	DirectionNone FaceDirection = iota
	DirectionLeft
	DirectionRight
)

func (d FaceDirection) String() string {
	switch d {
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	default:
		return "none"
	}
}

// MarshalText encodes the direction by name.
func (d FaceDirection) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Heading is the servo direction to search in. With no history the
// turret searches left.
func (d FaceDirection) Heading() device.Direction {
	if d == DirectionRight {
		return device.Right
	}
	return device.Left
}

func directionOf(d device.Direction) FaceDirection {
	switch d {
	case device.Left:
		return DirectionLeft
	case device.Right:
		return DirectionRight
	default:
		return DirectionNone
	}
}

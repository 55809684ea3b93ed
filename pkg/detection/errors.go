package detection

import "errors"

// ErrDetectorClosed is returned by Detect after Close.
var ErrDetectorClosed = errors.New("detector closed")

var errNoImage = errors.New("frame has no image")

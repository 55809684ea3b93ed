package tracking

import "errors"

// ErrInvalidConfig is returned for unusable controller settings.
var ErrInvalidConfig = errors.New("invalid tracking config")

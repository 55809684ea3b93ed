package device

import "errors"

var (
	// ErrTransport wraps connection failures, timeouts and non-2xx replies.
	// The cycle is treated as a no-op; the next cycle is the retry.
	ErrTransport = errors.New("device: transport error")

	// ErrMalformedTelemetry is returned when a reply is not JSON or has no
	// numeric angle. It is never fatal.
	ErrMalformedTelemetry = errors.New("device: malformed telemetry")

	// ErrMisconfigured is returned at setup when required wiring is missing.
	ErrMisconfigured = errors.New("device: misconfigured")

	// ErrUnknownCommand is returned by Dispatch for unsupported commands.
	ErrUnknownCommand = errors.New("device: unknown command")

	// ErrInvalidDirection is returned for directions other than left/right.
	ErrInvalidDirection = errors.New("device: invalid direction")
)

package tracking

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all tunable parameters for the tracking loop
type Config struct {
	// Thresholds on the primary face's horizontal center (normalized 0-1)
	CenterLow  float64 // Below this the face is left of center
	CenterHigh float64 // Above this the face is right of center

	// Movement (degrees)
	CorrectionStep uint // Step toward an off-center face
	SweepStep      uint // Step in the last known heading while searching
	NudgeStep      uint // Manual button step

	// Sweeping only happens while SweepMinAngle < angle < SweepMaxAngle
	SweepMinAngle int
	SweepMaxAngle int
	InitialAngle  int // Assumed servo angle before any telemetry

	// Loss detection
	// LostGrace is how long a face may be missing before it counts as
	// lost. The check compares the full elapsed duration, sub-second part
	// included: with 2s a face is lost at 2.001s, not at 3s.
	LostGrace time.Duration

	// ForcedResync re-sends illumination commands at run boundaries even
	// when the controller believes the LED is already in that state, and
	// enables the heartbeat.
	ForcedResync    bool
	HeartbeatPeriod time.Duration // 0 disables the heartbeat
	HeartbeatPhase  time.Duration // Offset within the period

	Brightness uint // LED level used when a face is found

	FetchRetryDelay time.Duration // Wait before re-fetching after a failed fetch
	InboxSize       int           // Pending events the controller buffers
}

// DefaultConfig returns the current firmware behavior: forced resync,
// 5° corrections and a 3s heartbeat.
func DefaultConfig() Config {
	return Config{
		CenterLow:  0.4,
		CenterHigh: 0.6,

		CorrectionStep: 5,
		SweepStep:      30,
		NudgeStep:      15,

		SweepMinAngle: 20,
		SweepMaxAngle: 160,
		InitialAngle:  90,

		LostGrace: 2 * time.Second,

		ForcedResync:    true,
		HeartbeatPeriod: 3 * time.Second,
		HeartbeatPhase:  1 * time.Second,

		Brightness: 10,

		FetchRetryDelay: 500 * time.Millisecond,
		InboxSize:       8,
	}
}

// LegacyConfig returns the older firmware behavior: plain on/off
// illumination, 10° corrections and no heartbeat.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.ForcedResync = false
	cfg.CorrectionStep = 10
	cfg.HeartbeatPeriod = 0
	cfg.HeartbeatPhase = 0
	return cfg
}

// Preset returns a named configuration ("default" or "legacy").
func Preset(name string) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return DefaultConfig(), nil
	case "legacy":
		return LegacyConfig(), nil
	default:
		return Config{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
	}
}

// Validate checks the configuration for values the loop cannot run with.
func (c Config) Validate() error {
	if c.CenterLow < 0 || c.CenterHigh > 1 || c.CenterLow >= c.CenterHigh {
		return fmt.Errorf("%w: center band [%.2f, %.2f] must satisfy 0 <= low < high <= 1",
			ErrInvalidConfig, c.CenterLow, c.CenterHigh)
	}
	if c.SweepMinAngle >= c.SweepMaxAngle {
		return fmt.Errorf("%w: sweep range (%d, %d) is empty", ErrInvalidConfig, c.SweepMinAngle, c.SweepMaxAngle)
	}
	if c.LostGrace < 0 {
		return fmt.Errorf("%w: lost grace must not be negative", ErrInvalidConfig)
	}
	if c.HeartbeatPeriod != 0 {
		if c.HeartbeatPeriod < time.Second {
			return fmt.Errorf("%w: heartbeat period must be at least 1s", ErrInvalidConfig)
		}
		if c.HeartbeatPhase < 0 || c.HeartbeatPhase >= c.HeartbeatPeriod {
			return fmt.Errorf("%w: heartbeat phase must be within the period", ErrInvalidConfig)
		}
	}
	if c.Brightness == 0 {
		return fmt.Errorf("%w: brightness must be positive", ErrInvalidConfig)
	}
	if c.FetchRetryDelay < 0 {
		return fmt.Errorf("%w: fetch retry delay must not be negative", ErrInvalidConfig)
	}
	if c.InboxSize <= 0 {
		return fmt.Errorf("%w: inbox size must be positive", ErrInvalidConfig)
	}
	return nil
}

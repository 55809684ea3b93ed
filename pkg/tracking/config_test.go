package tracking

import (
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-zakuhead/pkg/device"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.CenterLow != 0.4 || cfg.CenterHigh != 0.6 {
		t.Errorf("center band: got [%v, %v], want [0.4, 0.6]", cfg.CenterLow, cfg.CenterHigh)
	}
	if cfg.CorrectionStep != 5 {
		t.Errorf("Expected CorrectionStep=5, got %v", cfg.CorrectionStep)
	}
	if cfg.SweepStep != 30 {
		t.Errorf("Expected SweepStep=30, got %v", cfg.SweepStep)
	}
	if !cfg.ForcedResync {
		t.Error("Expected ForcedResync=true")
	}
	if cfg.HeartbeatPeriod != 3*time.Second {
		t.Errorf("Expected HeartbeatPeriod=3s, got %v", cfg.HeartbeatPeriod)
	}
	if cfg.LostGrace != 2*time.Second {
		t.Errorf("Expected LostGrace=2s, got %v", cfg.LostGrace)
	}
	if cfg.InitialAngle != 90 {
		t.Errorf("Expected InitialAngle=90, got %v", cfg.InitialAngle)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig invalid: %v", err)
	}
}

func TestLegacyConfig(t *testing.T) {
	cfg := LegacyConfig()

	if cfg.ForcedResync {
		t.Error("Expected ForcedResync=false")
	}
	if cfg.CorrectionStep != 10 {
		t.Errorf("Expected CorrectionStep=10, got %v", cfg.CorrectionStep)
	}
	if cfg.HeartbeatPeriod != 0 {
		t.Errorf("Expected no heartbeat, got %v", cfg.HeartbeatPeriod)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("LegacyConfig invalid: %v", err)
	}
}

func TestPreset(t *testing.T) {
	tests := []struct {
		name       string
		wantForced bool
		wantErr    bool
	}{
		{"", true, false},
		{"default", true, false},
		{"Legacy", false, false},
		{"aggressive", false, true},
	}

	for _, tc := range tests {
		cfg, err := Preset(tc.name)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("%q: got %v, want ErrInvalidConfig", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.name, err)
			continue
		}
		if cfg.ForcedResync != tc.wantForced {
			t.Errorf("%q: ForcedResync=%v, want %v", tc.name, cfg.ForcedResync, tc.wantForced)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted band", func(c *Config) { c.CenterLow, c.CenterHigh = 0.6, 0.4 }},
		{"band above 1", func(c *Config) { c.CenterHigh = 1.2 }},
		{"empty sweep range", func(c *Config) { c.SweepMinAngle = 160 }},
		{"negative grace", func(c *Config) { c.LostGrace = -time.Second }},
		{"sub-second heartbeat", func(c *Config) { c.HeartbeatPeriod = 500 * time.Millisecond }},
		{"phase outside period", func(c *Config) { c.HeartbeatPhase = 3 * time.Second }},
		{"zero brightness", func(c *Config) { c.Brightness = 0 }},
		{"negative retry", func(c *Config) { c.FetchRetryDelay = -1 }},
		{"no inbox", func(c *Config) { c.InboxSize = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("got %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestFaceDirection(t *testing.T) {
	tests := []struct {
		dir         FaceDirection
		wantName    string
		wantHeading device.Direction
	}{
		{DirectionNone, "none", device.Left},
		{DirectionLeft, "left", device.Left},
		{DirectionRight, "right", device.Right},
	}

	for _, tc := range tests {
		if got := tc.dir.String(); got != tc.wantName {
			t.Errorf("String: got %q, want %q", got, tc.wantName)
		}
		if got := tc.dir.Heading(); got != tc.wantHeading {
			t.Errorf("%s Heading: got %v, want %v", tc.wantName, got, tc.wantHeading)
		}
		text, _ := tc.dir.MarshalText()
		if string(text) != tc.wantName {
			t.Errorf("MarshalText: got %q, want %q", text, tc.wantName)
		}
	}
}

// Package config loads zakuhead settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, a .env file,
// then ZAKUHEAD_* environment variables. The result is validated before use.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/teslashibe/go-zakuhead/internal/log"
	"github.com/teslashibe/go-zakuhead/pkg/detection"
	"github.com/teslashibe/go-zakuhead/pkg/device"
	"github.com/teslashibe/go-zakuhead/pkg/tracking"
)

// DefaultPath is read when no config file is given and it exists.
const DefaultPath = "zakuhead.yaml"

// Config represents the complete zakuhead configuration
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Tracking TrackingConfig `yaml:"tracking"`
	Detector DetectorConfig `yaml:"detector"`
	Web      WebConfig      `yaml:"web"`
	Log      LogConfig      `yaml:"log"`
}

// DeviceConfig holds turret connection settings
type DeviceConfig struct {
	Host    string        `yaml:"host" validate:"required"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"` // 0 waits forever
	Rate    float64       `yaml:"rate" validate:"gte=0"`    // Commands per second, 0 = unlimited
	Burst   int           `yaml:"burst" validate:"gte=1"`
}

// TrackingConfig selects a controller preset and optional overrides.
// Zero or nil fields keep the preset's value.
type TrackingConfig struct {
	Preset          string         `yaml:"preset" validate:"omitempty,oneof=default legacy"`
	ForcedResync    *bool          `yaml:"forcedResync"`
	CorrectionStep  uint           `yaml:"correctionStep" validate:"lte=180"`
	SweepStep       uint           `yaml:"sweepStep" validate:"lte=180"`
	NudgeStep       uint           `yaml:"nudgeStep" validate:"lte=180"`
	Brightness      uint           `yaml:"brightness" validate:"lte=255"`
	LostGrace       time.Duration  `yaml:"lostGrace" validate:"gte=0"`
	HeartbeatPeriod *time.Duration `yaml:"heartbeatPeriod"`
	FetchRetryDelay time.Duration  `yaml:"fetchRetryDelay" validate:"gte=0"`
}

// DetectorConfig holds face detector settings
type DetectorConfig struct {
	ModelPath        string  `yaml:"modelPath" validate:"required"`
	ConfidenceThresh float64 `yaml:"confidence" validate:"gt=0,lte=1"`
	InputWidth       int     `yaml:"inputWidth" validate:"gt=0"`
	InputHeight      int     `yaml:"inputHeight" validate:"gt=0"`
}

// WebConfig holds dashboard settings
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port" validate:"required,numeric"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	det := detection.DefaultConfig()
	return &Config{
		Device: DeviceConfig{
			Host:  device.DefaultHost,
			Rate:  0,
			Burst: 1,
		},
		Tracking: TrackingConfig{
			Preset: "default",
		},
		Detector: DetectorConfig{
			ModelPath:        det.ModelPath,
			ConfidenceThresh: det.ConfidenceThresh,
			InputWidth:       det.InputWidth,
			InputHeight:      det.InputHeight,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    "8181",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. An empty path reads DefaultPath when it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = DefaultPath
	}
	if err := loadFromFile(cfg, file); err != nil {
		if path != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config %s: %w", file, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("could not load .env", "error", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints and the resulting tracking settings.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if _, err := c.Tracking.Build(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Build applies the overrides to the selected preset.
func (t TrackingConfig) Build() (tracking.Config, error) {
	cfg, err := tracking.Preset(t.Preset)
	if err != nil {
		return tracking.Config{}, err
	}
	if t.ForcedResync != nil {
		cfg.ForcedResync = *t.ForcedResync
	}
	if t.CorrectionStep > 0 {
		cfg.CorrectionStep = t.CorrectionStep
	}
	if t.SweepStep > 0 {
		cfg.SweepStep = t.SweepStep
	}
	if t.NudgeStep > 0 {
		cfg.NudgeStep = t.NudgeStep
	}
	if t.Brightness > 0 {
		cfg.Brightness = t.Brightness
	}
	if t.LostGrace > 0 {
		cfg.LostGrace = t.LostGrace
	}
	if t.HeartbeatPeriod != nil {
		cfg.HeartbeatPeriod = *t.HeartbeatPeriod
		if cfg.HeartbeatPeriod == 0 {
			cfg.HeartbeatPhase = 0
		}
	}
	if t.FetchRetryDelay > 0 {
		cfg.FetchRetryDelay = t.FetchRetryDelay
	}
	return cfg, cfg.Validate()
}

// Client returns the device client settings.
func (d DeviceConfig) Client() device.Config {
	cfg := device.DefaultConfig()
	cfg.Host = d.Host
	cfg.Timeout = d.Timeout
	return cfg
}

// Build returns the detector settings.
func (d DetectorConfig) Build() detection.Config {
	return detection.Config{
		ModelPath:        d.ModelPath,
		ConfidenceThresh: d.ConfidenceThresh,
		InputWidth:       d.InputWidth,
		InputHeight:      d.InputHeight,
	}
}

// LogOptions returns the logger settings.
func (l LogConfig) LogOptions() log.Options {
	return log.Options{Level: l.Level, File: l.File}
}

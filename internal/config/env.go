package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables that override the config file.
const (
	EnvHost     = "ZAKUHEAD_HOST"
	EnvTimeout  = "ZAKUHEAD_TIMEOUT"
	EnvRate     = "ZAKUHEAD_RATE"
	EnvLogLevel = "ZAKUHEAD_LOG_LEVEL"
	EnvWebPort  = "ZAKUHEAD_WEB_PORT"
	EnvModel    = "ZAKUHEAD_MODEL"
)

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) error {
	if host := os.Getenv(EnvHost); host != "" {
		cfg.Device.Host = host
	}

	if timeout := os.Getenv(EnvTimeout); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Device.Timeout = d
	}

	if rate := os.Getenv(EnvRate); rate != "" {
		r, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRate, err)
		}
		cfg.Device.Rate = r
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}

	if port := os.Getenv(EnvWebPort); port != "" {
		cfg.Web.Port = port
	}

	if model := os.Getenv(EnvModel); model != "" {
		cfg.Detector.ModelPath = model
	}
	return nil
}

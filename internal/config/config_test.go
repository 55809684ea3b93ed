package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-zakuhead/pkg/device"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zakuhead.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Device.Host != device.DefaultHost {
		t.Errorf("Expected host %s, got %s", device.DefaultHost, cfg.Device.Host)
	}
	if cfg.Device.Timeout != 0 {
		t.Errorf("Expected no timeout by default, got %v", cfg.Device.Timeout)
	}
	if cfg.Tracking.Preset != "default" {
		t.Errorf("Expected default preset, got %q", cfg.Tracking.Preset)
	}
	if !cfg.Web.Enabled || cfg.Web.Port != "8181" {
		t.Errorf("Unexpected web defaults: %+v", cfg.Web)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device.Host != device.DefaultHost {
		t.Errorf("Expected default host, got %s", cfg.Device.Host)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
device:
  host: 10.0.0.7
  timeout: 1500ms
  rate: 20
  burst: 2
tracking:
  preset: legacy
  sweepStep: 20
  heartbeatPeriod: 0s
detector:
  modelPath: /opt/models/yunet.onnx
  confidence: 0.8
  inputWidth: 320
  inputHeight: 240
web:
  enabled: false
  port: "9000"
log:
  level: debug
  file: /tmp/zakuhead.log
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Device.Host != "10.0.0.7" {
		t.Errorf("host: got %s", cfg.Device.Host)
	}
	if cfg.Device.Timeout != 1500*time.Millisecond {
		t.Errorf("timeout: got %v", cfg.Device.Timeout)
	}
	if cfg.Device.Rate != 20 || cfg.Device.Burst != 2 {
		t.Errorf("rate/burst: got %v/%d", cfg.Device.Rate, cfg.Device.Burst)
	}
	if cfg.Detector.InputHeight != 240 || cfg.Detector.ConfidenceThresh != 0.8 {
		t.Errorf("detector: got %+v", cfg.Detector)
	}
	if cfg.Web.Enabled || cfg.Web.Port != "9000" {
		t.Errorf("web: got %+v", cfg.Web)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/zakuhead.log" {
		t.Errorf("log: got %+v", cfg.Log)
	}

	tc, err := cfg.Tracking.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tc.ForcedResync {
		t.Error("legacy preset should not force resync")
	}
	if tc.CorrectionStep != 10 {
		t.Errorf("CorrectionStep: got %d, want 10", tc.CorrectionStep)
	}
	if tc.SweepStep != 20 {
		t.Errorf("SweepStep: got %d, want 20", tc.SweepStep)
	}
	if tc.HeartbeatPeriod != 0 {
		t.Errorf("HeartbeatPeriod: got %v, want 0", tc.HeartbeatPeriod)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "device:\n  host: 10.0.0.7\n")

	t.Setenv(EnvHost, "192.168.4.1")
	t.Setenv(EnvTimeout, "3s")
	t.Setenv(EnvRate, "12.5")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvWebPort, "8080")
	t.Setenv(EnvModel, "/models/face.onnx")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Device.Host != "192.168.4.1" {
		t.Errorf("host: got %s", cfg.Device.Host)
	}
	if cfg.Device.Timeout != 3*time.Second {
		t.Errorf("timeout: got %v", cfg.Device.Timeout)
	}
	if cfg.Device.Rate != 12.5 {
		t.Errorf("rate: got %v", cfg.Device.Rate)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level: got %s", cfg.Log.Level)
	}
	if cfg.Web.Port != "8080" {
		t.Errorf("web port: got %s", cfg.Web.Port)
	}
	if cfg.Detector.ModelPath != "/models/face.onnx" {
		t.Errorf("model: got %s", cfg.Detector.ModelPath)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv(EnvTimeout, "soon")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for unparseable timeout")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.Device.Host = "" }},
		{"negative timeout", func(c *Config) { c.Device.Timeout = -time.Second }},
		{"zero burst", func(c *Config) { c.Device.Burst = 0 }},
		{"unknown preset", func(c *Config) { c.Tracking.Preset = "turbo" }},
		{"huge step", func(c *Config) { c.Tracking.CorrectionStep = 500 }},
		{"bad heartbeat", func(c *Config) {
			d := 200 * time.Millisecond
			c.Tracking.HeartbeatPeriod = &d
		}},
		{"no model", func(c *Config) { c.Detector.ModelPath = "" }},
		{"confidence above 1", func(c *Config) { c.Detector.ConfidenceThresh = 1.5 }},
		{"port not numeric", func(c *Config) { c.Web.Port = "http" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestTrackingConfig_ForcedResyncOverride(t *testing.T) {
	off := false
	tc, err := TrackingConfig{Preset: "default", ForcedResync: &off}.Build()
	if err != nil {
		t.Fatal(err)
	}
	if tc.ForcedResync {
		t.Error("Expected ForcedResync override to apply")
	}
	if tc.CorrectionStep != 5 {
		t.Errorf("CorrectionStep: got %d, want preset 5", tc.CorrectionStep)
	}
}

func TestDeviceConfig_Client(t *testing.T) {
	d := DeviceConfig{Host: "10.1.1.1", Timeout: 2 * time.Second}
	c := d.Client()
	if c.Host != "10.1.1.1" || c.Timeout != 2*time.Second {
		t.Errorf("client config: %+v", c)
	}
	if c.MaxReplyBytes != device.DefaultMaxReplyBytes {
		t.Errorf("MaxReplyBytes: got %d", c.MaxReplyBytes)
	}
}

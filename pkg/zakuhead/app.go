// Package zakuhead wires the turret control loop together.
package zakuhead

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/teslashibe/go-zakuhead/internal/config"
	"github.com/teslashibe/go-zakuhead/internal/log"
	"github.com/teslashibe/go-zakuhead/pkg/channel"
	"github.com/teslashibe/go-zakuhead/pkg/detection"
	"github.com/teslashibe/go-zakuhead/pkg/device"
	"github.com/teslashibe/go-zakuhead/pkg/tracking"
	"github.com/teslashibe/go-zakuhead/pkg/web"
)

// drainTimeout bounds how long Shutdown waits for queued commands.
const drainTimeout = 5 * time.Second

// App is the main ZakuHead application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config *config.Config
	logger *slog.Logger

	autoStart bool
	detector  detection.Detector
	decoder   device.FrameDecoder

	commands  *channel.Channel
	client    *device.Client
	adapter   *detection.Adapter
	ctrl      *tracking.Controller
	webServer *web.Server

	// wg tracks the goroutines started by Run.
	wg sync.WaitGroup
}

// Option configures an App.
type Option func(*App)

// WithDetector supplies a detector instead of loading YuNet.
func WithDetector(d detection.Detector) Option {
	return func(a *App) {
		a.detector = d
	}
}

// WithDecoder supplies a frame decoder instead of the OpenCV one.
func WithDecoder(d device.FrameDecoder) Option {
	return func(a *App) {
		a.decoder = d
	}
}

// WithAutoStart controls whether Run starts tracking immediately.
func WithAutoStart(start bool) Option {
	return func(a *App) {
		a.autoStart = start
	}
}

// New creates a new application with the given configuration.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config:    cfg,
		logger:    log.With("component", "app"),
		autoStart: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Init builds and wires all components.
// Call this after New() and before Run(). Any error is fatal.
func (a *App) Init() error {
	a.commands = channel.New("device",
		channel.WithRateLimit(rate.Limit(a.config.Device.Rate), a.config.Device.Burst))

	if a.decoder == nil {
		a.decoder = detection.NewDecoder()
	}
	client, err := device.New(a.config.Device.Client(), a.commands, a.decoder)
	if err != nil {
		return fmt.Errorf("device client: %w", err)
	}
	a.client = client

	if a.detector == nil {
		det, err := detection.NewYuNet(a.config.Detector.Build())
		if err != nil {
			return fmt.Errorf("face detector: %w (download with: curl -L https://github.com/opencv/opencv_zoo/raw/main/models/face_detection_yunet/face_detection_yunet_2023mar.onnx -o %s)",
				err, a.config.Detector.ModelPath)
		}
		a.detector = det
	}

	trackCfg, err := a.config.Tracking.Build()
	if err != nil {
		return err
	}
	a.ctrl, err = tracking.New(trackCfg, client)
	if err != nil {
		return fmt.Errorf("tracking: %w", err)
	}

	a.adapter = detection.NewAdapter(a.detector, a.ctrl)

	client.SetFrameHandler(a.adapter.HandleFrame)
	client.SetFetchFailedHandler(a.ctrl.FetchFailed)
	client.SetAngleHandler(a.ctrl.SetLastAngle)

	if a.config.Web.Enabled {
		a.webServer = web.NewServer(a.config.Web.Port, a.ctrl)
		a.ctrl.SetStateUpdater(a.webServer)
		client.SetReplyHandler(a.webServer.AddReply)
	}

	if err := client.Validate(); err != nil {
		return err
	}

	a.logger.Info("initialized",
		"host", client.BaseURL(),
		"preset", a.config.Tracking.Preset,
		"rate", a.config.Device.Rate,
		"web", a.config.Web.Enabled)
	return nil
}

// Run starts the control loop. Blocks until ctx is cancelled and every
// loop goroutine has returned.
func (a *App) Run(ctx context.Context) error {
	if a.ctrl == nil {
		return errors.New("app not initialized")
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.adapter.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.ctrl.Run(ctx)
	}()

	if a.webServer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.webServer.Run(ctx); err != nil {
				a.logger.Error("web server stopped", "error", err)
			}
		}()
	}

	if a.autoStart {
		a.ctrl.Start()
	}

	<-ctx.Done()
	a.wg.Wait()
	return nil
}

// Shutdown stops tracking and drains queued device commands, then closes
// the detector. Call it after the context passed to Run is cancelled.
func (a *App) Shutdown() {
	if a.ctrl != nil {
		a.ctrl.Pause()
	}
	if a.commands != nil {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if err := a.commands.Flush(ctx); err != nil && !errors.Is(err, channel.ErrClosed) {
			a.logger.Warn("command channel did not drain", "pending", a.commands.Len(), "error", err)
		}
		cancel()
		a.commands.Shutdown()
	}

	// No detection may start once the detector is closed.
	a.wg.Wait()
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.logger.Warn("detector close failed", "error", err)
		}
	}
	a.logger.Info("shutdown complete")
}

// Controller returns the tracking controller.
func (a *App) Controller() *tracking.Controller {
	return a.ctrl
}

// Client returns the device client.
func (a *App) Client() *device.Client {
	return a.client
}

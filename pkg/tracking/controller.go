// Package tracking turns face detections into pan and illumination
// commands for the turret.
//
// The Controller owns all tracking state. Detection results and fetch
// failures arrive through a bounded inbox and are handled one at a time
// by Run; every decision is a single critical section under one mutex.
// Device commands are queued, never performed inline.
package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-zakuhead/internal/log"
	"github.com/teslashibe/go-zakuhead/pkg/detection"
	"github.com/teslashibe/go-zakuhead/pkg/device"
)

// Device queues turret commands. Dispatch returns as soon as the command
// is queued. *device.Client implements it.
type Device interface {
	Dispatch(cmd device.Command) error
}

// StateUpdater receives a state snapshot after every cycle and lifecycle
// change (dashboard, telemetry hub).
type StateUpdater interface {
	UpdateTracking(State)
}

// State is a point-in-time copy of the controller state.
type State struct {
	Started         bool          `json:"started"`
	Stopping        bool          `json:"stopping"`
	Illuminated     bool          `json:"illuminated"`
	LastAngle       int           `json:"last_angle"`
	Direction       FaceDirection `json:"direction"`
	LastDetectionAt time.Time     `json:"last_detection_at"`
	FoundSince      *time.Time    `json:"found_since,omitempty"`
	LostSince       *time.Time    `json:"lost_since,omitempty"`
	FetchPending    bool          `json:"fetch_pending"`
	Cycles          uint64        `json:"cycles"`
}

type eventKind int

const (
	eventResult eventKind = iota
	eventFetchFailed
	eventRetry
)

type event struct {
	kind   eventKind
	result detection.Result
	err    error
}

// Controller is the tracking state machine.
type Controller struct {
	cfg    Config
	dev    Device
	logger *slog.Logger
	now    func() time.Time
	inbox  chan event

	mu              sync.Mutex
	started         bool
	stopping        bool
	illuminated     bool
	direction       FaceDirection
	lastDetectionAt time.Time
	foundSince      *time.Time
	lostSince       *time.Time
	fetchPending    bool
	heartbeatWindow int64
	cycles          uint64
	retry           *time.Timer
	updater         StateUpdater

	lastAngle atomic.Int32
	dropped   atomic.Uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates a controller. Tracking does not begin until Start.
func New(cfg Config, dev Device, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: device is required", ErrInvalidConfig)
	}

	c := &Controller{
		cfg:             cfg,
		dev:             dev,
		logger:          log.With("component", "tracking"),
		now:             time.Now,
		inbox:           make(chan event, cfg.InboxSize),
		stopping:        true,
		heartbeatWindow: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastDetectionAt = c.now()
	c.lastAngle.Store(int32(cfg.InitialAngle))
	return c, nil
}

// SetStateUpdater sets the snapshot consumer
func (c *Controller) SetStateUpdater(u StateUpdater) {
	c.mu.Lock()
	c.updater = u
	c.mu.Unlock()
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Deliver queues a detection result without blocking.
// It implements detection.Sink.
func (c *Controller) Deliver(res detection.Result) {
	c.enqueue(event{kind: eventResult, result: res})
}

// FetchFailed reports a fetch that produced no frame. The controller
// retries after FetchRetryDelay.
func (c *Controller) FetchFailed(err error) {
	c.enqueue(event{kind: eventFetchFailed, err: err})
}

func (c *Controller) enqueue(ev event) {
	select {
	case c.inbox <- ev:
	default:
		c.dropped.Add(1)
		c.logger.Warn("inbox full, event dropped", "kind", ev.kind)
	}
}

// Dropped returns how many events were discarded because the inbox was full.
func (c *Controller) Dropped() uint64 {
	return c.dropped.Load()
}

// Run handles inbox events until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	c.logger.Info("tracking loop started",
		"forced_resync", c.cfg.ForcedResync,
		"correction_step", c.cfg.CorrectionStep,
		"heartbeat", c.cfg.HeartbeatPeriod)

	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.retry != nil {
				c.retry.Stop()
				c.retry = nil
			}
			c.mu.Unlock()
			c.logger.Info("tracking loop stopped")
			return
		case ev := <-c.inbox:
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev event) {
	switch ev.kind {
	case eventResult:
		c.handleResult(ev.result)
	case eventFetchFailed:
		c.handleFetchFailed(ev.err)
	case eventRetry:
		c.handleRetry()
	}
}

// handleResult runs one tracking cycle.
func (c *Controller) handleResult(res detection.Result) {
	c.mu.Lock()
	c.fetchPending = false
	if res.Err != nil {
		c.logger.Debug("detection error, skipping decision", "seq", res.Seq, "error", res.Err)
	} else {
		c.decide(res.Detections)
	}
	c.cycles++
	c.requestFrameLocked()
	snap, updater := c.snapshotLocked(), c.updater
	c.mu.Unlock()

	publish(updater, snap)
}

func (c *Controller) handleFetchFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The fetch stays pending until the retry fires so a Resume in the
	// meantime cannot start a second loop.
	c.logger.Debug("fetch failed, retrying", "delay", c.cfg.FetchRetryDelay, "error", err)
	if c.retry != nil {
		c.retry.Stop()
	}
	c.retry = time.AfterFunc(c.cfg.FetchRetryDelay, func() {
		c.enqueue(event{kind: eventRetry})
	})
}

func (c *Controller) handleRetry() {
	c.mu.Lock()
	c.retry = nil
	c.fetchPending = false
	c.requestFrameLocked()
	c.mu.Unlock()
}

// decide applies the found/lost rules. Caller holds c.mu.
func (c *Controller) decide(dets []detection.Detection) {
	now := c.now()
	primary, ok := detection.SelectPrimary(dets)
	if ok {
		c.onFound(now, primary)
	} else {
		c.onLost(now)
	}
}

func (c *Controller) onFound(now time.Time, primary detection.Detection) {
	runStart := c.foundSince == nil
	if runStart {
		t := now
		c.foundSince = &t
		c.lostSince = nil
		c.heartbeatWindow = -1
		c.logger.Info("face found", "center", primary.Center(), "width", primary.Width)
	}

	c.illuminate(runStart && c.cfg.ForcedResync)

	center := primary.Center()
	switch {
	case center < c.cfg.CenterLow:
		c.direction = DirectionLeft
		c.move(device.Left, c.cfg.CorrectionStep, true)
	case center > c.cfg.CenterHigh:
		c.direction = DirectionRight
		c.move(device.Right, c.cfg.CorrectionStep, true)
	default:
		c.heartbeat(now)
	}

	c.lostSince = nil
	c.lastDetectionAt = now
}

// heartbeat emits a zero-degree move once per period while a centered
// face stays found, telling the device tracking is still active.
func (c *Controller) heartbeat(now time.Time) {
	if !c.cfg.ForcedResync || c.cfg.HeartbeatPeriod <= 0 || c.foundSince == nil {
		return
	}
	period := int64(c.cfg.HeartbeatPeriod / time.Second)
	phase := int64(c.cfg.HeartbeatPhase / time.Second)
	secs := int64(now.Sub(*c.foundSince) / time.Second)

	if secs%period != phase {
		return
	}
	window := secs / period
	if window == c.heartbeatWindow {
		return
	}
	c.heartbeatWindow = window
	c.move(device.Left, 0, true)
}

func (c *Controller) onLost(now time.Time) {
	lost := now.Sub(c.lastDetectionAt)
	if c.lostSince == nil && lost > c.cfg.LostGrace {
		t := now
		c.lostSince = &t
		c.foundSince = nil
		c.extinguish(c.cfg.ForcedResync)
		c.logger.Info("face lost", "after", lost)
	}

	angle := int(c.lastAngle.Load())
	if c.cfg.SweepMinAngle < angle && angle < c.cfg.SweepMaxAngle {
		c.move(c.direction.Heading(), c.cfg.SweepStep, false)
	}
}

func (c *Controller) illuminate(force bool) {
	if !force && c.illuminated {
		return
	}
	if err := c.dev.Dispatch(device.SetIllumination{Level: c.cfg.Brightness}); err != nil {
		c.logger.Warn("illumination command dropped", "error", err)
		return
	}
	c.illuminated = true
}

func (c *Controller) extinguish(force bool) {
	if !force && !c.illuminated {
		return
	}
	if err := c.dev.Dispatch(device.SetIllumination{Level: 0}); err != nil {
		c.logger.Warn("illumination command dropped", "error", err)
		return
	}
	c.illuminated = false
}

func (c *Controller) move(dir device.Direction, degrees uint, found bool) {
	if err := c.dev.Dispatch(device.Move{Direction: dir, Degrees: degrees, Found: found}); err != nil {
		c.logger.Warn("move command dropped", "dir", dir, "step", degrees, "error", err)
	}
}

// requestFrameLocked asks for the next frame unless paused or a fetch is
// already outstanding. Caller holds c.mu.
func (c *Controller) requestFrameLocked() {
	if !c.started || c.stopping || c.fetchPending {
		return
	}
	if err := c.dev.Dispatch(device.FetchFrame{}); err != nil {
		c.logger.Warn("frame request dropped", "error", err)
		return
	}
	c.fetchPending = true
}

// Start begins tracking and requests the first frame.
func (c *Controller) Start() {
	c.mu.Lock()
	c.started = true
	c.stopping = false
	c.requestFrameLocked()
	snap, updater := c.snapshotLocked(), c.updater
	c.mu.Unlock()

	c.logger.Info("tracking started")
	publish(updater, snap)
}

// Pause stops requesting frames. Queued commands still run and an
// in-flight cycle completes.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.stopping = true
	snap, updater := c.snapshotLocked(), c.updater
	c.mu.Unlock()

	c.logger.Info("tracking paused")
	publish(updater, snap)
}

// Resume continues a paused loop. It requests a frame only when started
// and no fetch is outstanding.
func (c *Controller) Resume() {
	c.mu.Lock()
	c.stopping = false
	if c.started {
		c.requestFrameLocked()
	}
	snap, updater := c.snapshotLocked(), c.updater
	c.mu.Unlock()

	c.logger.Info("tracking resumed")
	publish(updater, snap)
}

// Nudge moves the turret manually and makes dir the last known heading.
// A zero step uses NudgeStep.
func (c *Controller) Nudge(dir device.Direction, degrees uint) error {
	if !dir.Valid() {
		return fmt.Errorf("%w: %v", device.ErrInvalidDirection, dir)
	}
	if degrees == 0 {
		degrees = c.cfg.NudgeStep
	}

	c.mu.Lock()
	c.direction = directionOf(dir)
	err := c.dev.Dispatch(device.Move{Direction: dir, Degrees: degrees})
	snap, updater := c.snapshotLocked(), c.updater
	c.mu.Unlock()

	if err != nil {
		return err
	}
	publish(updater, snap)
	return nil
}

// SetIllumination sets the LED level manually. 0 is off.
func (c *Controller) SetIllumination(level uint) error {
	c.mu.Lock()
	err := c.dev.Dispatch(device.SetIllumination{Level: level})
	if err == nil {
		c.illuminated = level > 0
	}
	snap, updater := c.snapshotLocked(), c.updater
	c.mu.Unlock()

	if err != nil {
		return err
	}
	publish(updater, snap)
	return nil
}

// SetLastAngle records servo angle telemetry. Safe from any goroutine.
// The device client only reports angles inside device.MinAngle and
// device.MaxAngle, so the value fits an int32.
func (c *Controller) SetLastAngle(angle int) {
	c.lastAngle.Store(int32(angle))
}

// LastAngle returns the last reported servo angle.
func (c *Controller) LastAngle() int {
	return int(c.lastAngle.Load())
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	return State{
		Started:         c.started,
		Stopping:        c.stopping,
		Illuminated:     c.illuminated,
		LastAngle:       int(c.lastAngle.Load()),
		Direction:       c.direction,
		LastDetectionAt: c.lastDetectionAt,
		FoundSince:      copyTime(c.foundSince),
		LostSince:       copyTime(c.lostSince),
		FetchPending:    c.fetchPending,
		Cycles:          c.cycles,
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func publish(u StateUpdater, s State) {
	if u != nil {
		u.UpdateTracking(s)
	}
}

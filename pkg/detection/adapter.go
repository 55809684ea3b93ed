package detection

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-zakuhead/internal/log"
	"github.com/teslashibe/go-zakuhead/pkg/device"
)

// Sink receives detection results. *tracking.Controller implements it.
// Deliver must not block.
type Sink interface {
	Deliver(Result)
}

// Adapter runs the detector on fetched frames and forwards results.
// Frames arrive on the command channel worker; detection runs on the
// adapter's own goroutine so device I/O is never held up by inference.
type Adapter struct {
	detector Detector
	sink     Sink
	frames   chan device.Frame
	logger   *slog.Logger
	now      func() time.Time

	processed atomic.Uint64
	dropped   atomic.Uint64
}

// NewAdapter creates an adapter. Call Run to start processing.
func NewAdapter(detector Detector, sink Sink) *Adapter {
	return &Adapter{
		detector: detector,
		sink:     sink,
		frames:   make(chan device.Frame, 1),
		logger:   log.With("component", "detection"),
		now:      time.Now,
	}
}

// HandleFrame queues a frame for detection without blocking.
// If a frame is already waiting it is replaced; the newest frame wins.
func (a *Adapter) HandleFrame(f device.Frame) {
	for {
		select {
		case a.frames <- f:
			return
		default:
		}
		select {
		case old := <-a.frames:
			a.dropped.Add(1)
			a.logger.Debug("stale frame replaced", "seq", old.Seq, "by", f.Seq)
		default:
		}
	}
}

// Run processes frames until ctx is done. Once ctx is done no further
// frame reaches the detector, so the detector may be closed after Run
// returns.
func (a *Adapter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-a.frames:
			if ctx.Err() != nil {
				return
			}
			a.sink.Deliver(a.detect(f))
		}
	}
}

func (a *Adapter) detect(f device.Frame) Result {
	res := Result{Seq: f.Seq, At: a.now()}
	if f.Image == nil {
		res.Err = errNoImage
		return res
	}

	dets, err := a.detector.Detect(f.Image)
	a.processed.Add(1)
	if err != nil {
		a.logger.Warn("detection failed", "seq", f.Seq, "error", err)
		res.Err = err
		return res
	}
	res.Detections = dets
	return res
}

// Processed returns how many frames went through the detector.
func (a *Adapter) Processed() uint64 {
	return a.processed.Load()
}

// Dropped returns how many frames were replaced before detection.
func (a *Adapter) Dropped() uint64 {
	return a.dropped.Load()
}

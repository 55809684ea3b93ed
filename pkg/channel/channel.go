// Package channel provides the command channel: a single-worker FIFO that
// runs outbound device operations one at a time, in submission order.
//
// Any goroutine may submit. Submission never blocks; the queue is unbounded.
// Exactly one worker goroutine executes tasks, so a task (including any
// blocking network call it makes) always finishes before the next begins.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/teslashibe/go-zakuhead/internal/log"
)

var (
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = errors.New("channel: closed")

	// ErrNilTask is returned when submitting a nil task.
	ErrNilTask = errors.New("channel: nil task")
)

// Task is a unit of work run on the worker goroutine.
// ctx is cancelled only after the channel has drained and stopped.
type Task func(ctx context.Context)

// Stats holds lifetime counters for a channel.
type Stats struct {
	Submitted uint64
	Completed uint64
	Rejected  uint64
	Panicked  uint64
}

type job struct {
	seq  uint64
	name string
	task Task
}

// Channel is a strictly ordered, single-worker execution queue.
type Channel struct {
	name    string
	limiter *rate.Limiter
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queue  []job
	closed bool
	seq    uint64
	stats  Stats

	wake chan struct{}
	done chan struct{}
}

// Option configures a Channel.
type Option func(*Channel)

// WithRateLimit throttles how often tasks may start.
// r <= 0 or rate.Inf disables throttling.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Channel) {
		if r <= 0 || r == rate.Inf {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// New creates a channel and starts its worker.
func New(name string, opts ...Option) *Channel {
	c := &Channel{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.With("channel", name)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	go c.run()
	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.name
}

// Submit enqueues a task and returns immediately.
// It fails with ErrClosed once Shutdown has been called.
func (c *Channel) Submit(name string, task Task) error {
	if task == nil {
		return ErrNilTask
	}

	c.mu.Lock()
	if c.closed {
		c.stats.Rejected++
		c.mu.Unlock()
		return fmt.Errorf("%w: %s rejected %q", ErrClosed, c.name, name)
	}
	c.seq++
	c.queue = append(c.queue, job{seq: c.seq, name: name, task: task})
	c.stats.Submitted++
	c.mu.Unlock()

	c.signal()
	return nil
}

// Flush blocks until every task submitted before the call has run,
// or ctx is done.
func (c *Channel) Flush(ctx context.Context) error {
	reached := make(chan struct{})
	if err := c.Submit("flush", func(context.Context) { close(reached) }); err != nil {
		return err
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks. Tasks already queued still run, after
// which the worker exits. Safe to call more than once.
func (c *Channel) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := len(c.queue)
	c.mu.Unlock()

	c.logger.Debug("channel shutting down", "pending", pending)
	c.signal()
}

// Done is closed when the worker has drained the queue after Shutdown.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Len returns the number of queued tasks that have not started yet.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Stats returns a copy of the channel counters.
func (c *Channel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Channel) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// run is the single worker loop.
func (c *Channel) run() {
	defer func() {
		c.cancel()
		close(c.done)
	}()

	for {
		j, ok := c.next()
		if !ok {
			return
		}
		c.exec(j)
	}
}

// next pops the oldest job, waiting if the queue is empty.
// Returns false once the channel is closed and drained.
func (c *Channel) next() (job, bool) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			j := c.queue[0]
			c.queue[0] = job{}
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return j, true
		}
		closed := c.closed
		c.mu.Unlock()

		if closed {
			return job{}, false
		}
		<-c.wake
	}
}

func (c *Channel) exec(j job) {
	if c.limiter != nil {
		if err := c.limiter.Wait(c.ctx); err != nil {
			c.logger.Warn("rate limiter wait failed", "task", j.name, "seq", j.seq, "error", err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			c.stats.Panicked++
			c.mu.Unlock()
			c.logger.Error("task panicked", "task", j.name, "seq", j.seq, "panic", r)
		}
	}()

	j.task(c.ctx)

	c.mu.Lock()
	c.stats.Completed++
	c.mu.Unlock()
}

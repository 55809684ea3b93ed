// Package device is the HTTP client for the ZakuHead turret.
//
// Every operation is queued on a command channel. Dispatch and its helpers
// return immediately; Call and Capture wait for the worker to finish.
// The channel's single worker performs the blocking HTTP call, so commands
// reach the device one at a time and in the order they were issued.
package device

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-zakuhead/internal/httpc"
	"github.com/teslashibe/go-zakuhead/internal/log"
	"github.com/teslashibe/go-zakuhead/pkg/channel"
)

// DefaultHost is the turret's address on its own access point.
const DefaultHost = "http://192.168.5.18"

// DefaultMaxFrameBytes caps a single /capture download.
const DefaultMaxFrameBytes = 8 << 20

// Submitter queues tasks for ordered execution.
// *channel.Channel implements it.
type Submitter interface {
	Submit(name string, task channel.Task) error
}

// FrameDecoder turns a /capture body into an upright image.
// Implementations apply the 180° rotation for the inverted camera mount.
type FrameDecoder interface {
	Decode(data []byte) (image.Image, error)
}

// FrameDecoderFunc adapts a function to FrameDecoder.
type FrameDecoderFunc func(data []byte) (image.Image, error)

// Decode calls f(data).
func (f FrameDecoderFunc) Decode(data []byte) (image.Image, error) {
	return f(data)
}

// Frame is a decoded camera frame ready for detection.
type Frame struct {
	Seq        uint64
	Image      image.Image
	Bytes      int
	CapturedAt time.Time
}

// Config holds client settings.
type Config struct {
	Host          string        // Base URL, e.g. http://192.168.5.18
	Timeout       time.Duration // Per-request timeout; 0 disables it
	MaxReplyBytes int64         // Cap on command reply bodies
	MaxFrameBytes int64         // Cap on /capture bodies
}

// DefaultConfig returns the reference settings: fixed host, no timeout.
func DefaultConfig() Config {
	return Config{
		Host:          DefaultHost,
		MaxReplyBytes: DefaultMaxReplyBytes,
		MaxFrameBytes: DefaultMaxFrameBytes,
	}
}

// Client issues turret commands through a command channel.
type Client struct {
	baseURL  string
	http     *http.Client
	ch       Submitter
	decoder  FrameDecoder
	maxReply int64
	maxFrame int64
	logger   *slog.Logger

	mu            sync.RWMutex
	onFrame       func(Frame)
	onFetchFailed func(error)
	onAngle       func(int)
	onReply       func(Reply)

	frameSeq atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client. It fails with ErrMisconfigured when the host,
// channel or decoder is missing.
func New(cfg Config, ch Submitter, decoder FrameDecoder, opts ...Option) (*Client, error) {
	host := normalizeHost(cfg.Host)
	if host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrMisconfigured)
	}
	if ch == nil {
		return nil, fmt.Errorf("%w: command channel is required", ErrMisconfigured)
	}
	if decoder == nil {
		return nil, fmt.Errorf("%w: frame decoder is required", ErrMisconfigured)
	}

	c := &Client{
		baseURL:  host,
		http:     httpc.NewClient(cfg.Timeout),
		ch:       ch,
		decoder:  decoder,
		maxReply: cfg.MaxReplyBytes,
		maxFrame: cfg.MaxFrameBytes,
		logger:   log.With("component", "device", "host", host),
	}
	if c.maxReply <= 0 {
		c.maxReply = DefaultMaxReplyBytes
	}
	if c.maxFrame <= 0 {
		c.maxFrame = DefaultMaxFrameBytes
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// normalizeHost adds a scheme when missing and strips trailing slashes.
func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

// BaseURL returns the normalized device URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetFrameHandler sets the consumer of decoded frames.
func (c *Client) SetFrameHandler(fn func(Frame)) {
	c.mu.Lock()
	c.onFrame = fn
	c.mu.Unlock()
}

// SetFetchFailedHandler sets the callback for fetches that produced no frame.
func (c *Client) SetFetchFailedHandler(fn func(error)) {
	c.mu.Lock()
	c.onFetchFailed = fn
	c.mu.Unlock()
}

// SetAngleHandler sets the callback for angle telemetry.
func (c *Client) SetAngleHandler(fn func(int)) {
	c.mu.Lock()
	c.onAngle = fn
	c.mu.Unlock()
}

// SetReplyHandler sets an optional observer for every command reply.
func (c *Client) SetReplyHandler(fn func(Reply)) {
	c.mu.Lock()
	c.onReply = fn
	c.mu.Unlock()
}

// Validate checks that the control loop is fully wired.
// Running without a frame or angle consumer would silently lose feedback.
func (c *Client) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.onFrame == nil {
		return fmt.Errorf("%w: frame handler is not set", ErrMisconfigured)
	}
	if c.onAngle == nil {
		return fmt.Errorf("%w: angle handler is not set", ErrMisconfigured)
	}
	return nil
}

// Dispatch queues any Command.
func (c *Client) Dispatch(cmd Command) error {
	switch cmd := cmd.(type) {
	case FetchFrame:
		return c.FetchFrame()
	case Move:
		return c.Move(cmd.Direction, cmd.Degrees, cmd.Found)
	case SetIllumination:
		return c.SetIllumination(cmd.Level)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

// FetchFrame queues a /capture download.
func (c *Client) FetchFrame() error {
	return c.submit(FetchFrame{}.Name(), c.fetchFrame)
}

// Move queues a servo step.
func (c *Client) Move(dir Direction, degrees uint, found bool) error {
	if !dir.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidDirection, dir)
	}
	path := Move{Direction: dir, Degrees: degrees, Found: found}.Path()
	return c.submit(Move{}.Name(), func(ctx context.Context) {
		c.call(ctx, path)
	})
}

// SetIllumination queues an LED brightness change. Level 0 is off.
func (c *Client) SetIllumination(level uint) error {
	path := SetIllumination{Level: level}.Path()
	return c.submit(SetIllumination{}.Name(), func(ctx context.Context) {
		c.call(ctx, path)
	})
}

func (c *Client) submit(name string, task channel.Task) error {
	if err := c.ch.Submit(name, task); err != nil {
		c.logger.Warn("command dropped", "command", name, "error", err)
		return err
	}
	return nil
}

// fetchFrame runs on the channel worker.
func (c *Client) fetchFrame(ctx context.Context) {
	frame, err := c.capture(ctx)
	if err != nil {
		c.logger.Warn("frame fetch failed", "error", err)
		c.mu.RLock()
		onFailed := c.onFetchFailed
		c.mu.RUnlock()
		if onFailed != nil {
			onFailed(err)
		}
		return
	}

	c.mu.RLock()
	onFrame := c.onFrame
	c.mu.RUnlock()
	if onFrame != nil {
		onFrame(frame)
	}
}

// Capture queues a /capture download and waits for the decoded frame.
// Use FetchFrame inside the control loop; Capture is for one-off tools.
func (c *Client) Capture(ctx context.Context) (Frame, error) {
	var (
		frame Frame
		err   error
	)
	if qerr := c.await(ctx, FetchFrame{}.Name(), func() {
		frame, err = c.capture(ctx)
	}); qerr != nil {
		return Frame{}, qerr
	}
	return frame, err
}

func (c *Client) capture(ctx context.Context) (Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/capture", nil)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: build capture request: %v", ErrTransport, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: capture: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Frame{}, fmt.Errorf("%w: capture: status %d", ErrTransport, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxFrame))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: read capture: %v", ErrTransport, err)
	}

	img, err := c.decoder.Decode(data)
	if err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	return Frame{
		Seq:        c.frameSeq.Add(1),
		Image:      img,
		Bytes:      len(data),
		CapturedAt: time.Now(),
	}, nil
}

// Call queues a command and waits for its reply.
// Inside the control loop use Dispatch instead.
func (c *Client) Call(ctx context.Context, cmd Command) (Reply, error) {
	var path string
	switch cmd := cmd.(type) {
	case Move:
		if !cmd.Direction.Valid() {
			return Reply{}, fmt.Errorf("%w: %v", ErrInvalidDirection, cmd.Direction)
		}
		path = cmd.Path()
	case SetIllumination:
		path = cmd.Path()
	default:
		return Reply{}, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	var reply Reply
	if err := c.await(ctx, cmd.Name(), func() {
		reply = c.call(ctx, path)
	}); err != nil {
		return Reply{}, err
	}
	return reply, reply.Err
}

// await queues fn on the command channel and blocks until it has run or
// ctx is done.
func (c *Client) await(ctx context.Context, name string, fn func()) error {
	done := make(chan struct{})
	if err := c.submit(name, func(context.Context) {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call performs one command request. Failures are logged and reported on
// the Reply; they never propagate further.
func (c *Client) call(ctx context.Context, path string) (reply Reply) {
	start := time.Now()
	reply = Reply{ID: uuid.NewString(), Path: path}
	logger := c.logger.With("request_id", reply.ID, "path", path)

	defer func() {
		reply.Duration = time.Since(start)
		c.mu.RLock()
		onReply := c.onReply
		c.mu.RUnlock()
		if onReply != nil {
			onReply(reply)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		reply.Err = fmt.Errorf("%w: build request: %v", ErrTransport, err)
		logger.Warn("command failed", "error", reply.Err)
		return reply
	}

	resp, err := c.http.Do(req)
	if err != nil {
		reply.Err = fmt.Errorf("%w: %v", ErrTransport, err)
		logger.Warn("command failed", "error", reply.Err)
		return reply
	}
	defer resp.Body.Close()
	reply.Status = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxReply))
	if err != nil {
		reply.Err = fmt.Errorf("%w: read reply: %v", ErrTransport, err)
		logger.Warn("command failed", "error", reply.Err)
		return reply
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reply.Err = fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
		logger.Warn("command rejected", "status", resp.StatusCode)
		return reply
	}

	angle, err := ParseAngle(body)
	if err != nil {
		reply.Err = err
		logger.Debug("reply without telemetry", "error", err)
		return reply
	}
	reply.Angle = &angle

	c.mu.RLock()
	onAngle := c.onAngle
	c.mu.RUnlock()
	if onAngle != nil {
		onAngle(angle)
	}

	logger.Debug("command done", "status", resp.StatusCode, "angle", angle)
	return reply
}

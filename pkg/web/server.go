// Package web provides the turret dashboard API and live telemetry.
package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/teslashibe/go-zakuhead/internal/log"
	"github.com/teslashibe/go-zakuhead/pkg/device"
	"github.com/teslashibe/go-zakuhead/pkg/hub"
	"github.com/teslashibe/go-zakuhead/pkg/tracking"
)

// maxReplies is how many device replies the dashboard keeps.
const maxReplies = 200

// Controller is the tracking surface the dashboard drives.
// *tracking.Controller implements it.
type Controller interface {
	Start()
	Pause()
	Resume()
	Nudge(dir device.Direction, degrees uint) error
	SetIllumination(level uint) error
	Snapshot() tracking.State
}

// ReplyEntry is a device reply as shown on the dashboard
type ReplyEntry struct {
	Time       string  `json:"time"`
	ID         string  `json:"id"`
	Path       string  `json:"path"`
	Status     int     `json:"status,omitempty"`
	Angle      *int    `json:"angle,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// Server is the web dashboard server
type Server struct {
	app      *fiber.App
	port     string
	ctrl     Controller
	validate *validator.Validate
	logger   *slog.Logger

	// Reply buffer (last maxReplies entries)
	replies   []ReplyEntry
	repliesMu sync.RWMutex

	// Hub for websocket broadcast
	statusHub *hub.Hub
}

// NewServer creates a new web dashboard server
func NewServer(port string, ctrl Controller) *Server {
	s := &Server{
		port:      port,
		ctrl:      ctrl,
		validate:  validator.New(),
		logger:    log.With("component", "web"),
		replies:   make([]ReplyEntry, 0, maxReplies),
		statusHub: hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "ZakuHead Dashboard",
		DisableStartupMessage: true,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
	})

	app.Use(recover.New())
	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/replies", s.handleGetReplies)
	api.Post("/tracking/start", s.handleStart)
	api.Post("/tracking/pause", s.handlePause)
	api.Post("/tracking/resume", s.handleResume)
	api.Post("/move/:dir", s.handleMove)
	api.Post("/led/:level", s.handleLED)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Run serves the dashboard until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web dashboard listening", "url", "http://localhost:"+s.port)
		errCh <- s.app.Listen(":" + s.port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

// UpdateTracking broadcasts a tracking snapshot.
// It implements tracking.StateUpdater.
func (s *Server) UpdateTracking(state tracking.State) {
	if err := s.statusHub.Publish("state", state); err != nil {
		s.logger.Warn("state broadcast failed", "error", err)
	}
}

// AddReply records a device reply and broadcasts it to clients
func (s *Server) AddReply(r device.Reply) {
	entry := ReplyEntry{
		Time:       time.Now().Format("15:04:05.000"),
		ID:         r.ID,
		Path:       r.Path,
		Status:     r.Status,
		Angle:      r.Angle,
		DurationMS: float64(r.Duration) / float64(time.Millisecond),
	}
	if r.Err != nil {
		entry.Error = r.Err.Error()
	}

	s.repliesMu.Lock()
	s.replies = append(s.replies, entry)
	if len(s.replies) > maxReplies {
		s.replies = s.replies[1:]
	}
	s.repliesMu.Unlock()

	if err := s.statusHub.Publish("reply", entry); err != nil {
		s.logger.Warn("reply broadcast failed", "error", err)
	}
	if r.Angle != nil {
		if err := s.statusHub.Publish("angle", *r.Angle); err != nil {
			s.logger.Warn("angle broadcast failed", "error", err)
		}
	}
}

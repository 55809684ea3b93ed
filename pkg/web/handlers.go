package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-zakuhead/pkg/device"
	"github.com/teslashibe/go-zakuhead/pkg/hub"
	"github.com/teslashibe/go-zakuhead/pkg/tracking"
)

// StatusResponse is returned by GET /api/status
type StatusResponse struct {
	Tracking tracking.State `json:"tracking"`
	Clients  int            `json:"clients"`
}

// MoveRequest is a manual pan step
type MoveRequest struct {
	Dir  string `query:"-" validate:"required,oneof=left right"`
	Step uint   `query:"step" validate:"lte=180"`
}

// LEDRequest is a manual illumination change
type LEDRequest struct {
	Level int `validate:"gte=0,lte=255"`
}

// handleStatus returns the current tracking state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Tracking: s.ctrl.Snapshot(),
		Clients:  s.statusHub.ClientCount(),
	})
}

// handleGetReplies returns recent device replies
func (s *Server) handleGetReplies(c *fiber.Ctx) error {
	s.repliesMu.RLock()
	defer s.repliesMu.RUnlock()
	return c.JSON(s.replies)
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	s.ctrl.Start()
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handlePause(c *fiber.Ctx) error {
	s.ctrl.Pause()
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleResume(c *fiber.Ctx) error {
	s.ctrl.Resume()
	return c.JSON(s.ctrl.Snapshot())
}

// handleMove nudges the turret left or right
func (s *Server) handleMove(c *fiber.Ctx) error {
	var req MoveRequest
	if err := c.QueryParser(&req); err != nil {
		return s.validationError(c, err)
	}
	req.Dir = c.Params("dir")
	if err := s.validate.Struct(req); err != nil {
		return s.validationError(c, err)
	}

	dir, err := device.ParseDirection(req.Dir)
	if err != nil {
		return s.validationError(c, err)
	}
	if err := s.ctrl.Nudge(dir, req.Step); err != nil {
		return s.unavailable(c, err)
	}
	return c.JSON(s.ctrl.Snapshot())
}

// handleLED sets the LED level; 0 turns it off
func (s *Server) handleLED(c *fiber.Ctx) error {
	level, err := c.ParamsInt("level")
	if err != nil {
		return s.validationError(c, err)
	}
	req := LEDRequest{Level: level}
	if err := s.validate.Struct(req); err != nil {
		return s.validationError(c, err)
	}

	if err := s.ctrl.SetIllumination(uint(req.Level)); err != nil {
		return s.unavailable(c, err)
	}
	return c.JSON(s.ctrl.Snapshot())
}

// handleStatusWS streams telemetry events
func (s *Server) handleStatusWS(c *websocket.Conn) {
	hub.NewClient(s.statusHub, c).Run()
}

func (s *Server) validationError(c *fiber.Ctx, err error) error {
	s.logger.Warn("validation failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (s *Server) unavailable(c *fiber.Ctx, err error) error {
	s.logger.Warn("command rejected", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": err.Error(),
		"code":  "DEVICE_UNAVAILABLE",
	})
}

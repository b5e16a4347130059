// Package mgmt serves the read-only management API for inspecting
// tracked tasks.
package mgmt

import (
	"crypto/subtle"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/scrum-maestro/agent/internal/task"
)

// TaskReader is the read-only view the API exposes.
type TaskReader interface {
	GetTask(taskID string) (*task.Task, error)
	ListTasks() ([]*task.Task, error)
}

// ServerConfig holds configuration for the management API server.
type ServerConfig struct {
	ListenAddr  string
	APIKey      string // empty disables authentication
	Environment string
	Version     string
}

// Server is the management API Fiber application.
type Server struct {
	app       *fiber.App
	tasks     TaskReader
	config    ServerConfig
	logger    zerolog.Logger
	startTime time.Time
}

// NewServer creates and configures the management API server.
func NewServer(cfg ServerConfig, tasks TaskReader, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:       app,
		tasks:     tasks,
		config:    cfg,
		logger:    logger.With().Str("component", "mgmt").Logger(),
		startTime: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New())

	if s.config.APIKey != "" {
		s.app.Use(func(c *fiber.Ctx) error {
			if c.Path() == "/healthz" {
				return c.Next()
			}
			key := c.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.config.APIKey)) != 1 {
				return problemResponse(c, fiber.StatusUnauthorized, "unauthorized", "missing or invalid API key")
			}
			return c.Next()
		})
	}

	s.app.Use(func(c *fiber.Ctx) error {
		if c.Path() == "/healthz" {
			return c.Next()
		}
		s.logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Msg("mgmt api request")
		return c.Next()
	})
}

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", s.liveness)

	v1 := s.app.Group("/api/v1")
	v1.Get("/tasks", s.listTasks)
	v1.Get("/tasks/:id", s.getTask)
	v1.Get("/info", s.info)
}

// Listen blocks serving the API until Shutdown is called.
func (s *Server) Listen() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("management API listening")
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func problemResponse(c *fiber.Ctx, status int, code, detail string) error {
	return c.Status(status).JSON(fiber.Map{
		"code":   code,
		"detail": detail,
	})
}

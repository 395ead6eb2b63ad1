// Package server exposes the health check, Prometheus metrics and a
// read-only task listing over HTTP.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nibzard/kanban-go/internal/logging"
	"github.com/nibzard/kanban-go/internal/metrics"
	"github.com/nibzard/kanban-go/internal/store"
	"github.com/nibzard/kanban-go/internal/task"
)

// Options configures a Server.
type Options struct {
	Version     string
	Environment string
	Store       *store.Store
	Metrics     *metrics.Recorder
	Logger      *log.Logger

	// Probe and Now are replaced in tests.
	Probe MemoryProbe
	Now   func() time.Time
}

// Server is the fiber application.
type Server struct {
	app     *fiber.App
	opts    Options
	started time.Time
}

// New builds the app and registers its routes.
func New(opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "0.0.1"
	}
	if opts.Environment == "" {
		opts.Environment = "development"
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Probe == nil {
		opts.Probe = RuntimeMemory
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{opts: opts, started: opts.Now()}
	s.app = fiber.New(fiber.Config{
		AppName:               "kanban",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api")
	api.Get("/health", s.health)
	if s.opts.Store != nil {
		api.Get("/tasks", s.listTasks)
		api.Get("/tasks/:id", s.getTask)
	}
	s.app.Get("/metrics", adaptor.HTTPHandler(s.opts.Metrics.Handler()))
}

// App returns the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.opts.Logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.opts.Logger.Info("http server shutting down")
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.opts.Logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func validationResponse(c *fiber.Ctx, err error) error {
	var ve *task.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"issues": ve.Issues,
		})
	}
	return err
}

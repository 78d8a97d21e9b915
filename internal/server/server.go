// Package server provides the HTTP API for syncd.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xiaethan/sync/internal/ics"
	"github.com/xiaethan/sync/internal/orchestrator"
	"github.com/xiaethan/sync/internal/session"
)

// Scheduler is the orchestrator surface the server needs.
type Scheduler interface {
	Start(scope, title string) (*session.Session, error)
	Status(scope string) (orchestrator.Status, error)
	Stop(ctx context.Context, scope string) (orchestrator.FinalResult, error)
	Notify(scope string)
}

// Server provides HTTP endpoints for session control.
type Server struct {
	echo      *echo.Echo
	scheduler Scheduler
	logger    *zap.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(scheduler Scheduler, logger *zap.Logger, cfg *Config) (*Server, error) {
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8790}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		scheduler: scheduler,
		logger:    logger,
		config:    cfg,
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/sessions", s.handleStart)
	v1.GET("/sessions/:scope", s.handleStatus)
	v1.POST("/sessions/:scope/stop", s.handleStop)
	v1.POST("/sessions/:scope/notify", s.handleNotify)
	v1.GET("/sessions/:scope/export", s.handleExport)
}

// StartRequest is the request body for POST /api/v1/sessions.
type StartRequest struct {
	Scope string `json:"scope"`
	Title string `json:"title,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStart(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Scope == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "scope field is required")
	}

	sess, err := s.scheduler.Start(req.Scope, req.Title)
	if err != nil {
		if errors.Is(err, session.ErrActiveSession) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, sess)
}

func (s *Server) handleStatus(c echo.Context) error {
	status, err := s.scheduler.Status(c.Param("scope"))
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleStop(c echo.Context) error {
	result, err := s.scheduler.Stop(c.Request().Context(), c.Param("scope"))
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleNotify(c echo.Context) error {
	s.scheduler.Notify(c.Param("scope"))
	return c.NoContent(http.StatusAccepted)
}

// handleExport renders the top consensus window as an iCalendar file.
// The date query parameter (YYYY-MM-DD) places the window on a day;
// it defaults to today.
func (s *Server) handleExport(c echo.Context) error {
	status, err := s.scheduler.Status(c.Param("scope"))
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if status.Result == nil || len(status.Result.Windows) == 0 {
		return echo.NewHTTPError(http.StatusConflict, "no consensus window to export")
	}

	date := time.Now().UTC()
	if d := c.QueryParam("date"); d != "" {
		date, err = time.Parse("2006-01-02", d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
	}

	title := c.QueryParam("title")
	if title == "" {
		title = status.Title
	}

	payload, err := ics.Render(ics.Event{
		Title:  title,
		Date:   date,
		Window: status.Result.Windows[0],
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="consensus.ics"`)
	return c.Blob(http.StatusOK, "text/calendar", []byte(payload))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

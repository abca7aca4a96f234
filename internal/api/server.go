// Package api serves the orchestration engine over HTTP and WebSocket.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/venke07/conductor/internal/actor"
	"github.com/venke07/conductor/internal/capability"
	"github.com/venke07/conductor/internal/orchestrator"
	"github.com/venke07/conductor/internal/planner"
	"github.com/venke07/conductor/internal/state"
	"github.com/venke07/conductor/internal/state/store"
	"github.com/venke07/conductor/internal/tools"
	"github.com/venke07/conductor/internal/version"
	"go.uber.org/zap"
)

// RunReader reads the run archive.
type RunReader interface {
	GetRun(ctx context.Context, id string) (store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

type Server struct {
	echo     *echo.Echo
	engine   *orchestrator.Engine
	tools    *tools.Interpreter
	runs     RunReader
	gatherer prometheus.Gatherer
	logger   *zap.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration
}

type Option func(*Server)

// WithTools enables /v1/tools and /v1/tools/execute.
func WithTools(in *tools.Interpreter) Option {
	return func(s *Server) { s.tools = in }
}

// WithRuns enables /v1/runs.
func WithRuns(r RunReader) Option {
	return func(s *Server) { s.runs = r }
}

// WithGatherer serves g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithTimeouts sets the http.Server read and write timeouts. Zero disables
// a timeout.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func NewServer(engine *orchestrator.Engine, opts ...Option) *Server {
	s := &Server{engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = s.readTimeout
	e.Server.WriteTimeout = s.writeTimeout
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if who := req.Header.Get(actor.Header); who != "" {
				c.SetRequest(req.WithContext(actor.WithActor(req.Context(), who)))
			}
			return next(c)
		}
	})
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			s.logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.String("actor", actor.Actor(c.Request().Context())),
			)
			return err
		}
	})
	s.echo = e
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.echo.Group("/v1")
	v1.GET("/agents", s.handleAgents)
	v1.GET("/capabilities", s.handleCapabilities)
	v1.POST("/classify", s.handleClassify)
	v1.POST("/plan", s.handlePlan)

	v1.POST("/workflows/sequential", s.handleSequential)
	v1.POST("/workflows/parallel", s.handleParallel)
	v1.POST("/workflows/autonomous", s.handleAutonomous)
	v1.GET("/workflows/stream", s.handleStream)

	v1.GET("/sessions/:id", s.handleGetSession)
	v1.DELETE("/sessions/:id", s.handleClearSession)

	v1.GET("/tools", s.handleTools)
	v1.POST("/tools/execute", s.handleExecuteTools)

	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	s.logger.Info("starting http server", zap.String("addr", addr))
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyPrompt),
		errors.Is(err, orchestrator.ErrEmptyWorkflow),
		errors.Is(err, orchestrator.ErrUnknownAgent):
		return http.StatusBadRequest
	case errors.Is(err, planner.ErrEmptyPlan), errors.Is(err, capability.ErrCyclicDependency):
		return http.StatusUnprocessableEntity
	case errors.Is(err, orchestrator.ErrAllStepsFailed):
		return http.StatusBadGateway
	case errors.Is(err, state.ErrSessionNotFound), errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := statusFor(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, errorResponse{Error: msg})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Version: version.Get().Version})
}

func queryLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
	}
	return n, nil
}

// Package api provides the HTTP interface for ingesting repositories and
// answering questions about them.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bull/codeqa/internal/ingest"
	"github.com/bull/codeqa/internal/rag"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingester stores a repository in the vector store.
type Ingester interface {
	Ingest(ctx context.Context, repoURL string, mode ingest.EmbeddingMode) (*ingest.Result, error)
}

// Answerer answers a question about an ingested repository.
type Answerer interface {
	Answer(ctx context.Context, query, repoURL string) (*rag.Answer, error)
}

// HealthChecker reports vector store connectivity.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config holds server dependencies. Health, Gatherer and MCP are optional;
// their routes are only registered when set.
type Config struct {
	Ingester Ingester
	Answerer Answerer
	Health   HealthChecker
	Gatherer prometheus.Gatherer
	// Registerer receives the HTTP request metrics. Nil disables them.
	Registerer prometheus.Registerer
	MCP        http.Handler
	Logger     *slog.Logger
}

// Server serves the codeqa HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	ingester Ingester
	answerer Answerer
	health   HealthChecker
	logger   *slog.Logger
}

// NewServer creates the echo server and registers routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Ingester == nil {
		return nil, errors.New("ingester is required")
	}
	if cfg.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(newHTTPMetrics(cfg.Registerer).middleware)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Info("HTTP request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return nil
		}
	})

	s := &Server{
		echo:     e,
		ingester: cfg.Ingester,
		answerer: cfg.Answerer,
		health:   cfg.Health,
		logger:   logger,
	}
	s.registerRoutes(cfg)

	return s, nil
}

func (s *Server) registerRoutes(cfg Config) {
	s.echo.GET("/healthcheck", s.handleHealthcheck)
	s.echo.POST("/ingest", s.handleIngest)
	s.echo.POST("/generate", s.handleGenerate)

	if s.health != nil {
		s.echo.GET("/readyz", s.handleReady)
	}
	if cfg.Gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	if cfg.MCP != nil {
		s.echo.Any("/mcp", echo.WrapHandler(cfg.MCP))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting HTTP server", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

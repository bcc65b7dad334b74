// Package http exposes the retriever over a JSON API.
package http

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

	"github.com/fyrsmithlabs/promorag/internal/llm"
	"github.com/fyrsmithlabs/promorag/internal/pipeline"
	"github.com/fyrsmithlabs/promorag/internal/query"
	"github.com/fyrsmithlabs/promorag/internal/reranker"
)

// Retriever is the part of pipeline.Retriever served over HTTP.
type Retriever interface {
	Ask(ctx context.Context, question string, history ...llm.Turn) (*pipeline.Answer, error)
	Search(ctx context.Context, q string) ([]reranker.Candidate, query.Classification, error)
	Classify(q string) query.Classification
}

// Server provides HTTP endpoints for promorag.
type Server struct {
	echo      *echo.Echo
	retriever Retriever
	logger    *zap.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// RequestTimeout bounds each API request. Zero disables the limit.
	RequestTimeout time.Duration
}

// NewServer creates a new HTTP server.
func NewServer(retriever Retriever, logger *zap.Logger, cfg *Config) (*Server, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(requestContext(logger))

	s := &Server{
		echo:      e,
		retriever: retriever,
		logger:    logger,
		config:    cfg,
	}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	if s.config.RequestTimeout > 0 {
		v1.Use(requestTimeout(s.config.RequestTimeout))
	}
	v1.POST("/ask", s.handleAsk)
	v1.POST("/classify", s.handleClassify)
	v1.POST("/search", s.handleSearch)
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

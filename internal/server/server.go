// Package server exposes retrieval, decomposition, filtering and answering over HTTP
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/entailrag/internal/claim"
	"github.com/ppiankov/entailrag/internal/filter"
	"github.com/ppiankov/entailrag/internal/metrics"
	"github.com/ppiankov/entailrag/internal/pipeline"
)

// Deps are the collaborators the handlers serve
type Deps struct {
	Retriever  pipeline.Retriever
	Filter     *filter.Filter
	Decomposer *claim.Decomposer
	Pipelines  []pipeline.Pipeline // First entry is the default for /api/answer
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Options holds request defaults
type Options struct {
	TopK      int
	Threshold float64 // Used when a filter request omits one; 0 is a valid threshold
}

// Server wires the gin router to the pipelines
type Server struct {
	deps      Deps
	opts      Options
	pipelines map[string]pipeline.Pipeline
	router    *gin.Engine
}

// New creates a server and registers its routes
func New(deps Deps, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Decomposer == nil {
		deps.Decomposer = claim.NewDecomposer()
	}
	if opts.TopK <= 0 {
		opts.TopK = pipeline.DefaultTopK
	}

	s := &Server{
		deps:      deps,
		opts:      opts,
		pipelines: make(map[string]pipeline.Pipeline, len(deps.Pipelines)),
	}
	for _, p := range deps.Pipelines {
		s.pipelines[p.Name()] = p
	}

	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.registerRoutes()

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	api.POST("/retrieve", s.handleRetrieve)
	api.POST("/decompose", s.handleDecompose)
	api.POST("/filter", s.handleFilter)
	api.POST("/answer", s.handleAnswer)
	api.POST("/analyze", s.handleAnalyze)

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.deps.Logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

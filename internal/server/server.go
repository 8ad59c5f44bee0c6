// Package server exposes flows over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/PipeOpsHQ/agent-kickoff/llm"
	"github.com/PipeOpsHQ/agent-kickoff/observe"
	"github.com/PipeOpsHQ/agent-kickoff/workflow"
)

const (
	AppTitle       = "Agent Kickoff API"
	AppDescription = "API for the agent kickoff application"
	AppVersion     = "1.0.0"
)

type Config struct {
	Addr        string
	StepTimeout time.Duration
	CORSOrigins []string
	Version     string
}

type Server struct {
	cfg      Config
	provider llm.Provider
	sink     observe.Sink
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	runOpts  []workflow.Option

	engine    *gin.Engine
	handler   http.Handler
	http      *http.Server
	closeOnce sync.Once
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSink receives run events for every request.
func WithSink(sink observe.Sink) Option {
	return func(s *Server) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithMetrics serves the gatherer at /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithRunOptions appends options to every runner the server builds.
func WithRunOptions(opts ...workflow.Option) Option {
	return func(s *Server) { s.runOpts = append(s.runOpts, opts...) }
}

func New(cfg Config, provider llm.Provider, opts ...Option) (*Server, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Version == "" {
		cfg.Version = AppVersion
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	s := &Server{
		cfg:      cfg,
		provider: provider,
		sink:     observe.NoopSink{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	corsCfg, allowAll := corsConfig(cfg.CORSOrigins)
	if allowAll {
		s.engine.Use(echoPreflight(corsCfg))
	}
	s.engine.Use(cors.New(corsCfg))
	s.engine.Use(accessLog(s.logger))
	s.registerRoutes()

	s.handler = otelhttp.NewHandler(s.engine, "kickoff.http")
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/kickoff", s.handleKickoff)
	s.engine.GET("/kickoff/:flow", s.handleKickoffFlow)

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/flows", s.handleFlows)
		v1.GET("/flows/:flow", s.handleFlow)
	}

	if s.gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

// corsConfig builds the CORS policy. allowAll reports whether origins
// contains "*", in which case any origin is echoed with credentials.
func corsConfig(origins []string) (cfg cors.Config, allowAll bool) {
	cfg = cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowOriginFunc = func(string) bool { return true }
			return cfg, true
		}
	}
	cfg.AllowOrigins = origins
	return cfg, false
}

// echoPreflight answers preflights from any origin, echoing the requested
// headers. A literal "*" in Access-Control-Allow-Headers is not a wildcard
// once credentials are allowed.
func echoPreflight(cfg cors.Config) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowMethods, ",")
	maxAge := strconv.FormatInt(int64(cfg.MaxAge/time.Second), 10)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if c.Request.Method != http.MethodOptions || origin == "" || c.GetHeader("Access-Control-Request-Method") == "" {
			c.Next()
			return
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", methods)
		if requested := c.GetHeader("Access-Control-Request-Headers"); requested != "" {
			h.Set("Access-Control-Allow-Headers", requested)
		}
		h.Set("Access-Control-Max-Age", maxAge)
		h.Add("Vary", "Origin")
		h.Add("Vary", "Access-Control-Request-Method")
		h.Add("Vary", "Access-Control-Request-Headers")
		c.AbortWithStatus(http.StatusNoContent)
	}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server is nil")
	}
	errCh := make(chan error, 1)
	go func() {
		err := s.http.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	s.logger.Info("server listening", "addr", s.cfg.Addr)

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, stopping")
		if err := s.Close(); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	var outErr error
	s.closeOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		outErr = s.http.Shutdown(shutdownCtx)
		if outErr != nil {
			s.logger.Warn("server shutdown failed", "error", outErr)
		} else {
			s.logger.Info("server stopped")
		}
	})
	return outErr
}

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/asrkit/logger"
	"github.com/kbukum/asrkit/observability"
	"github.com/kbukum/asrkit/server/endpoint"
	"github.com/kbukum/asrkit/server/middleware"
)

// Route paths.
const (
	PathTranscriptions = "/v1/transcriptions"
	PathAudioInfo      = "/v1/audio-info"
	PathHealth         = "/health"
	PathAlive          = "/alive"
	PathReady          = "/ready"
	PathInfo           = "/info"
	PathRuntime        = "/debug/runtime"
)

// Server is the HTTP server: a Gin engine behind a net/http middleware
// chain, served over HTTP/1.1 and h2c.
type Server struct {
	httpServer  *http.Server
	engine      *gin.Engine
	h2s         *http2.Server
	middlewares []middleware.Middleware
	config      Config
	log         *logger.Logger
}

// New creates a Server. Call ApplyMiddleware and register routes before
// Start.
func New(cfg Config, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if log.DebugEnabled() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
		},
		engine: engine,
		h2s: &http2.Server{
			MaxConcurrentStreams: 250,
			IdleTimeout:          time.Duration(cfg.IdleTimeout) * time.Second,
		},
		config: cfg,
		log:    log.WithComponent("server"),
	}
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Use appends middleware to the chain around every route.
func (s *Server) Use(mws ...middleware.Middleware) {
	s.middlewares = append(s.middlewares, mws...)
}

// ApplyMiddleware installs the standard chain: recovery, request ID, CORS,
// per-client rate limit, body size limit, request logging and metrics.
func (s *Server) ApplyMiddleware(metrics *observability.Metrics) {
	s.Use(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.CORS(&s.config.CORS),
		middleware.RateLimit(s.config.RateLimit),
		middleware.BodySizeLimit(s.config.MaxBodySize),
		middleware.RequestLogger(s.log),
		middleware.Metrics(metrics, PathTranscriptions, PathAudioInfo, PathHealth, PathReady),
	)
}

// RegisterSystemEndpoints registers health, liveness, readiness, info and
// runtime endpoints.
func (s *Server) RegisterSystemEndpoints(serviceName string, settings map[string]any, checkers ...observability.HealthChecker) {
	s.engine.GET(PathHealth, endpoint.Health(serviceName, checkers...))
	s.engine.GET(PathAlive, endpoint.Liveness(serviceName))
	s.engine.GET(PathReady, endpoint.Readiness(serviceName, checkers...))
	s.engine.GET(PathInfo, endpoint.Info(serviceName, settings))
	s.engine.GET(PathRuntime, endpoint.Runtime())
}

// RegisterTranscription registers the transcription and audio-info routes.
func (s *Server) RegisterTranscription(t endpoint.Transcriber, maxChunkDuration float64) {
	opts := endpoint.TranscriptionOptions{
		UploadDir:        s.config.UploadDir,
		AllowLocalPaths:  s.config.AllowLocalPaths,
		MaxChunkDuration: maxChunkDuration,
	}
	s.engine.POST(PathTranscriptions, endpoint.Transcriptions(t, opts))
	s.engine.POST(PathAudioInfo, endpoint.AudioInfo(t, opts))
	s.engine.GET(PathAudioInfo, endpoint.AudioInfo(t, opts))
}

// Handler returns the full handler: middleware chain, Gin and h2c.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(middleware.Chain(s.middlewares...)(s.engine), s.h2s)
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.httpServer.Handler = s.Handler()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop gracefully shuts down the server, waiting up to 30 seconds for
// in-flight transcriptions.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("server shutdown error", logger.Fields(logger.FieldError, err.Error()))
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down")
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

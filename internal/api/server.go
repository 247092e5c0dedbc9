// Package api provides the REST management API for HydraHost.
// It exposes endpoints for health checks, statistics, server lifecycle
// control and DNS record management via a Gin-based HTTP server.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jroosing/hydrahost/internal/api/handlers"
	"github.com/jroosing/hydrahost/internal/api/middleware"
	"github.com/jroosing/hydrahost/internal/config"
	"github.com/jroosing/hydrahost/internal/metrics"
)

// Server is the management REST API server.
//
// Security note: do not expose the API to untrusted networks without an API key.
type Server struct {
	cfg        config.APIConfig
	logger     *slog.Logger
	engine     *gin.Engine
	handler    *handlers.Handler
	httpServer *http.Server
}

// New builds the API over servers. registry may be nil, in which case
// /metrics is not mounted.
func New(cfg config.APIConfig, servers handlers.ServerDirectory, registry *metrics.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.SlogRequestLogger(logger, "/metrics", "/api/v1/health"))

	h := handlers.New(servers, logger)
	RegisterRoutes(engine, h, cfg, registry)
	if cfg.StaticDir != "" {
		MountStatic(engine, cfg.StaticDir, logger)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{cfg: cfg, logger: logger, engine: engine, handler: h, httpServer: httpServer}
}

func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the endpoint handlers, e.g. to attach the DNS server.
func (s *Server) Handler() *handlers.Handler {
	return s.handler
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("management API listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe binds the configured address and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Package server wires the analytics engine to its HTTP, gRPC health and MCP surfaces.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/RishithDsouza/Hackethon/internal/analytics"
	grpcapi "github.com/RishithDsouza/Hackethon/internal/api/grpc"
	"github.com/RishithDsouza/Hackethon/internal/api/mcptools"
	"github.com/RishithDsouza/Hackethon/internal/api/middleware"
	"github.com/RishithDsouza/Hackethon/internal/api/rest"
	"github.com/RishithDsouza/Hackethon/internal/config"
)

// Server owns the listeners of one running service.
type Server struct {
	cfg     *config.Config
	engine  *analytics.Engine
	log     *zap.Logger
	http    *http.Server
	grpc    *grpcapi.Server
	mcp     *mcptools.Server
	handler http.Handler
	errs    chan error
}

// New builds the service around engine. Nothing listens until Start.
func New(cfg *config.Config, engine *analytics.Engine, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		engine: engine,
		log:    log,
		errs:   make(chan error, 2),
	}
	if cfg.MCP.Enabled {
		s.mcp = mcptools.NewServer(engine, version, log.Named("mcp"))
	}
	if cfg.Server.GRPCPort != 0 {
		s.grpc = grpcapi.NewServer(cfg.Server.Host, cfg.Server.GRPCPort, log.Named("grpc"))
	}
	s.handler = s.buildHandler()
	s.http = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port)),
		Handler:      s.handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the full HTTP handler chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Errors reports listener failures after Start.
func (s *Server) Errors() <-chan error {
	return s.errs
}

func (s *Server) buildHandler() http.Handler {
	router := mux.NewRouter()

	if s.mcp != nil {
		router.PathPrefix(s.cfg.MCP.Path).Handler(s.mcp.Handler(s.cfg.MCP.Path))
	}
	rest.SetupRoutes(router, rest.NewHandler(s.engine, s.log.Named("rest")))

	// Route-level middleware sees the matched template
	router.Use(middleware.AccessLog(s.log.Named("http")))
	router.Use(middleware.Recovery(s.log))

	limiter := middleware.NewRateLimiter(s.cfg.Server.RateLimitPerSec, s.cfg.Server.RateLimitBurst).
		TrustProxyHeaders(s.cfg.Server.TrustProxyHeaders)
	var h http.Handler = router
	h = limiter.Middleware(h)
	h = middleware.RequestID(h)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader, "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposedHeaders: []string{middleware.RequestIDHeader, middleware.TraceIDHeader, "Retry-After"},
	})
	h = c.Handler(h)

	return middleware.Tracing(h)
}

// Start opens the listeners and serves in the background. The gRPC health status turns
// SERVING once both listeners are up.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}

	if s.grpc != nil {
		if err := s.grpc.Start(ctx); err != nil {
			_ = lis.Close()
			return err
		}
	}

	go func() {
		if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server failed", zap.Error(err))
			s.errs <- err
		}
	}()

	if s.grpc != nil {
		s.grpc.SetReady(true)
	}

	fields := []zap.Field{zap.String("address", lis.Addr().String())}
	if s.mcp != nil {
		fields = append(fields, zap.String("mcp_path", s.cfg.MCP.Path))
	}
	s.log.Info("HTTP server listening", fields...)
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.grpc != nil {
		s.grpc.Stop()
	}
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

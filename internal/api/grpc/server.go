// Package grpc serves the standard gRPC health protocol so orchestrators can probe the
// service without going through HTTP.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "enrolpulse.Analytics"

// Server represents the gRPC health server
type Server struct {
	server       *grpc.Server
	healthServer *health.Server
	host         string
	port         int
	log          *zap.Logger
}

// NewServer creates a new gRPC server instance. Every service reports NOT_SERVING until
// SetReady(true) is called.
func NewServer(host string, port int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(1024 * 1024),
		grpc.ConnectionTimeout(30 * time.Second),
	}

	s := grpc.NewServer(opts...)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	reflection.Register(s)

	return &Server{
		server:       s,
		healthServer: healthServer,
		host:         host,
		port:         port,
		log:          log,
	}
}

// SetReady flips the health status once the dataset snapshot is installed.
func (s *Server) SetReady(ready bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if ready {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.healthServer.SetServingStatus("", status)
	s.healthServer.SetServingStatus(ServiceName, status)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.host, fmt.Sprint(s.port))
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.log.Info("gRPC server starting", zap.String("address", addr))
	go s.Serve(listener)
	return nil
}

// Serve blocks serving lis.
func (s *Server) Serve(lis net.Listener) {
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		s.log.Error("gRPC server failed", zap.Error(err))
	}
}

// Stop gracefully stops the gRPC server
func (s *Server) Stop() {
	s.log.Info("Stopping gRPC server")
	s.healthServer.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.log.Info("gRPC server stopped gracefully")
	case <-time.After(5 * time.Second):
		s.log.Warn("gRPC server forced to stop after timeout")
		s.server.Stop()
	}
}

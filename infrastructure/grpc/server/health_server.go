package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ChatService is the service name probes may ask about besides "".
const ChatService = "pairchat.Chat"

// Probe reports whether the process can still serve chat traffic.
type Probe func() error

// HealthServer exposes the standard gRPC health protocol so orchestrators
// can probe the chat process. It runs as a supervised worker.
type HealthServer struct {
	log           *slog.Logger
	address       string
	probe         Probe
	probeInterval time.Duration
}

func NewHealthServer(log *slog.Logger, address string, probe Probe, probeInterval time.Duration) *HealthServer {
	return &HealthServer{log: log, address: address, probe: probe, probeInterval: probeInterval}
}

func (h *HealthServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", h.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.address, err)
	}
	return h.Serve(ctx, listener)
}

// Serve blocks until ctx is done, then flips every service to
// NOT_SERVING and stops gracefully.
func (h *HealthServer) Serve(ctx context.Context, listener net.Listener) error {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(h.log)))
	status := health.NewServer()
	healthpb.RegisterHealthServer(s, status)
	h.apply(status)

	errChan := make(chan error, 1)
	go func() {
		h.log.Info("Starting gRPC health server", "address", listener.Addr().String())
		if err := s.Serve(listener); err != nil && err != grpc.ErrServerStopped {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	var tick <-chan time.Time
	if h.probe != nil && h.probeInterval > 0 {
		ticker := time.NewTicker(h.probeInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			h.log.Info("Shutting down gRPC health server")
			status.Shutdown()
			s.GracefulStop()
			return nil
		case err := <-errChan:
			s.Stop()
			return err
		case <-tick:
			h.apply(status)
		}
	}
}

func (h *HealthServer) apply(status *health.Server) {
	serving := healthpb.HealthCheckResponse_SERVING
	if h.probe != nil {
		if err := h.probe(); err != nil {
			h.log.Warn("Health probe failed", "error", err)
			serving = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	status.SetServingStatus("", serving)
	status.SetServingStatus(ChatService, serving)
}

func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("gRPC request", "method", info.FullMethod, "duration", time.Since(start), "error", err)
		return resp, err
	}
}

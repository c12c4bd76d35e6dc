package app

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside "".
const ServiceName = "meeting_assistant.Pipeline"

// HealthService publishes the standard gRPC health protocol, polling check
// to flip between SERVING and NOT_SERVING.
type HealthService struct {
	server   *health.Server
	check    func(context.Context) error
	interval time.Duration
	logger   *slog.Logger
}

func NewHealthService(check func(context.Context) error, interval time.Duration, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HealthService{server: health.NewServer(), check: check, interval: interval, logger: logger.With("component", "health")}
	h.set(healthgrpc.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *HealthService) Register(s *grpc.Server) {
	healthgrpc.RegisterHealthServer(s, h.server)
}

// Run probes once immediately and then every interval until ctx ends.
func (h *HealthService) Run(ctx context.Context) {
	h.probe(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.probe(ctx)
		}
	}
}

func (h *HealthService) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()
	if err := h.check(probeCtx); err != nil {
		h.logger.Warn("health probe failed", "error", err)
		h.set(healthgrpc.HealthCheckResponse_NOT_SERVING)
		return
	}
	h.set(healthgrpc.HealthCheckResponse_SERVING)
}

// Shutdown reports NOT_SERVING permanently.
func (h *HealthService) Shutdown() { h.server.Shutdown() }

func (h *HealthService) set(status healthgrpc.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}

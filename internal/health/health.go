package health

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const DefaultInterval = 10 * time.Second

// NewServer — gRPC-сервер с health-сервисом и reflection.
// Пока монитор не выполнил первую проверку, статус NOT_SERVING.
func NewServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return srv, hs
}

// Monitor периодически проверяет зависимость (базу) и выставляет статус
// health-сервиса для "" и перечисленных сервисов.
type Monitor struct {
	health   *health.Server
	ping     func(context.Context) error
	interval time.Duration
	services []string
	logger   *slog.Logger

	serving bool
}

func NewMonitor(hs *health.Server, ping func(context.Context) error, interval time.Duration, logger *slog.Logger, services ...string) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		health:   hs,
		ping:     ping,
		interval: interval,
		services: append([]string{""}, services...),
		logger:   logger.With(slog.String("component", "health")),
	}
}

// Check выполняет одну проверку и возвращает её результат.
func (m *Monitor) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.ping(ctx)
	serving := err == nil
	if serving != m.serving {
		if serving {
			m.logger.Info("dependencies healthy")
		} else {
			m.logger.Warn("dependency check failed", slog.String("error", err.Error()))
		}
	}
	m.serving = serving

	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	for _, name := range m.services {
		m.health.SetServingStatus(name, status)
	}
	return err
}

// Run проверяет сразу и затем каждые interval. При отмене ctx переводит
// все сервисы в NOT_SERVING.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		_ = m.Check(ctx)

		select {
		case <-ctx.Done():
			m.health.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func status(t *testing.T, hs *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestMonitor_Check(t *testing.T) {
	_, hs := NewServer()
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, hs, ""))

	var down atomic.Bool
	ping := func(context.Context) error {
		if down.Load() {
			return errors.New("connection refused")
		}
		return nil
	}
	m := NewMonitor(hs, ping, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), "booking.v1")

	require.NoError(t, m.Check(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, hs, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, hs, "booking.v1"))

	down.Store(true)
	assert.Error(t, m.Check(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, hs, ""))
}

func TestMonitor_RunShutsDown(t *testing.T) {
	_, hs := NewServer()
	m := NewMonitor(hs, func(context.Context) error { return nil }, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return status(t, hs, "") == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, hs, ""))
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/Leganyst/booking-engine/internal/config"
	"github.com/Leganyst/booking-engine/internal/db"
	"github.com/Leganyst/booking-engine/internal/handler"
	"github.com/Leganyst/booking-engine/internal/health"
	"github.com/Leganyst/booking-engine/internal/migrations"
	"github.com/Leganyst/booking-engine/internal/mq"
	"github.com/Leganyst/booking-engine/internal/obs"
	"github.com/Leganyst/booking-engine/internal/outbox"
	"github.com/Leganyst/booking-engine/internal/repository"
	"github.com/Leganyst/booking-engine/internal/router"
	"github.com/Leganyst/booking-engine/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("booking engine stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// 1. Конфиг из env; .env рядом с бинарником необязателен.
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := obs.NewLogger(os.Stdout, cfg.SlogLevel(), cfg.ServiceName, cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.Env, cfg.Otel.Endpoint)
	if err != nil {
		return err
	}

	// 2. База и миграции.
	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if cfg.DB.Migrate {
		if err := migrations.Up(ctx, gormDB); err != nil {
			return err
		}
	}

	// 3. Сервисы.
	store := repository.NewStore(gormDB)
	opts := service.Options{
		TxTimeout: cfg.Tx.Timeout,
		Isolation: cfg.Tx.IsolationLevel(),
		Logger:    logger,
	}
	bookings := service.NewBookingService(store, opts)
	availability := service.NewAvailabilityService(store, opts)

	// 4. Outbox: RabbitMQ, если задан RABBIT_URL, иначе только лог.
	sink, pingSink, closeSink, err := newSink(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()
	publisher := outbox.NewPublisher(outbox.NewStoreQueue(store), sink, cfg.Outbox.Interval, cfg.Outbox.BatchSize, logger)

	// 5. HTTP и gRPC health.
	h := handler.NewHandler(bookings, availability, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.InitRouter(cfg.GinMode(), logger, h),
	}

	grpcServer, healthServer := health.NewServer()
	monitor := health.NewMonitor(healthServer, func(ctx context.Context) error {
		return errors.Join(db.Ping(ctx, gormDB), pingSink(ctx))
	}, health.DefaultInterval, logger, cfg.ServiceName)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		publisher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		monitor.Run(ctx)
	}()

	go func() {
		logger.Info("grpc health server listening", slog.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 6. Грейсфул-шатдаун по сигналу или падению сервера.
	select {
	case <-ctx.Done():
	case err = <-errCh:
		logger.Error("server failed", slog.String("error", err.Error()))
		stop()
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", slog.String("error", err.Error()))
	}
	grpcServer.GracefulStop()
	wg.Wait()

	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", slog.String("error", err.Error()))
	}
	return err
}

func newSink(cfg *config.Config, logger *slog.Logger) (outbox.Sink, func(context.Context) error, func(), error) {
	if cfg.Rabbit.URL == "" {
		logger.Warn("RABBIT_URL is empty, outbox events are only logged")
		return outbox.NewLogSink(logger), func(context.Context) error { return nil }, func() {}, nil
	}

	broker, err := mq.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange, cfg.Rabbit.ConfirmTimeout)
	if err != nil {
		return nil, nil, nil, err
	}
	return outbox.NewBrokerSink(broker), broker.Ping, func() {
		if err := broker.Close(); err != nil {
			logger.Warn("rabbitmq close", slog.String("error", err.Error()))
		}
	}, nil
}

package outbox

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Leganyst/booking-engine/internal/model"
)

const (
	DefaultInterval  = 5 * time.Second
	DefaultBatchSize = 100
)

// Sink доставляет событие потребителям. Ошибка означает, что событие
// не доставлено и будет отправлено повторно.
type Sink interface {
	Publish(ctx context.Context, event model.OutboxEvent) error
}

// Stats — итог одного тика.
type Stats struct {
	Claimed   int
	Published int
	Failed    int
	// Необработанных событий после тика, включая отложенные.
	Pending int64
}

// Queue — персистентная очередь событий с операциями claim/complete/fail.
type Queue interface {
	// Process захватывает до limit необработанных событий и для каждого вызывает
	// handle. Успех handle помечает событие обработанным, ошибка увеличивает
	// retryCount, сохраняет lastError и откладывает следующую попытку.
	Process(ctx context.Context, limit int, handle func(context.Context, model.OutboxEvent) error) (Stats, error)
}

// Publisher периодически публикует события из outbox.
//
// processedAt выставляется только после подтверждения от Sink, поэтому
// доставка «хотя бы один раз»: потребители дедуплицируют по ID события.
type Publisher struct {
	queue     Queue
	sink      Sink
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewPublisher(queue Queue, sink Sink, interval time.Duration, batchSize int, logger *slog.Logger) *Publisher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		queue:     queue,
		sink:      sink,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With(slog.String("component", "outbox")),
		tracer:    otel.Tracer("github.com/Leganyst/booking-engine/internal/outbox"),
	}
}

// Run выполняет тик сразу и затем каждые interval, пока ctx не отменён.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("outbox publisher started",
		slog.Duration("interval", p.interval),
		slog.Int("batch_size", p.batchSize),
	)

	for {
		if _, err := p.Tick(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("outbox tick failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			p.logger.Info("outbox publisher stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick обрабатывает одну пачку событий.
func (p *Publisher) Tick(ctx context.Context) (Stats, error) {
	ctx, span := p.tracer.Start(ctx, "outbox.tick")
	defer span.End()

	stats, err := p.queue.Process(ctx, p.batchSize, p.publish)

	span.SetAttributes(
		attribute.Int("outbox.claimed", stats.Claimed),
		attribute.Int("outbox.published", stats.Published),
		attribute.Int("outbox.failed", stats.Failed),
		attribute.Int64("outbox.pending", stats.Pending),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}

	if stats.Claimed > 0 {
		p.logger.Info("outbox batch processed",
			slog.Int("claimed", stats.Claimed),
			slog.Int("published", stats.Published),
			slog.Int("failed", stats.Failed),
			slog.Int64("pending", stats.Pending),
		)
	}
	return stats, nil
}

func (p *Publisher) publish(ctx context.Context, event model.OutboxEvent) error {
	if err := p.sink.Publish(ctx, event); err != nil {
		p.logger.Warn("outbox publish failed",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.EventType),
			slog.Int("retry_count", event.RetryCount),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

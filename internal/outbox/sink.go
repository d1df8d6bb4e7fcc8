package outbox

import (
	"context"
	"log/slog"

	"github.com/Leganyst/booking-engine/internal/model"
	"github.com/Leganyst/booking-engine/internal/mq"
)

// LogSink только пишет событие в лог. Используется, когда брокер не настроен.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, event model.OutboxEvent) error {
	s.logger.InfoContext(ctx, "outbox event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID.String()),
		slog.String("payload", string(event.Payload)),
	)
	return nil
}

// Broker — публикация сообщения с подтверждением от брокера.
type Broker interface {
	Publish(ctx context.Context, msg mq.Message) error
}

// BrokerSink отправляет события в брокер: routing key — тип события,
// MessageId — ID события (по нему потребители отбрасывают дубли).
type BrokerSink struct {
	broker Broker
}

func NewBrokerSink(broker Broker) *BrokerSink {
	return &BrokerSink{broker: broker}
}

func (s *BrokerSink) Publish(ctx context.Context, event model.OutboxEvent) error {
	return s.broker.Publish(ctx, mq.Message{
		ID:         event.ID.String(),
		RoutingKey: event.EventType,
		Body:       event.Payload,
		Timestamp:  event.CreatedAt,
		Headers: map[string]any{
			"aggregate_id":   event.AggregateID.String(),
			"aggregate_type": event.AggregateType,
			"merchant_id":    event.MerchantID.String(),
			"retry_count":    int32(event.RetryCount),
		},
	})
}

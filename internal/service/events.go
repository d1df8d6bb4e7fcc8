package service

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/Leganyst/booking-engine/internal/booking"
	"github.com/Leganyst/booking-engine/internal/model"
	"github.com/Leganyst/booking-engine/internal/repository"
)

// appendEvent пишет доменное событие в outbox в транзакции tx.
func appendEvent(ctx context.Context, tx *repository.Store, ev booking.Event) error {
	if ev.Empty() {
		return nil
	}

	payload := make(map[string]any, len(ev.Payload)+1)
	for k, v := range ev.Payload {
		payload[k] = v
	}
	payload["occurredAt"] = ev.OccurredAt

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", ev.Type, err)
	}

	return tx.Outbox.Append(ctx, &model.OutboxEvent{
		AggregateID:   ev.BookingID,
		AggregateType: booking.AggregateType,
		MerchantID:    ev.MerchantID,
		EventType:     ev.Type,
		Payload:       datatypes.JSON(body),
	})
}

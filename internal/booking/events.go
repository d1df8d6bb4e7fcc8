package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/booking-engine/internal/model"
)

// AggregateType — тип агрегата в outbox для событий брони.
const AggregateType = "booking"

const (
	EventCreated         = "booking.created"
	EventRescheduled     = "booking.rescheduled"
	EventCompleted       = "booking.completed"
	EventCancelled       = "booking.cancelled"
	EventNoShow          = "booking.no_show"
	EventPaymentRecorded = "booking.payment_recorded"
	EventPaymentRefunded = "booking.payment_refunded"
)

// Event — доменное событие, которое пишется в outbox вместе с изменением брони.
type Event struct {
	Type       string
	BookingID  uuid.UUID
	MerchantID uuid.UUID
	OccurredAt time.Time
	Payload    map[string]any
}

// Empty сообщает, что переход не порождает события.
func (e Event) Empty() bool { return e.Type == "" }

func newEvent(eventType string, b *model.Booking, now time.Time, extra map[string]any) Event {
	payload := snapshot(b)
	for k, v := range extra {
		payload[k] = v
	}
	return Event{
		Type:       eventType,
		BookingID:  b.ID,
		MerchantID: b.MerchantID,
		OccurredAt: now,
		Payload:    payload,
	}
}

// Created — событие о новой брони.
func Created(b *model.Booking, now time.Time) Event {
	return newEvent(EventCreated, b, now.UTC(), map[string]any{
		"source":     b.Source,
		"isOverride": b.IsOverride,
	})
}

func snapshot(b *model.Booking) map[string]any {
	return map[string]any{
		"bookingId":     b.ID,
		"bookingNumber": b.BookingNumber,
		"merchantId":    b.MerchantID,
		"locationId":    b.LocationID,
		"customerId":    b.CustomerID,
		"providerId":    b.ProviderID,
		"status":        b.Status,
		"startTime":     b.StartTime.UTC(),
		"endTime":       b.EndTime.UTC(),
		"totalAmount":   b.TotalAmount,
		"paidAmount":    b.PaidAmount,
		"paymentStatus": b.PaymentStatus,
	}
}

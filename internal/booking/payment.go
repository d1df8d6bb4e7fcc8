package booking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Leganyst/booking-engine/internal/model"
)

// Payment — поступление оплаты по брони.
type Payment struct {
	Amount    decimal.Decimal
	Method    string
	Reference string
	Now       time.Time
}

// RecordPayment учитывает оплату. Сумма сверх остатка не засчитывается:
// PaidAmount не превышает TotalAmount.
func RecordPayment(b *model.Booking, p Payment) (Event, error) {
	if !p.Amount.IsPositive() {
		return Event{}, fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	switch b.PaymentStatus {
	case model.PaymentStatusPaid, model.PaymentStatusRefunded:
		return Event{}, fmt.Errorf("%w: booking is already %s", ErrInvalidPayment, b.PaymentStatus)
	}
	if b.Status == model.BookingStatusCancelled {
		return Event{}, fmt.Errorf("%w: booking is cancelled", ErrInvalidPayment)
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	paid := decimal.Min(b.PaidAmount.Add(p.Amount), b.TotalAmount)
	accepted := paid.Sub(b.PaidAmount)

	b.PaidAmount = paid
	b.PaymentMethod = p.Method
	b.PaymentReference = p.Reference
	if paid.GreaterThanOrEqual(b.TotalAmount) {
		b.PaymentStatus = model.PaymentStatusPaid
		b.PaidAt = &now
	} else {
		b.PaymentStatus = model.PaymentStatusPartial
	}

	return newEvent(EventPaymentRecorded, b, now, map[string]any{
		"amount":    accepted,
		"method":    p.Method,
		"reference": p.Reference,
	}), nil
}

// Refund возвращает часть или всю внесённую сумму.
func Refund(b *model.Booking, amount decimal.Decimal, reason string, now time.Time) (Event, error) {
	if !amount.IsPositive() {
		return Event{}, fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	switch b.PaymentStatus {
	case model.PaymentStatusPaid, model.PaymentStatusPartial:
	default:
		return Event{}, fmt.Errorf("%w: nothing to refund in status %s", ErrInvalidPayment, b.PaymentStatus)
	}
	if amount.GreaterThan(b.PaidAmount) {
		return Event{}, fmt.Errorf("%w: refund %s exceeds paid amount %s", ErrInvalidPayment, amount, b.PaidAmount)
	}

	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	b.PaidAmount = b.PaidAmount.Sub(amount)
	if b.PaidAmount.IsZero() {
		b.PaymentStatus = model.PaymentStatusRefunded
	} else {
		b.PaymentStatus = model.PaymentStatusPartial
	}

	return newEvent(EventPaymentRefunded, b, now, map[string]any{
		"amount": amount,
		"reason": reason,
	}), nil
}

package booking

import (
	"slices"
	"time"

	"github.com/Leganyst/booking-engine/internal/model"
)

type Action string

const (
	ActionConfirm    Action = "confirm"
	ActionCheckIn    Action = "check-in"
	ActionStart      Action = "start"
	ActionComplete   Action = "complete"
	ActionCancel     Action = "cancel"
	ActionNoShow     Action = "no-show"
	ActionReschedule Action = "reschedule"
)

var nonTerminal = []model.BookingStatus{
	model.BookingStatusPending,
	model.BookingStatusConfirmed,
	model.BookingStatusCheckedIn,
	model.BookingStatusInProgress,
}

type transition struct {
	from []model.BookingStatus
	to   model.BookingStatus
}

// Таблица допустимых переходов. Всё, чего здесь нет, запрещено.
var transitions = map[Action]transition{
	ActionConfirm:  {from: []model.BookingStatus{model.BookingStatusPending}, to: model.BookingStatusConfirmed},
	ActionCheckIn:  {from: []model.BookingStatus{model.BookingStatusConfirmed}, to: model.BookingStatusCheckedIn},
	ActionStart:    {from: []model.BookingStatus{model.BookingStatusCheckedIn}, to: model.BookingStatusInProgress},
	ActionComplete: {from: []model.BookingStatus{model.BookingStatusInProgress}, to: model.BookingStatusCompleted},
	ActionCancel:   {from: nonTerminal, to: model.BookingStatusCancelled},
	ActionNoShow:   {from: nonTerminal, to: model.BookingStatusNoShow},
}

// Options — параметры перехода.
type Options struct {
	Now    time.Time
	Reason string
}

// Target возвращает статус, в который ведёт действие.
func Target(action Action) (model.BookingStatus, bool) {
	t, ok := transitions[action]
	return t.to, ok
}

// Allowed сообщает, допустимо ли действие из статуса from.
func Allowed(from model.BookingStatus, action Action) bool {
	t, ok := transitions[action]
	return ok && slices.Contains(t.from, from)
}

// Apply выполняет переход над b.
//
// При недопустимом переходе возвращается *InvalidTransitionError, а b не
// меняется. Для complete, cancel и no-show возвращается событие для outbox;
// для остальных переходов событие пустое (Event.Type == "").
func Apply(b *model.Booking, action Action, opts Options) (Event, error) {
	t, ok := transitions[action]
	if !ok || !slices.Contains(t.from, b.Status) {
		return Event{}, &InvalidTransitionError{From: b.Status, To: t.to, Action: action}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	from := b.Status
	b.Status = t.to

	switch action {
	case ActionCheckIn:
		b.CheckedInAt = &now
	case ActionStart:
		b.StartedAt = &now
	case ActionComplete:
		b.CompletedAt = &now
		return newEvent(EventCompleted, b, now, map[string]any{
			"previousStatus": from,
			"completedAt":    now,
		}), nil
	case ActionCancel:
		b.CancelledAt = &now
		b.CancellationReason = opts.Reason
		return newEvent(EventCancelled, b, now, map[string]any{
			"previousStatus": from,
			"reason":         opts.Reason,
			"cancelledAt":    now,
		}), nil
	case ActionNoShow:
		return newEvent(EventNoShow, b, now, map[string]any{
			"previousStatus": from,
		}), nil
	}

	return Event{}, nil
}

// CanReschedule сообщает, можно ли переносить бронь в статусе s.
func CanReschedule(s model.BookingStatus) bool {
	return !s.Terminal()
}

// Reschedule переносит бронь на новый интервал и, если задан, к другому мастеру.
// Проверку конфликтов выполняет вызывающий код.
func Reschedule(b *model.Booking, start, end time.Time, staff *model.Staff, opts Options) (Event, error) {
	if !CanReschedule(b.Status) {
		return Event{}, &InvalidTransitionError{From: b.Status, Action: ActionReschedule}
	}
	if start.IsZero() || !end.After(start) {
		return Event{}, ErrInvalidInterval
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	previousStart, previousEnd := b.StartTime, b.EndTime
	previousProvider := b.ProviderID

	b.StartTime = start.UTC()
	b.EndTime = end.UTC()
	if staff != nil {
		id := staff.ID
		b.ProviderID = &id
		for i := range b.Services {
			b.Services[i].StaffID = &id
		}
	}

	return newEvent(EventRescheduled, b, now.UTC(), map[string]any{
		"previousStartTime":  previousStart.UTC(),
		"previousEndTime":    previousEnd.UTC(),
		"previousProviderId": previousProvider,
	}), nil
}

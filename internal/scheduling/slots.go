package scheduling

import (
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/booking-engine/internal/calendar"
	"github.com/Leganyst/booking-engine/internal/model"
)

// DefaultSlotInterval — шаг сетки слотов, если он не задан.
const DefaultSlotInterval = 15 * time.Minute

// Slot — видимое клиенту время услуги, без буферов.
type Slot struct {
	Start time.Time `json:"startTime"`
	End   time.Time `json:"endTime"`
}

// SlotRequest — входные данные генератора слотов.
type SlotRequest struct {
	// Рабочая неделя мастера (см. EffectiveSchedule).
	Schedule calendar.Weekly
	// Часовой пояс, в котором заданы окна Schedule и даты DaysOff.
	Location *time.Location
	// Нерабочие дни; сравниваются по календарной дате.
	DaysOff []time.Time

	Duration time.Duration
	Padding  calendar.Padding

	From     time.Time
	To       time.Time
	Interval time.Duration
}

// GenerateSlots лениво перечисляет кандидатов на запись в [From, To).
//
// Для каждого дня берутся окна расписания; от открытия окна старт сдвигается
// на Interval, пока start+Duration+Padding.After не выходит за закрытие.
// Последовательность конечна и может обходиться повторно: она зависит
// только от req.
func GenerateSlots(req SlotRequest) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		if req.Duration <= 0 || !req.To.After(req.From) {
			return
		}

		loc := req.Location
		if loc == nil {
			loc = time.UTC
		}
		interval := req.Interval
		if interval <= 0 {
			interval = DefaultSlotInterval
		}
		daysOff := dayOffSet(req.DaysOff)
		occupied := req.Duration + req.Padding.After

		for day := calendar.DateOnly(req.From.In(loc)); day.Before(req.To); day = day.AddDate(0, 0, 1) {
			if _, off := daysOff[keyOf(day)]; off {
				continue
			}

			for _, window := range req.Schedule.Windows(day, loc) {
				for start := window.Start; !start.Add(occupied).After(window.End); start = start.Add(interval) {
					if start.Before(req.From) || !start.Before(req.To) {
						continue
					}
					if !yield(Slot{Start: start.UTC(), End: start.Add(req.Duration).UTC()}) {
						return
					}
				}
			}
		}
	}
}

// AnnotatedSlot — слот с признаком доступности для конкретного мастера.
type AnnotatedSlot struct {
	Slot
	Available bool       `json:"available"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Annotate прогоняет каждый слот через FindConflicts. Доступным слот
// считается ровно тогда, когда конфликтов нет.
func Annotate(slots iter.Seq[Slot], staffID uuid.UUID, padding calendar.Padding, bookings []model.Booking) []AnnotatedSlot {
	var out []AnnotatedSlot
	for s := range slots {
		blocked := calendar.BlockedRange(s.Start, s.End, padding)
		conflicts := FindConflicts(staffID, blocked, bookings, uuid.Nil)
		out = append(out, AnnotatedSlot{
			Slot:      s,
			Available: len(conflicts) == 0,
			Conflicts: conflicts,
		})
	}
	return out
}

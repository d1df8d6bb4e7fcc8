package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Clock — время суток с точностью до минуты.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock разбирает строку вида "09:00".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On возвращает момент времени c в день day (часовой пояс берётся из day).
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// ClockRange — рабочее окно внутри суток.
type ClockRange struct {
	Open  Clock
	Close Clock
}

// NewClockRange разбирает пару "HH:MM"-строк.
func NewClockRange(open, close string) (ClockRange, error) {
	o, err := ParseClock(open)
	if err != nil {
		return ClockRange{}, err
	}
	c, err := ParseClock(close)
	if err != nil {
		return ClockRange{}, err
	}
	return ClockRange{Open: o, Close: c}, nil
}

// Weekly — недельное расписание: день недели → рабочие окна.
// День без окон считается выходным.
type Weekly map[time.Weekday][]ClockRange

// Empty сообщает, что в расписании нет ни одного окна.
func (w Weekly) Empty() bool {
	for _, ranges := range w {
		if len(ranges) > 0 {
			return false
		}
	}
	return true
}

// Add добавляет окно к дню недели.
func (w Weekly) Add(day time.Weekday, r ClockRange) {
	w[day] = append(w[day], r)
}

// Windows разворачивает окна дня day в конкретные интервалы (в поясе loc),
// отсортированные по началу. Пустые и перевёрнутые окна отбрасываются.
func (w Weekly) Windows(day time.Time, loc *time.Location) []TimeRange {
	if loc != nil {
		day = day.In(loc)
	}
	day = DateOnly(day)

	ranges := w[day.Weekday()]
	out := make([]TimeRange, 0, len(ranges))
	for _, r := range ranges {
		tr := TimeRange{Start: r.Open.On(day), End: r.Close.On(day)}
		if !tr.End.After(tr.Start) {
			continue
		}
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// WithinBusinessHours проверяет, что интервал [start, end) целиком лежит
// в одном из окон windows.
func WithinBusinessHours(start, end time.Time, windows []TimeRange) bool {
	for _, w := range windows {
		if !start.Before(w.Start) && !end.After(w.End) {
			return true
		}
	}
	return false
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday принимает название дня недели в любом регистре ("monday", "MONDAY").
func ParseWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

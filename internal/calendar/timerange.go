package calendar

import (
	"errors"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidClock     = errors.New("invalid clock value")
)

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт интервал и проверяет, что End строго позже Start.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// NormalizeTimeRange нормализует интервал:
//   - меняет местами границы, если они перепутаны;
//   - переводит в заданный часовой пояс loc;
//   - при превышении maxDuration обрезает интервал до start+maxDuration.
//
// Если maxDuration <= 0, ограничение по длительности не применяется.
func NormalizeTimeRange(
	start, end time.Time,
	loc *time.Location,
	maxDuration time.Duration,
) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, ErrInvalidTimeRange
	}

	if end.Before(start) {
		start, end = end, start
	}

	if loc != nil {
		start = start.In(loc)
		end = end.In(loc)
	}

	if maxDuration > 0 && end.Sub(start) > maxDuration {
		end = start.Add(maxDuration)
	}

	if !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}

	return TimeRange{Start: start, End: end}, nil
}

// Duration возвращает длину интервала.
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps сообщает, пересекается ли интервал с other (касание концами — не пересечение).
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return IntervalsOverlap(tr.Start, tr.End, other.Start, other.End)
}

// UTC переводит обе границы в UTC.
func (tr TimeRange) UTC() TimeRange {
	return TimeRange{Start: tr.Start.UTC(), End: tr.End.UTC()}
}

// IntervalsOverlap проверяет пересечение полуоткрытых интервалов [aStart, aEnd) и [bStart, bEnd).
// Бронь, заканчивающаяся в 10:00, не конфликтует с бронью, начинающейся в 10:00.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DateOnly отбрасывает время, оставляя полночь того же дня в часовом поясе t.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// MidnightIn возвращает полночь календарной даты day в поясе loc.
// Часы и пояс самого day не учитываются: 2025-01-06 00:00 UTC и loc
// Australia/Sydney дают 2025-01-06 00:00 по Сиднею.
func MidnightIn(day time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	year, month, d := day.Date()
	return time.Date(year, month, d, 0, 0, 0, 0, loc)
}

// DayRange возвращает сутки [00:00, 00:00 следующего дня), в которые попадает t (в поясе loc).
func DayRange(t time.Time, loc *time.Location) TimeRange {
	if loc != nil {
		t = t.In(loc)
	}
	start := DateOnly(t)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

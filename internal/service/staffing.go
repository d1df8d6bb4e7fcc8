package service

import (
	"time"

	"github.com/Leganyst/booking-engine/internal/calendar"
	"github.com/Leganyst/booking-engine/internal/model"
	"github.com/Leganyst/booking-engine/internal/scheduling"
)

const reasonOutsideHours = "Not working at this time"

// worksDuring проверяет, что [start, end+padding.After) лежит в рабочем окне
// мастера и день не выходной. Условие совпадает с генератором слотов.
func worksDuring(
	staff model.Staff,
	merchant *model.Merchant,
	start, end time.Time,
	padding calendar.Padding,
	daysOff []time.Time,
) bool {
	loc := merchant.Location()
	day := start.In(loc)
	if scheduling.IsDayOff(day, daysOff) {
		return false
	}
	windows := scheduling.EffectiveSchedule(staff, *merchant).Windows(day, loc)
	return calendar.WithinBusinessHours(start, end.Add(padding.After), windows)
}

// splitByHours отделяет мастеров, которые не работают в запрошенное время.
// Неактивные и служебные записи пропускаются дальше: их отбрасывает ResolveStaff.
func splitByHours(
	candidates []model.Staff,
	merchant *model.Merchant,
	start, end time.Time,
	padding calendar.Padding,
	daysOff []time.Time,
) ([]model.Staff, []scheduling.Unavailable) {
	var (
		working []model.Staff
		off     []scheduling.Unavailable
	)
	for _, st := range candidates {
		if st.Assignable() && !worksDuring(st, merchant, start, end, padding, daysOff) {
			off = append(off, scheduling.Unavailable{Staff: st, Reason: reasonOutsideHours})
			continue
		}
		working = append(working, st)
	}
	return working, off
}

// bookingWindow — диапазон, в котором ищутся брони для проверки конфликтов:
// сутки записи в часовом поясе салона, расширенные до занятого интервала.
func bookingWindow(start time.Time, blocked calendar.TimeRange, loc *time.Location) (time.Time, time.Time) {
	day := calendar.DayRange(start, loc)
	from, to := day.Start, day.End
	if blocked.Start.Before(from) {
		from = blocked.Start
	}
	if blocked.End.After(to) {
		to = blocked.End
	}
	return from.UTC(), to.UTC()
}

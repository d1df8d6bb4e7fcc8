package scheduling

import (
	"time"

	"github.com/Leganyst/booking-engine/internal/calendar"
	"github.com/Leganyst/booking-engine/internal/model"
)

// EffectiveSchedule выбирает рабочую неделю мастера.
//
// Если у мастера есть хотя бы одна строка расписания, неделя определяется
// только ими (дни без строк — выходные). Иначе действуют часы работы салона.
func EffectiveSchedule(staff model.Staff, merchant model.Merchant) calendar.Weekly {
	if w := staff.Weekly(); !w.Empty() {
		return w
	}
	return merchant.BusinessHours.Data().Weekly()
}

// DaysOff собирает нерабочие даты салона из списка праздников.
func DaysOff(holidays []model.MerchantHoliday) []time.Time {
	out := make([]time.Time, 0, len(holidays))
	for _, h := range holidays {
		if !h.IsDayOff {
			continue
		}
		out = append(out, time.Time(h.Date))
	}
	return out
}

type dateKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dateKey {
	y, m, d := t.Date()
	return dateKey{y, m, d}
}

func dayOffSet(days []time.Time) map[dateKey]struct{} {
	set := make(map[dateKey]struct{}, len(days))
	for _, d := range days {
		set[keyOf(d)] = struct{}{}
	}
	return set
}

// IsDayOff проверяет, что календарный день day (в его часовом поясе) выходной.
func IsDayOff(day time.Time, daysOff []time.Time) bool {
	_, ok := dayOffSet(daysOff)[keyOf(day)]
	return ok
}

package calendar

import "time"

// Padding — технологический буфер мастера до и после услуги.
// Клиент его не видит, но он участвует в поиске конфликтов.
type Padding struct {
	Before time.Duration
	After  time.Duration
}

// PaddingMinutes собирает Padding из значений в минутах, как они хранятся в БД.
func PaddingMinutes(before, after int) Padding {
	return Padding{
		Before: time.Duration(before) * time.Minute,
		After:  time.Duration(after) * time.Minute,
	}
}

// BlockedRange — интервал, в течение которого мастер занят:
// [start - Before, end + After).
func BlockedRange(start, end time.Time, p Padding) TimeRange {
	return TimeRange{
		Start: start.Add(-p.Before),
		End:   end.Add(p.After),
	}
}

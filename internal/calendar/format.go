package calendar

import (
	"fmt"
	"time"
)

// FormatRange форматирует интервал в человекочитаемую строку вида
// "Mon 06 Jan 2025, 10:00–11:00". Если loc != nil, время переводится в loc.
func FormatRange(tr TimeRange, loc *time.Location) string {
	start := tr.Start
	end := tr.End

	if loc != nil {
		start = start.In(loc)
		end = end.In(loc)
	}

	return fmt.Sprintf("%s, %s–%s",
		start.Format("Mon 02 Jan 2006"),
		start.Format("15:04"),
		end.Format("15:04"),
	)
}

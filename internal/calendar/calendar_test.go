package calendar

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("failed to parse time %q: %v", s, err)
	}
	return tm
}

func TestNewTimeRange_RejectsEmptyAndInverted(t *testing.T) {
	start := mustTime(t, "2025-01-06T10:00:00Z")

	if _, err := NewTimeRange(start, start); err != ErrInvalidTimeRange {
		t.Fatalf("expected ErrInvalidTimeRange for empty range, got %v", err)
	}
	if _, err := NewTimeRange(start, start.Add(-time.Minute)); err != ErrInvalidTimeRange {
		t.Fatalf("expected ErrInvalidTimeRange for inverted range, got %v", err)
	}
	if _, err := NewTimeRange(start, start.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizeTimeRange_SwapAndClamp(t *testing.T) {
	start := mustTime(t, "2025-01-06T10:00:00Z")
	end := mustTime(t, "2025-01-06T08:00:00Z")

	tr, err := NormalizeTimeRange(start, end, time.UTC, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !tr.Start.Equal(end) {
		t.Fatalf("expected start %v, got %v", end, tr.Start)
	}
	if tr.Duration() != time.Hour {
		t.Fatalf("expected clamp to 1h, got %v", tr.Duration())
	}
}

func TestMidnightIn_KeepsCalendarDate(t *testing.T) {
	loc := time.FixedZone("UTC+11", 11*60*60)
	day := mustTime(t, "2025-01-06T00:00:00Z")

	got := MidnightIn(day, loc)
	want := time.Date(2025, 1, 6, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	// Наивный перевод в пояс даёт 11:00 того же дня, а не полночь.
	if day.In(loc).Equal(want) {
		t.Fatalf("expected conversion to differ from midnight in zone")
	}
	if !MidnightIn(day, nil).Equal(day) {
		t.Fatalf("expected nil location to mean UTC")
	}
}

func TestIntervalsOverlap_TouchingEndpoints(t *testing.T) {
	a := mustTime(t, "2025-01-06T09:00:00Z")
	b := mustTime(t, "2025-01-06T10:00:00Z")
	c := mustTime(t, "2025-01-06T11:00:00Z")

	if IntervalsOverlap(a, b, b, c) {
		t.Fatalf("touching intervals must not overlap")
	}
	if !IntervalsOverlap(a, c, b, c) {
		t.Fatalf("nested intervals must overlap")
	}
	if !IntervalsOverlap(b, c, a, b.Add(time.Minute)) {
		t.Fatalf("overlap must be symmetric")
	}
}

func TestBlockedRange_AppliesPadding(t *testing.T) {
	start := mustTime(t, "2025-01-06T10:00:00Z")
	end := mustTime(t, "2025-01-06T11:00:00Z")

	blocked := BlockedRange(start, end, PaddingMinutes(5, 10))

	if !blocked.Start.Equal(start.Add(-5 * time.Minute)) {
		t.Fatalf("unexpected blocked start %v", blocked.Start)
	}
	if !blocked.End.Equal(end.Add(10 * time.Minute)) {
		t.Fatalf("unexpected blocked end %v", blocked.End)
	}

	// Запрос 10:45–11:15 попадает в буфер после услуги.
	req := TimeRange{Start: mustTime(t, "2025-01-06T10:45:00Z"), End: mustTime(t, "2025-01-06T11:15:00Z")}
	if !blocked.Overlaps(req) {
		t.Fatalf("expected overlap with padded interval")
	}

	// 11:10 — ровно конец буфера, пересечения нет.
	later := TimeRange{Start: mustTime(t, "2025-01-06T11:10:00Z"), End: mustTime(t, "2025-01-06T12:00:00Z")}
	if blocked.Overlaps(later) {
		t.Fatalf("expected no overlap at padded boundary")
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Hour != 9 || c.Minute != 30 {
		t.Fatalf("unexpected clock %v", c)
	}
	if c.String() != "09:30" {
		t.Fatalf("unexpected string %q", c.String())
	}

	if _, err := ParseClock("25:99"); err == nil {
		t.Fatalf("expected error for invalid clock")
	}
}

func TestWeeklyWindows_SortedAndFiltered(t *testing.T) {
	w := Weekly{}
	afternoon, _ := NewClockRange("14:00", "18:00")
	morning, _ := NewClockRange("09:00", "12:00")
	broken, _ := NewClockRange("12:00", "12:00")
	w.Add(time.Monday, afternoon)
	w.Add(time.Monday, morning)
	w.Add(time.Monday, broken)

	monday := mustTime(t, "2025-01-06T15:00:00Z")
	windows := w.Windows(monday, time.UTC)

	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[0].Start.Hour() != 9 || windows[1].Start.Hour() != 14 {
		t.Fatalf("windows are not sorted: %+v", windows)
	}

	tuesday := monday.AddDate(0, 0, 1)
	if got := w.Windows(tuesday, time.UTC); len(got) != 0 {
		t.Fatalf("expected closed tuesday, got %d windows", len(got))
	}
}

func TestWeeklyWindows_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	w := Weekly{}
	r, _ := NewClockRange("09:00", "17:00")
	w.Add(time.Monday, r)

	// 2025-01-05T20:00Z — это уже понедельник 03:00 по UTC+7.
	windows := w.Windows(mustTime(t, "2025-01-05T20:00:00Z"), loc)
	if len(windows) != 1 {
		t.Fatalf("expected monday window in merchant zone, got %d", len(windows))
	}
	want := mustTime(t, "2025-01-06T02:00:00Z")
	if !windows[0].Start.Equal(want) {
		t.Fatalf("expected window start %v, got %v", want, windows[0].Start.UTC())
	}
}

func TestWithinBusinessHours(t *testing.T) {
	windows := []TimeRange{{
		Start: mustTime(t, "2025-01-06T09:00:00Z"),
		End:   mustTime(t, "2025-01-06T17:00:00Z"),
	}}

	if !WithinBusinessHours(mustTime(t, "2025-01-06T16:00:00Z"), mustTime(t, "2025-01-06T17:00:00Z"), windows) {
		t.Fatalf("interval ending at close must be inside")
	}
	if WithinBusinessHours(mustTime(t, "2025-01-06T16:30:00Z"), mustTime(t, "2025-01-06T17:30:00Z"), windows) {
		t.Fatalf("interval past close must be outside")
	}
	if WithinBusinessHours(mustTime(t, "2025-01-06T10:00:00Z"), mustTime(t, "2025-01-06T11:00:00Z"), nil) {
		t.Fatalf("closed day must reject everything")
	}
}

func TestParseWeekday(t *testing.T) {
	d, ok := ParseWeekday("MONDAY")
	if !ok || d != time.Monday {
		t.Fatalf("expected monday, got %v %v", d, ok)
	}
	if _, ok := ParseWeekday("funday"); ok {
		t.Fatalf("expected unknown weekday")
	}
}

func TestFormatRange(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, "2025-01-06T10:00:00Z"),
		End:   mustTime(t, "2025-01-06T11:00:00Z"),
	}

	got := FormatRange(tr, time.UTC)
	want := "Mon 06 Jan 2025, 10:00–11:00"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPaginate_FirstPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page := Paginate(items, 1, 2)

	if len(page.Items) != 2 || page.Items[0] != 1 || page.Items[1] != 2 {
		t.Fatalf("unexpected items: %+v", page.Items)
	}
	if !page.HasNext || page.HasPrev {
		t.Fatalf("unexpected flags: %+v", page)
	}
	if page.Total != 5 {
		t.Fatalf("expected total 5, got %d", page.Total)
	}
}

func TestPaginate_OutOfRange(t *testing.T) {
	page := Paginate([]int{1, 2, 3}, 10, 2)

	if len(page.Items) != 0 {
		t.Fatalf("expected empty page, got %+v", page.Items)
	}
	if page.HasNext {
		t.Fatalf("expected no next page")
	}
	if page.Items == nil {
		t.Fatalf("expected non-nil empty slice for JSON output")
	}
}

func TestPaginate_Defaults(t *testing.T) {
	page := Paginate(make([]int, 500), 0, 0)
	if page.Page != 1 || page.PageSize != defaultPageSize {
		t.Fatalf("unexpected defaults: page=%d size=%d", page.Page, page.PageSize)
	}

	page = Paginate(make([]int, 500), 1, 10_000)
	if page.PageSize != maxPageSize {
		t.Fatalf("expected page size clamp to %d, got %d", maxPageSize, page.PageSize)
	}
}

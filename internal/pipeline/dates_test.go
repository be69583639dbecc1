package pipeline

import (
	"testing"
	"time"
	_ "time/tzdata"

	"DanceSync/internal/model"
)

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestResolveStart(t *testing.T) {
	loc := chicago(t)
	// 2025-03-10 是周一
	ctx := dateContext{loc: loc, ref: time.Date(2025, 3, 10, 12, 0, 0, 0, loc)}
	at := func(y int, m time.Month, d, h, mi int) *time.Time {
		v := time.Date(y, m, d, h, mi, 0, 0, loc)
		return &v
	}
	day := func(y int, m time.Month, d int) *model.Date {
		return &model.Date{Year: y, Month: m, Day: d}
	}

	tests := []struct {
		name     string
		raw      string
		dayFirst bool
		wantAt   *time.Time
		wantDate *model.Date
		strategy string
	}{
		{name: "rfc3339 offset", raw: "2025-03-14T21:00:00-05:00", wantAt: at(2025, 3, 14, 21, 0), strategy: "iso8601_offset"},
		{name: "rfc3339 utc converted", raw: "2025-03-15T02:00:00Z", wantAt: at(2025, 3, 14, 21, 0), strategy: "iso8601_offset"},
		{name: "dataforseo layout", raw: "2025-03-15 02:00:00 +00:00", wantAt: at(2025, 3, 14, 21, 0), strategy: "iso8601_offset"},
		{name: "naive local", raw: "2025-03-14T21:00:00", wantAt: at(2025, 3, 14, 21, 0), strategy: "iso8601_local"},
		{name: "iso date", raw: "2025-03-14", wantDate: day(2025, 3, 14), strategy: "iso_date"},
		{name: "us numeric", raw: "03/04/2025", wantDate: day(2025, 3, 4), strategy: "numeric_date"},
		{name: "day first numeric", raw: "03/04/2025", dayFirst: true, wantDate: day(2025, 4, 3), strategy: "numeric_date"},
		{name: "unambiguous numeric", raw: "14/03/2025", wantDate: day(2025, 3, 14), strategy: "numeric_date"},
		{name: "numeric with time", raw: "14.03.2025 21:30", dayFirst: true, wantAt: at(2025, 3, 14, 21, 30), strategy: "numeric_date"},
		{name: "weekday numeric day first", raw: "Fri, 28/03/2025", dayFirst: true, wantDate: day(2025, 3, 28), strategy: "numeric_date"},
		{name: "weekday dotted numeric with time", raw: "Sat 29.03.2025 21:00", dayFirst: true, wantAt: at(2025, 3, 29, 21, 0), strategy: "numeric_date"},
		{name: "weekday disambiguates numeric", raw: "Fri 04/07/2025", wantDate: day(2025, 7, 4), strategy: "numeric_date"},
		{name: "weekday mismatch keeps printed date", raw: "Mon 14/03/2025", dayFirst: true, wantDate: day(2025, 3, 14), strategy: "numeric_date"},
		{name: "weekday month day", raw: "Fri, March 14", wantDate: day(2025, 3, 14), strategy: "month_name"},
		{name: "serp when range", raw: "Fri, Mar 14, 9 – 11 PM", wantAt: at(2025, 3, 14, 21, 0), strategy: "month_name"},
		{name: "range crossing midnight", raw: "Sat, Mar 15, 11 – 1 AM", wantAt: at(2025, 3, 15, 23, 0), strategy: "month_name"},
		{name: "explicit year and time", raw: "March 14, 2025 8:30 PM", wantAt: at(2025, 3, 14, 20, 30), strategy: "month_name"},
		{name: "day month year", raw: "14 March 2025", wantDate: day(2025, 3, 14), strategy: "month_name"},
		{name: "past month rolls forward", raw: "Jan 5", wantDate: day(2026, 1, 5), strategy: "month_name"},
		{name: "tonight with time", raw: "tonight 9pm", wantAt: at(2025, 3, 10, 21, 0), strategy: "relative"},
		{name: "tomorrow", raw: "Tomorrow", wantDate: day(2025, 3, 11), strategy: "relative"},
		{name: "this friday", raw: "this Friday", wantDate: day(2025, 3, 14), strategy: "relative"},
		{name: "next friday", raw: "next Friday", wantDate: day(2025, 3, 21), strategy: "relative"},
		{name: "bare weekday 24h", raw: "every Friday 21:00", wantAt: at(2025, 3, 14, 21, 0), strategy: "relative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ctx
			c.dayFirst = tt.dayFirst
			res, strategy, ok := resolveStart(tt.raw, c)
			if !ok {
				t.Fatalf("resolveStart(%q) failed", tt.raw)
			}
			if strategy != tt.strategy {
				t.Errorf("strategy = %s, want %s", strategy, tt.strategy)
			}
			switch {
			case tt.wantAt != nil:
				if res.at == nil || !res.at.Equal(*tt.wantAt) {
					t.Errorf("at = %v, want %v", res.at, tt.wantAt)
				}
				if res.date != nil {
					t.Errorf("date should be nil when a timestamp is known, got %v", res.date)
				}
			case tt.wantDate != nil:
				if res.date == nil || *res.date != *tt.wantDate {
					t.Errorf("date = %v, want %v", res.date, tt.wantDate)
				}
				if res.at != nil {
					t.Errorf("at should be nil for a date-only value, got %v", res.at)
				}
			}
		})
	}
}

func TestResolveStartUnparseable(t *testing.T) {
	ctx := dateContext{loc: time.UTC, ref: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)}
	for _, raw := range []string{"", "   ", "TBA", "coming soon", "31/31/2025"} {
		if res, _, ok := resolveStart(raw, ctx); ok {
			t.Errorf("resolveStart(%q) = %+v, want failure", raw, res)
		}
	}
}

func TestInferYearUsesWeekday(t *testing.T) {
	ref := model.Date{Year: 2025, Month: time.March, Day: 10}
	fri := time.Friday
	// 2026-03-14 是周六，2025-03-14 是周五
	if y, ok := inferYear(time.March, 14, &fri, ref); !ok || y != 2025 {
		t.Fatalf("inferYear = %d, %v; want 2025", y, ok)
	}
	sat := time.Saturday
	if y, ok := inferYear(time.March, 14, &sat, ref); !ok || y != 2026 {
		t.Fatalf("inferYear = %d, %v; want 2026", y, ok)
	}
}

func TestFindClock(t *testing.T) {
	tests := []struct {
		in           string
		hour, minute int
		ok           bool
	}{
		{"9 – 11 PM", 21, 0, true},
		{"10 - 2 am", 22, 0, true},
		{"11 to 1 pm", 11, 0, true},
		{"8:30 p.m.", 20, 30, true},
		{"12 am", 0, 0, true},
		{"12pm", 12, 0, true},
		{"21h30", 21, 30, true},
		{"doors open", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, ok := findClock(tt.in)
			if ok != tt.ok || h != tt.hour || m != tt.minute {
				t.Errorf("findClock(%q) = %d:%02d %v, want %d:%02d %v", tt.in, h, m, ok, tt.hour, tt.minute, tt.ok)
			}
		})
	}
}

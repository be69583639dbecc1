package pipeline

import (
	"testing"
	"time"

	"DanceSync/internal/model"
)

func TestTitleKey(t *testing.T) {
	tests := []struct {
		title string
		venue *string
		want  string
	}{
		{"Salsa Night @ The Grand", ptr("The Grand Ballroom"), "salsa night"},
		{"Salsa Night at The Grand Ballroom", ptr("Grand Ballroom"), "salsa night"},
		{"Salsa Night at The Grand Ballroom", nil, "salsa night at the grand ballroom"},
		{"Salsa Night at Millennium Park", ptr("Grand Ballroom"), "salsa night at millennium park"},
		{"A Night at the Opera", ptr("Opera House"), "a night"},
		{"At Last", ptr("Last Call"), "at last"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := TitleKey(tt.title, tt.venue); got != tt.want {
				t.Errorf("TitleKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentityKey(t *testing.T) {
	day := model.Date{Year: 2025, Month: time.March, Day: 14}
	ev := &model.CanonicalEvent{
		Title:     "Salsa Night @ The Grand",
		StartDate: &day,
		VenueName: ptr("The Grand Ballroom"),
	}
	if got, want := IdentityKey(ev), "2025-03-14|grand ballroom|salsa night"; got != want {
		t.Errorf("IdentityKey = %q, want %q", got, want)
	}

	// 无场馆时退化为地址
	ev.VenueName = nil
	ev.Address = ptr("123 Main St., Chicago")
	if got, want := IdentityKey(ev), "2025-03-14|123 main st chicago|salsa night at the grand"; got != want {
		t.Errorf("IdentityKey = %q, want %q", got, want)
	}

	// 场馆与地址都缺失时按城市区分，不同城市的同名活动不共用一行
	ev.Address = nil
	ev.City, ev.Country = "Chicago", "United States"
	if got, want := IdentityKey(ev), "2025-03-14|@chicago united states|salsa night at the grand"; got != want {
		t.Errorf("IdentityKey = %q, want %q", got, want)
	}
	miami := *ev
	miami.City = "Miami"
	if NaturalKeyOf(ev) == NaturalKeyOf(&miami) {
		t.Errorf("Chicago and Miami share natural key %+v", NaturalKeyOf(ev))
	}

	// 时间戳取其所在时区的日期
	loc := chicago(t)
	at := time.Date(2025, 3, 14, 23, 30, 0, 0, loc)
	ev.StartDate, ev.StartAt = nil, &at
	if got := NaturalKeyOf(ev).EventDay; got != day {
		t.Errorf("EventDay = %v, want %v", got, day)
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"salsa night", "salsa night", 1},
		{"", "", 1},
		{"abc", "", 0},
		{"salsa night", "salsa nights", 1 - 1.0/12},
		{"kitten", "sitting", 1 - 3.0/7},
		{"forró", "forro", 1 - 1.0/5},
	}
	for _, tt := range tests {
		got := LevenshteinSimilarity(tt.a, tt.b)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
		if rev := LevenshteinSimilarity(tt.b, tt.a); rev != got {
			t.Errorf("similarity not symmetric for %q/%q", tt.a, tt.b)
		}
	}
}

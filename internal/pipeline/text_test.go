package pipeline

import (
	"reflect"
	"testing"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		raw, city, want string
	}{
		{"Salsa Night | Buy Tickets", "Chicago", "Salsa Night"},
		{"  Salsa   Night  ", "Chicago", "Salsa Night"},
		{"Salsa Night - Chicago", "Chicago", "Salsa Night"},
		{"Salsa Night in Chicago, IL | Eventbrite", "Chicago", "Salsa Night"},
		{"Bachata Sensual Workshop - Fri, Mar 14", "Chicago", "Bachata Sensual Workshop"},
		{"Kizomba Social | 14/03/2025 | Get Tickets", "Lisbon", "Kizomba Social"},
		{"Zouk &amp; Forró <b>Party</b>", "Chicago", "Zouk & Forró Party"},
		{"Salsa Night @ The Grand", "Chicago", "Salsa Night @ The Grand"},
		{"| Buy Tickets", "Chicago", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := normalizeTitle(&tt.raw, tt.city); got != tt.want {
				t.Errorf("normalizeTitle(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
	if got := normalizeTitle(nil, "Chicago"); got != "" {
		t.Errorf("normalizeTitle(nil) = %q", got)
	}
}

func TestNormalizeVenue(t *testing.T) {
	tests := []struct {
		raw  string
		want *string
	}{
		{"THE GRAND BALLROOM", ptr("The Grand Ballroom")},
		{"grand ballroom | Buy Tickets", ptr("Grand Ballroom")},
		{"  Grand   Ballroom ", ptr("Grand Ballroom")},
		{"DJ's Loft", ptr("DJ's Loft")},
		{"LaSalle CLUB", ptr("LaSalle CLUB")},
		{"   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := normalizeVenue(&tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeVenue(%q) = %v, want %v", tt.raw, deref(got), deref(tt.want))
			}
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	raw := " 123  Main St ,, Chicago , IL "
	got := normalizeAddress(&raw)
	if got == nil || *got != "123 Main St, Chicago, IL" {
		t.Fatalf("normalizeAddress = %v", deref(got))
	}
}

func TestKeyText(t *testing.T) {
	tests := map[string]string{
		"Forró  Night!":             "forro night",
		"Salsa Night @ The Grand":   "salsa night at the grand",
		"Rock & Roll":               "rock and roll",
		"  Café - Tango / Milonga ": "cafe tango milonga",
	}
	for in, want := range tests {
		if got := keyText(in); got != want {
			t.Errorf("keyText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectDanceStyles(t *testing.T) {
	text := styleText(ptr("Forró & Bachata Night"), ptr("Live band plus a beginner class at 8pm. Brazilian Zouk later."))
	want := []string{"Bachata", "Forro", "Zouk"}
	if got := detectDanceStyles(text); !reflect.DeepEqual(got, want) {
		t.Errorf("detectDanceStyles = %v, want %v", got, want)
	}
	if !detectLiveBand(text) {
		t.Error("expected live band")
	}
	if !detectClassBefore(text) {
		t.Error("expected class before")
	}
	if got := detectDanceStyles(styleText(ptr("Jazz brunch at the Grand Ballroom"))); len(got) != 0 {
		t.Errorf("unexpected styles %v", got)
	}
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

package pipeline

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"DanceSync/internal/model"
)

func TestNormalizeRejections(t *testing.T) {
	tests := []struct {
		name   string
		cfg    NormalizerConfig
		mutate func(c *model.CandidateEvent)
		reason model.ReasonCode
	}{
		{"empty raw_start", NormalizerConfig{}, func(c *model.CandidateEvent) { c.RawStart = ptr("") }, model.ReasonNoDate},
		{"nil raw_start", NormalizerConfig{}, func(c *model.CandidateEvent) { c.RawStart = nil }, model.ReasonNoDate},
		{"unparseable start", NormalizerConfig{}, func(c *model.CandidateEvent) { c.RawStart = ptr("date TBA") }, model.ReasonNoDate},
		{"nil title", NormalizerConfig{}, func(c *model.CandidateEvent) { c.RawTitle = nil }, model.ReasonEmptyTitle},
		{"boilerplate only title", NormalizerConfig{}, func(c *model.CandidateEvent) { c.RawTitle = ptr(" | Buy Tickets") }, model.ReasonEmptyTitle},
		{"outside window", NormalizerConfig{}, func(c *model.CandidateEvent) {
			c.Query.Window = model.DateWindow{From: model.Date{Year: 2025, Month: time.April, Day: 1}}
		}, model.ReasonOutOfWindow},
		{"no dance style", NormalizerConfig{RequireDanceStyle: true}, func(c *model.CandidateEvent) { c.RawTitle = ptr("Jazz Brunch") }, model.ReasonNotDance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := salsaRSS()
			tt.mutate(c)
			ev, rej := NewNormalizer(tt.cfg).Normalize(c)
			if ev != nil {
				t.Fatalf("expected rejection, got %+v", ev)
			}
			if rej == nil || rej.Reason != tt.reason || rej.Stage != model.StageNormalizer {
				t.Fatalf("rejection = %v, want %s", rej, tt.reason)
			}
			if rej.SourceID != c.SourceID || rej.SourceRef != c.SourceRef {
				t.Errorf("rejection lost provenance: %+v", rej)
			}
		})
	}
}

func TestNormalizeFields(t *testing.T) {
	ev := mustNormalize(t, salsaTicketmaster())
	if ev.Title != "Salsa Night" || deref(ev.VenueName) != "Grand Ballroom" || deref(ev.Address) != "123 Main St" {
		t.Errorf("text fields = %q %q %q", ev.Title, deref(ev.VenueName), deref(ev.Address))
	}
	if ev.PriceCents == nil || *ev.PriceCents != 1500 || deref(ev.PriceCurrency) != "USD" {
		t.Errorf("price = %v %v", ev.PriceCents, deref(ev.PriceCurrency))
	}
	if ev.City != "Chicago" || ev.Country != "United States" {
		t.Errorf("city/country = %s/%s", ev.City, ev.Country)
	}
	if ev.StartAt == nil || ev.StartAt.Location().String() != "America/Chicago" {
		t.Errorf("start_at should be expressed in the city timezone, got %v", ev.StartAt)
	}
	if len(ev.Sources) != 1 || ev.Sources[0] != salsaTicketmaster().Provenance() {
		t.Errorf("sources = %+v", ev.Sources)
	}
	if ev.IdentityKey != "2025-03-14|grand ballroom|salsa night" {
		t.Errorf("identity key = %q", ev.IdentityKey)
	}
}

func TestNormalizeDefaultTimezone(t *testing.T) {
	c := salsaRSS()
	c.Query.Timezone = ""
	ev, rej := NewNormalizer(NormalizerConfig{DefaultTimezone: "Europe/Lisbon"}).Normalize(c)
	if rej != nil {
		t.Fatal(rej)
	}
	if got := ev.StartAt.Location().String(); got != "Europe/Lisbon" {
		t.Errorf("location = %s", got)
	}

	c.Query.Timezone = "Not/AZone"
	ev, rej = NewNormalizer(NormalizerConfig{}).Normalize(c)
	if rej != nil {
		t.Fatal(rej)
	}
	if ev.StartAt.Location() != time.UTC {
		t.Errorf("invalid zone should fall back to UTC, got %s", ev.StartAt.Location())
	}
}

// 把规范事件还原成候选再规范化一次，结果应当不变
func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})
	for _, c := range []*model.CandidateEvent{salsaSerp(), salsaRSS(), salsaTicketmaster()} {
		t.Run(string(c.SourceID), func(t *testing.T) {
			first, rej := n.Normalize(c)
			if rej != nil {
				t.Fatal(rej)
			}
			again := *c
			again.RawTitle = ptr(first.Title)
			again.RawDescription = first.Description
			again.RawVenue = first.VenueName
			again.RawAddress = first.Address
			again.RawPrice = nil
			if first.PriceCents != nil {
				again.RawPrice = ptr(fmt.Sprintf("%s %d.%02d", deref(first.PriceCurrency), *first.PriceCents/100, *first.PriceCents%100))
			}
			if first.StartAt != nil {
				again.RawStart = ptr(first.StartAt.Format(time.RFC3339))
			} else {
				again.RawStart = ptr(first.StartDate.String())
			}
			second, rej := n.Normalize(&again)
			if rej != nil {
				t.Fatal(rej)
			}
			if !reflect.DeepEqual(snap(first), snap(second)) {
				t.Errorf("not idempotent:\n%+v\n%+v", snap(first), snap(second))
			}

			// 同样的原始输入重复规范化结果相同
			third, _ := n.Normalize(c)
			if !reflect.DeepEqual(snap(first), snap(third)) {
				t.Errorf("not deterministic")
			}
		})
	}
}

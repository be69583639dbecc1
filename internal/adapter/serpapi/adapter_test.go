package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"DanceSync/internal/config"
	"DanceSync/internal/model"

	"github.com/sirupsen/logrus"
)

var chicago = model.QueryContext{
	City:        "Chicago",
	Country:     "United States",
	CountryCode: "US",
	Keyword:     "salsa",
	Timezone:    "America/Chicago",
	Language:    "en",
}

func newTestAdapter(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	a := New(&config.SourceConfig{BaseURL: srv.URL, APIKey: "k", Timeout: 5}, logger).(*Adapter)
	a.fetcher.Backoff = time.Millisecond
	a.now = func() time.Time { return time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC) }
	return a
}

func eventsPage(n, offset int) string {
	var items []string
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(`{"title": "Salsa %d", "date": {"start_date": "Mar 14"}}`, offset+i))
	}
	return `{"events_results": [` + strings.Join(items, ",") + `]}`
}

func TestFetchRecords(t *testing.T) {
	var pages []string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("api_key") != "k" || q.Get("gl") != "us" || q.Get("hl") != "en" || !strings.HasPrefix(q.Get("uule"), "w+CAIQICI") {
			t.Errorf("params = %v", q)
		}
		switch q.Get("engine") {
		case "google_events":
			pages = append(pages, q.Get("start"))
			if q.Get("start") == "" {
				_, _ = w.Write([]byte(eventsPage(10, 0)))
				return
			}
			_, _ = w.Write([]byte(eventsPage(3, 10)))
		case "google":
			_, _ = w.Write([]byte(`{"organic_results": [{"title": "Salsa Fridays", "link": "https://x.test/a", "snippet": "Every Friday"}]}`))
		default:
			t.Errorf("engine = %q", q.Get("engine"))
		}
	})

	records, err := a.FetchRecords(context.Background(), chicago)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 14 {
		t.Fatalf("records = %d, want 14", len(records))
	}
	if fmt.Sprint(pages) != "[ 10]" {
		t.Errorf("pages requested = %q", pages)
	}
	last := records[len(records)-1]
	if last.SourceID != model.SourceSerpAPIOrganic || records[0].SourceID != model.SourceSerpAPIEvents {
		t.Errorf("source ids = %s / %s", records[0].SourceID, last.SourceID)
	}
	if records[0].Query.City != "Chicago" || !records[0].FetchedAt.Equal(a.now()) {
		t.Errorf("record = %+v", records[0])
	}
	var ev model.SerpAPIEventResult
	if err := json.Unmarshal(records[12].Payload, &ev); err != nil || *ev.Title != "Salsa 12" {
		t.Errorf("payload = %s", records[12].Payload)
	}
}

func TestFetchRecordsNoResults(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Google hasn't returned any results for this query."}`))
	})
	records, err := a.FetchRecords(context.Background(), chicago)
	if err != nil || len(records) != 0 {
		t.Fatalf("records=%d err=%v", len(records), err)
	}
}

func TestFetchRecordsPartialFailure(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("engine") == "google_events" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"organic_results": [{"title": "x", "link": "https://x.test"}]}`))
	})
	records, err := a.FetchRecords(context.Background(), chicago)
	if err != nil || len(records) != 1 {
		t.Fatalf("records=%d err=%v", len(records), err)
	}
}

func TestFetchRecordsFailure(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Invalid API key."}`))
	})
	if _, err := a.FetchRecords(context.Background(), chicago); err == nil {
		t.Fatal("expected error")
	}
}

func TestUULE(t *testing.T) {
	got := uule("Chicago,United States")
	// 21 个字符 -> 'V'
	if got != "w+CAIQICIVQ2hpY2FnbyxVbml0ZWQgU3RhdGVz" {
		t.Errorf("uule = %s", got)
	}
}

func TestQueries(t *testing.T) {
	if got := eventsQuery(chicago); got != "salsa events in Chicago" {
		t.Errorf("eventsQuery = %q", got)
	}
	if got := eventsQuery(model.QueryContext{City: "Chicago"}); got != defaultEventsQuery {
		t.Errorf("default eventsQuery = %q", got)
	}
	if got := canonicalLocation(model.QueryContext{City: "Lisbon"}); got != "Lisbon" {
		t.Errorf("canonicalLocation = %q", got)
	}
}

package httpclient

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"DanceSync/internal/config"

	"github.com/sirupsen/logrus"
)

func testFetcher(retries int) *Fetcher {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	f := NewFetcher(&config.SourceConfig{Timeout: 5, RetryCount: retries}, logger)
	f.Backoff = time.Millisecond
	return f
}

func TestFetcherRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	if err := testFetcher(3).GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if !out.OK || calls.Load() != 3 {
		t.Errorf("ok=%v calls=%d", out.OK, calls.Load())
	}
}

func TestFetcherGivesUp(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retries   int
		wantCalls int32
	}{
		{"not found is final", http.StatusNotFound, 3, 1},
		{"rate limit exhausts retries", http.StatusTooManyRequests, 2, 3},
		{"server error exhausts retries", http.StatusBadGateway, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := testFetcher(tt.retries).Get(context.Background(), srv.URL)
			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != tt.status {
				t.Fatalf("err = %v", err)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestFetcherCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := testFetcher(5)
	f.Backoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := f.Get(ctx, srv.URL); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestGzipResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			t.Errorf("Accept-Encoding = %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("<rss>compressed</rss>"))
		_ = gz.Close()
	}))
	defer srv.Close()

	body, err := testFetcher(0).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "<rss>compressed</rss>" {
		t.Errorf("body = %q", body)
	}
}

func TestRedact(t *testing.T) {
	got := redact("https://serpapi.com/search.json?api_key=secret&q=salsa")
	if strings.Contains(got, "secret") || !strings.Contains(got, "q=salsa") {
		t.Errorf("redact = %s", got)
	}
}

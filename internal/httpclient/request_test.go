package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimitRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient(
		WithProviderName("test"),
		WithBaseURL(srv.URL),
		WithRateLimitRetry(3, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewInstrumentedClient: %v", err)
	}

	var out struct {
		OK bool `json:"ok"`
	}
	resp, err := client.NewRequest().SetResult(&out).Get(context.Background(), "/data")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after retries", resp.StatusCode)
	}
	if !out.OK {
		t.Error("result not unmarshaled")
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestRateLimitRetryExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient(
		WithProviderName("test"),
		WithBaseURL(srv.URL),
		WithRateLimitRetry(2, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewInstrumentedClient: %v", err)
	}

	resp, err := client.NewRequest().Get(context.Background(), "/data")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 after exhausting retries", resp.StatusCode)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hit %d times, want 2", got)
	}
}

func TestNoRetryConfiguredMakesOneAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient(
		WithProviderName("test"),
		WithBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("NewInstrumentedClient: %v", err)
	}

	if _, err := client.NewRequest().Get(context.Background(), "/data"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}

package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shohag/cimonitor/internal/config"
)

func newTestRelay(url string, mutate func(*config.NotifyConfig)) *Relay {
	cfg := config.NotifyConfig{
		SlackWebhookURL: url,
		Timeout:         2 * time.Second,
		MaxAttempts:     1,
		RetrySchedule:   []time.Duration{time.Millisecond},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewRelay(cfg, zerolog.Nop())
}

func TestSendNotConfigured(t *testing.T) {
	result := newTestRelay("", nil).Send(context.Background(), "hello")

	if result.Outcome != OutcomeNotConfigured {
		t.Fatalf("Outcome = %s, want %s", result.Outcome, OutcomeNotConfigured)
	}
	if !strings.Contains(result.String(), "SLACK_WEBHOOK_URL is not configured") {
		t.Fatalf("String() = %q", result.String())
	}
}

func TestSendSuccess(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	result := newTestRelay(srv.URL, nil).Send(context.Background(), "*CI* passed")

	if !result.OK() {
		t.Fatalf("result = %+v", result)
	}
	if result.String() != "Notification sent successfully" {
		t.Fatalf("String() = %q", result.String())
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody["text"] != "*CI* passed" || gotBody["mrkdwn"] != true {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("invalid_token"))
	}))
	defer srv.Close()

	result := newTestRelay(srv.URL, func(c *config.NotifyConfig) { c.MaxAttempts = 3 }).
		Send(context.Background(), "hi")

	if result.Outcome != OutcomeRejected {
		t.Fatalf("Outcome = %s", result.Outcome)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, a 403 must not be retried", result.Attempts)
	}
	if got, want := result.String(), "Failed to send notification: HTTP 403 - invalid_token"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	result := newTestRelay(url, nil).Send(context.Background(), "hi")

	if result.Outcome != OutcomeTransport {
		t.Fatalf("Outcome = %s", result.Outcome)
	}
	if !strings.HasPrefix(result.String(), "Error sending notification: ") || result.Error == "" {
		t.Fatalf("String() = %q", result.String())
	}
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	relay := newTestRelay(srv.URL, func(c *config.NotifyConfig) { c.Timeout = 50 * time.Millisecond })
	start := time.Now()
	result := relay.Send(context.Background(), "hi")

	if result.Outcome != OutcomeTransport {
		t.Fatalf("Outcome = %s", result.Outcome)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Send took %v, timeout not applied", elapsed)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	result := newTestRelay(srv.URL, func(c *config.NotifyConfig) { c.MaxAttempts = 5 }).
		Send(context.Background(), "hi")

	if !result.OK() {
		t.Fatalf("result = %+v", result)
	}
	if result.Attempts != 3 || calls.Load() != 3 {
		t.Fatalf("Attempts = %d, calls = %d, want 3", result.Attempts, calls.Load())
	}
}

func TestNewRelayDefaults(t *testing.T) {
	r := NewRelay(config.NotifyConfig{SlackWebhookURL: "http://example.invalid"}, zerolog.Nop())
	if r.client.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", r.client.Timeout, DefaultTimeout)
	}
	if r.maxAttempts != 1 {
		t.Errorf("maxAttempts = %d, want 1", r.maxAttempts)
	}
}

func TestRetryDelay(t *testing.T) {
	schedule := []time.Duration{time.Second, 2 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{7, 2 * time.Second},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.attempt, schedule); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
	if got := retryDelay(1, nil); got != 0 {
		t.Errorf("retryDelay with empty schedule = %v", got)
	}
}

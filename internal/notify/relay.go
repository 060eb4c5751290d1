// Package notify relays messages to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/shohag/cimonitor/internal/config"
)

const (
	DefaultTimeout = 10 * time.Second

	maxResponseBody = 1024
)

type slackMessage struct {
	Text     string `json:"text"`
	Markdown bool   `json:"mrkdwn"`
}

type Relay struct {
	url           string
	client        *http.Client
	maxAttempts   int
	retrySchedule []time.Duration
	log           zerolog.Logger
}

func NewRelay(cfg config.NotifyConfig, log zerolog.Logger) *Relay {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	schedule := cfg.RetrySchedule
	if len(schedule) == 0 {
		schedule = DefaultRetrySchedule
	}

	return &Relay{
		url: cfg.SlackWebhookURL,
		client: &http.Client{
			Timeout: timeout,
		},
		maxAttempts:   attempts,
		retrySchedule: schedule,
		log:           log,
	}
}

func (r *Relay) Configured() bool {
	return r.url != ""
}

// Send posts message to Slack. It never fails with an error: a missing URL,
// a non-2xx answer and a transport failure are all described in the Result.
func (r *Relay) Send(ctx context.Context, message string) Result {
	if !r.Configured() {
		r.log.Warn().Msg("slack notification requested but no webhook URL is configured")
		return Result{Outcome: OutcomeNotConfigured}
	}

	body, err := json.Marshal(slackMessage{Text: message, Markdown: true})
	if err != nil {
		return Result{Outcome: OutcomeTransport, Error: fmt.Sprintf("failed to encode message: %v", err)}
	}

	var result Result
	for attempt := 1; ; attempt++ {
		result = r.post(ctx, body)
		result.Attempts = attempt

		if result.OK() || !retryable(result) || attempt >= r.maxAttempts {
			break
		}

		delay := retryDelay(attempt, r.retrySchedule)
		r.log.Info().
			Int("attempt", attempt).
			Str("outcome", string(result.Outcome)).
			Dur("retry_in", delay).
			Msg("slack notification failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.Outcome = OutcomeTransport
			result.Error = ctx.Err().Error()
			return result
		case <-timer.C:
		}
	}

	event := r.log.Info()
	if !result.OK() {
		event = r.log.Warn().Str("error", result.Error)
	}
	event.
		Str("outcome", string(result.Outcome)).
		Int("status_code", result.StatusCode).
		Int("attempts", result.Attempts).
		Int64("latency_ms", result.LatencyMs).
		Msg("slack notification")

	return result
}

func (r *Relay) post(ctx context.Context, body []byte) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return Result{
			Outcome:   OutcomeTransport,
			Error:     fmt.Sprintf("failed to create request: %v", err),
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "cimonitor/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return Result{
			Outcome:   OutcomeTransport,
			Error:     err.Error(),
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	result := Result{
		Outcome:      OutcomeSent,
		StatusCode:   resp.StatusCode,
		ResponseBody: string(respBody),
		LatencyMs:    time.Since(start).Milliseconds(),
	}
	if !IsSuccess(resp.StatusCode) {
		result.Outcome = OutcomeRejected
	}
	return result
}

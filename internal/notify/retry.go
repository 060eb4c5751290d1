package notify

import "time"

var DefaultRetrySchedule = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	15 * time.Second,
}

// retryDelay returns the wait before the next attempt. attempt is 1-indexed
// (attempt 1 just happened); past the end of the schedule the last delay is
// reused.
func retryDelay(attempt int, schedule []time.Duration) time.Duration {
	if len(schedule) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	return schedule[idx]
}

func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// retryable reports whether another attempt could change the outcome:
// transport failures, throttling and server errors.
func retryable(r Result) bool {
	switch r.Outcome {
	case OutcomeTransport:
		return true
	case OutcomeRejected:
		return r.StatusCode == 429 || r.StatusCode >= 500
	default:
		return false
	}
}

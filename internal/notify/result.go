package notify

import "fmt"

// Outcome classifies a relay call. Every outcome is reported to the caller
// as text; none of them is a Go error.
type Outcome string

const (
	OutcomeSent          Outcome = "sent"
	OutcomeNotConfigured Outcome = "not_configured"
	OutcomeRejected      Outcome = "rejected"
	OutcomeTransport     Outcome = "transport_error"
)

type Result struct {
	Outcome      Outcome `json:"outcome"`
	StatusCode   int     `json:"status_code,omitempty"`
	ResponseBody string  `json:"response_body,omitempty"`
	Error        string  `json:"error,omitempty"`
	Attempts     int     `json:"attempts"`
	LatencyMs    int64   `json:"latency_ms"`
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeSent
}

// String is the message handed back to the agent that asked for the
// notification.
func (r Result) String() string {
	switch r.Outcome {
	case OutcomeSent:
		return "Notification sent successfully"
	case OutcomeNotConfigured:
		return "Error: SLACK_WEBHOOK_URL is not configured"
	case OutcomeRejected:
		return fmt.Sprintf("Failed to send notification: HTTP %d - %s", r.StatusCode, r.ResponseBody)
	default:
		return fmt.Sprintf("Error sending notification: %s", r.Error)
	}
}

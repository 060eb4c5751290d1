package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the on-disk form of Event timestamps: ISO-8601 in UTC
// with microseconds and no zone suffix.
const TimestampLayout = "2006-01-02T15:04:05.000000"

type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Microsecond)}
}

// ParseTimestamp accepts the layout written by this service as well as
// RFC 3339 timestamps carrying a zone.
func ParseTimestamp(s string) (Timestamp, error) {
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return NewTimestamp(t), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return NewTimestamp(t), nil
}

func (t Timestamp) String() string {
	return t.UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Event is a single received webhook. EventType is nil when the request
// carried no X-GitHub-Event header.
type Event struct {
	Timestamp Timestamp `json:"timestamp"`
	EventType *string   `json:"event_type"`
	Payload   Value     `json:"payload"`
}

func NewEvent(at time.Time, eventType *string, payload Value) Event {
	return Event{
		Timestamp: NewTimestamp(at),
		EventType: eventType,
		Payload:   payload,
	}
}

// Type returns the event type, or "" when none was sent.
func (e Event) Type() string {
	if e.EventType == nil {
		return ""
	}
	return *e.EventType
}

// RawPayloadKey holds the request body of webhooks that were not valid JSON.
const RawPayloadKey = "raw"

// PayloadFromBody parses body as JSON. Bodies that do not parse are kept
// verbatim as {"raw": "<body>"}.
func PayloadFromBody(body []byte) Value {
	v, err := ParseValue(body)
	if err != nil {
		return Object(Member{Key: RawPayloadKey, Value: String(string(body))})
	}
	return v
}

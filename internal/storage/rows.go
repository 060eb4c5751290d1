package storage

import (
	"encoding/json"
	"fmt"

	"github.com/shohag/cimonitor/internal/models"
)

// eventRow is the column form shared by the database drivers.
type eventRow struct {
	ID        string
	Timestamp string
	EventType *string
	Payload   string
}

func newEventRow(event *models.Event) (eventRow, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return eventRow{}, fmt.Errorf("encode payload: %w", err)
	}
	return eventRow{
		ID:        models.NewID("evt"),
		Timestamp: event.Timestamp.String(),
		EventType: event.EventType,
		Payload:   string(payload),
	}, nil
}

func (r eventRow) event() (models.Event, error) {
	ts, err := models.ParseTimestamp(r.Timestamp)
	if err != nil {
		return models.Event{}, fmt.Errorf("event %s: %w", r.ID, err)
	}
	payload, err := models.ParseValue([]byte(r.Payload))
	if err != nil {
		return models.Event{}, fmt.Errorf("event %s payload: %w", r.ID, err)
	}
	return models.Event{
		Timestamp: ts,
		EventType: r.EventType,
		Payload:   payload,
	}, nil
}

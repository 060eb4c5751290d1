// Package events answers questions about the received webhook log.
package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/shohag/cimonitor/internal/models"
	"github.com/shohag/cimonitor/internal/storage"
)

// DefaultRecentLimit is used by callers that do not pass a limit.
const DefaultRecentLimit = 10

type Service struct {
	store storage.Storage
	log   zerolog.Logger
}

func NewService(store storage.Storage, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Recent returns the last limit events in arrival order. A limit of zero
// returns the whole log and a negative limit drops that many events from
// the front, the same as slicing from -limit.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.Event, error) {
	all, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return tail(all, limit), nil
}

func tail(events []models.Event, limit int) []models.Event {
	n := len(events)
	var start int
	switch {
	case limit > 0:
		start = n - limit
	case limit < 0:
		start = -limit
	}
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	return events[start:]
}

// WorkflowStatus maps each workflow name to the conclusion of its most
// recent workflow_run event. The result is a JSON object in the order the
// workflows were first seen; conclusions are usually strings, or null for
// runs that have not finished.
func (s *Service) WorkflowStatus(ctx context.Context) (models.Value, error) {
	all, err := s.store.ReadAll(ctx)
	if err != nil {
		return models.Value{}, err
	}

	status := models.Object()
	for _, e := range all {
		run, ok := e.Payload.Get("workflow_run")
		if !ok || run.Kind() != models.KindObject {
			continue
		}
		nameValue, _ := run.Get("name")
		name, ok := nameValue.AsString()
		if !ok {
			s.log.Debug().Str("timestamp", e.Timestamp.String()).Msg("skipping workflow_run without a name")
			continue
		}
		conclusion, _ := run.Get("conclusion")
		status.Set(name, conclusion)
	}
	return status, nil
}

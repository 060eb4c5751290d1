package storage

import (
	"context"

	"github.com/shohag/cimonitor/internal/models"
)

// Storage is the event log. Append calls are serialized by every
// implementation; ReadAll may run concurrently with them and returns the
// events in arrival order. A log that was never written reads as empty.
type Storage interface {
	Append(ctx context.Context, event *models.Event) error
	ReadAll(ctx context.Context) ([]models.Event, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

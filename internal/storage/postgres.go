package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shohag/cimonitor/internal/models"
)

// PostgresStorage keeps payloads in a json column (not jsonb) so the
// key order of each webhook body is preserved.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

func (s *PostgresStorage) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS github_events (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			timestamp TEXT NOT NULL,
			event_type TEXT,
			payload JSON NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_github_events_type ON github_events(event_type)`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStorage) Append(ctx context.Context, event *models.Event) error {
	row, err := newEventRow(event)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO github_events (id, timestamp, event_type, payload) VALUES ($1, $2, $3, $4::json)`,
		row.ID, row.Timestamp, row.EventType, row.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ReadAll(ctx context.Context) ([]models.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, timestamp, event_type, payload::text FROM github_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var row eventRow
		if err := rows.Scan(&row.ID, &row.Timestamp, &row.EventType, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		event, err := row.event()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shohag/cimonitor/internal/models"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			timestamp TEXT NOT NULL,
			event_type TEXT,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) Append(ctx context.Context, event *models.Event) error {
	row, err := newEventRow(event)
	if err != nil {
		return err
	}

	var eventType sql.NullString
	if row.EventType != nil {
		eventType = sql.NullString{String: *row.EventType, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, timestamp, event_type, payload) VALUES (?, ?, ?, ?)`,
		row.ID, row.Timestamp, eventType, row.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ReadAll(ctx context.Context) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, event_type, payload FROM events ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var row eventRow
		var eventType sql.NullString
		if err := rows.Scan(&row.ID, &row.Timestamp, &eventType, &row.Payload); err != nil {
			return nil, err
		}
		if eventType.Valid {
			row.EventType = &eventType.String
		}

		event, err := row.event()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/shohag/cimonitor/internal/models"
)

// JSONFileStorage keeps the whole log as one pretty-printed JSON array.
// Every Append rewrites the file: the new contents go to a temp file in the
// same directory which is then renamed over the log, so ReadAll never sees
// a half-written file.
type JSONFileStorage struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

func NewJSONFile(fs afero.Fs, path string) *JSONFileStorage {
	return &JSONFileStorage{fs: fs, path: path}
}

func (s *JSONFileStorage) Path() string {
	return s.path
}

// Migrate makes sure the log's directory exists. The file itself is created
// by the first Append.
func (s *JSONFileStorage) Migrate(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create event log directory: %w", err)
	}
	return nil
}

func (s *JSONFileStorage) Close() error {
	return nil
}

func (s *JSONFileStorage) ReadAll(ctx context.Context) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.load()
}

func (s *JSONFileStorage) Append(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	events, err := s.load()
	if err != nil {
		return err
	}
	events = append(events, *event)

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encode event log: %w", err)
	}
	return s.writeFile(data)
}

func (s *JSONFileStorage) load() ([]models.Event, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	if len(data) == 0 {
		return []models.Event{}, nil
	}

	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode event log %s: %w", s.path, err)
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func (s *JSONFileStorage) writeFile(data []byte) error {
	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}

	tmp, err := afero.TempFile(s.fs, dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp event log: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("write temp event log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("sync temp event log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("close temp event log: %w", err)
	}
	if err := s.fs.Chmod(tmpName, 0o644); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("chmod temp event log: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("replace event log: %w", err)
	}
	return nil
}

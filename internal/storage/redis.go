package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/shohag/cimonitor/internal/models"
)

// RedisStorage keeps the log as a Redis list, one JSON-encoded event per
// element. RPUSH is atomic, so concurrent writers never drop events.
type RedisStorage struct {
	client *redis.Client
	key    string
}

func NewRedis(ctx context.Context, redisURL, key string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisStorage{client: client, key: key}, nil
}

func (s *RedisStorage) Migrate(ctx context.Context) error {
	return nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}

func (s *RedisStorage) Append(ctx context.Context, event *models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("push event: %w", err)
	}
	return nil
}

func (s *RedisStorage) ReadAll(ctx context.Context) ([]models.Event, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}

	events := make([]models.Event, 0, len(items))
	for i, item := range items {
		var event models.Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", i, err)
		}
		events = append(events, event)
	}
	return events, nil
}

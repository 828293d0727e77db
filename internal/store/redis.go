package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/i474232898/weather-widgets/internal/weather"
)

// WIDGETS_KEY_V1 holds the JSON-encoded widget list.
const WIDGETS_KEY_V1 = "weather_widgets_v1"

// RedisClient is the subset of *redis.Client the persister uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisPersister keeps the widget list under a single Redis key.
type RedisPersister struct {
	client  RedisClient
	key     string
	timeout time.Duration
}

// NewRedisPersister returns a persister using client. An empty key uses WIDGETS_KEY_V1.
func NewRedisPersister(client RedisClient, key string) *RedisPersister {
	if key == "" {
		key = WIDGETS_KEY_V1
	}
	return &RedisPersister{client: client, key: key, timeout: 5 * time.Second}
}

// NewRedisClient builds a go-redis client and checks connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Load reads the saved widgets. A missing key is an empty list.
func (p *RedisPersister) Load() ([]weather.Widget, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	str, err := p.client.Get(ctx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get widgets from redis: %w", err)
	}
	return decodeWidgets([]byte(str))
}

// Save stores the whole list under the key.
func (p *RedisPersister) Save(widgets []weather.Widget) error {
	data, err := json.Marshal(widgets)
	if err != nil {
		return fmt.Errorf("failed to marshal widgets: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.client.Set(ctx, p.key, string(data), 0).Err(); err != nil {
		return fmt.Errorf("failed to set widgets in redis: %w", err)
	}
	return nil
}

// Clear deletes the key.
func (p *RedisPersister) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("failed to delete widgets key %s: %w", p.key, err)
	}
	return nil
}

var _ Persister = (*RedisPersister)(nil)

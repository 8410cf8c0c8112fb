package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps the same JSON blob the file backend writes under a
// single redis key.
type RedisBackend struct {
	client *redis.Client
	key    string
}

type RedisOption func(*RedisBackend)

func WithKey(key string) RedisOption {
	return func(b *RedisBackend) {
		b.key = key
	}
}

// NewRedisBackend connects using a redis:// URL.
func NewRedisBackend(url string, opts ...RedisOption) (*RedisBackend, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisBackendFromClient(redis.NewClient(o), opts...), nil
}

func NewRedisBackendFromClient(client *redis.Client, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{
		client: client,
		key:    "jarvis:history",
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RedisBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", b.key, err)
	}
	return data, nil
}

func (b *RedisBackend) Write(ctx context.Context, data []byte) error {
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/ticketcart/pkg/redis"
)

type snapshotStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	CartKey(storageKey string) string
}

// RedisStorage keeps one string value per key. Every save refreshes the TTL.
type RedisStorage struct {
	store snapshotStore
	ttl   time.Duration
}

func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{store: client, ttl: ttl}
}

func (s *RedisStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.store.GetBytes(ctx, s.store.CartKey(key))
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get cart snapshot: %w", err)
	}
	return data, nil
}

func (s *RedisStorage) Save(ctx context.Context, key string, data []byte) error {
	if err := s.store.Set(ctx, s.store.CartKey(key), data, s.ttl); err != nil {
		return fmt.Errorf("redis set cart snapshot: %w", err)
	}
	return nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultNamespace = "flightline"
	defaultTTL       = 12 * time.Hour
)

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithNamespace sets the key prefix.
func WithNamespace(ns string) RedisOption {
	return func(s *RedisStore) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithTTL sets how long a selection lives after it was last set.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// RedisStore is a Store shared by every API replica.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

// NewRedisStore connects to redisURL (e.g. "redis://localhost:6379/0") and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, opts ...RedisOption) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	s := NewRedisStoreWithClient(redis.NewClient(redisOpts), opts...)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.client.Ping(pingCtx).Err(); err != nil {
		_ = s.client.Close()

		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return s, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		namespace: defaultNamespace,
		ttl:       defaultTTL,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *RedisStore) key(sessionID string) string {
	return s.namespace + ":session:" + sessionID + ":aircraft"
}

func (s *RedisStore) Aircraft(ctx context.Context, sessionID string) (string, error) {
	aircraftID, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoAircraft
	}

	if err != nil {
		return "", fmt.Errorf("failed to get session aircraft: %w", err)
	}

	return aircraftID, nil
}

func (s *RedisStore) SetAircraft(ctx context.Context, sessionID, aircraftID string) error {
	if err := s.client.Set(ctx, s.key(sessionID), aircraftID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session aircraft: %w", err)
	}

	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session aircraft: %w", err)
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoToken indicates that no credential token is persisted.
var ErrNoToken = errors.New("session: no stored token")

// TokenStore persists a single opaque bearer token under a fixed key.
// Written on successful login, read on initialize, cleared on logout or
// when upstream signals the token expired.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// RedisTokenStore keeps the token in Redis scoped to one gateway session.
type RedisTokenStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisTokenStore constructs a store for the given session scope.
func NewRedisTokenStore(client *redis.Client, scope string, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: "authtoken:" + scope, ttl: ttl}
}

// Load reads the persisted token.
func (s *RedisTokenStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("session: load token: %w", err)
	}
	return token, nil
}

// Save persists the token with the configured lifetime.
func (s *RedisTokenStore) Save(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	return nil
}

// Clear removes the token. Clearing an absent token is not an error.
func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: clear token: %w", err)
	}
	return nil
}

// MemoryTokenStore is an in-process TokenStore, used in tests.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

// Load reads the stored token.
func (s *MemoryTokenStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return "", ErrNoToken
	}
	return s.token, nil
}

// Save stores the token.
func (s *MemoryTokenStore) Save(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = token, true
	return nil
}

// Clear removes the token.
func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = "", false
	return nil
}

var (
	_ TokenStore = (*RedisTokenStore)(nil)
	_ TokenStore = (*MemoryTokenStore)(nil)
)

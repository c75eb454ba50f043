package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Manager hands out one Store per gateway session. Stores are created on
// demand and hydrated through Initialize, so a process restart recovers
// authenticated sessions from the persisted tokens.
type Manager struct {
	api    AuthAPI
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager constructs a Manager backed by the given Redis client for
// token persistence.
func NewManager(api AuthAPI, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		api:    api,
		redis:  client,
		ttl:    ttl,
		logger: logger,
		stores: make(map[string]*Store),
	}
}

// Get returns the Store for the given session scope, initializing it on
// first touch.
func (m *Manager) Get(ctx context.Context, scope string) *Store {
	m.mu.Lock()
	store, ok := m.stores[scope]
	if !ok {
		store = NewStore(m.api, NewRedisTokenStore(m.redis, scope, m.ttl), m.logger)
		m.stores[scope] = store
	}
	m.mu.Unlock()

	if !ok {
		store.Initialize(ctx)
	}
	return store
}

// Evict drops the cached Store for a scope, e.g. after logout. The next
// Get re-initializes from the token store.
func (m *Manager) Evict(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, scope)
}

// Len reports how many stores are resident, used by the prune job.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// Reap runs PruneUnauthenticated on the given interval until the context
// is canceled. Every cookie-less request mints a session scope, so the
// resident map grows with anonymous traffic; the reaper runs in the
// process that owns the map.
func (m *Manager) Reap(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := m.PruneUnauthenticated(); pruned > 0 {
				m.logger.Info("pruned session stores",
					slog.Int("pruned", pruned), slog.Int("resident", m.Len()))
			}
		}
	}
}

// PruneUnauthenticated drops resident stores that hold no principal. Their
// state is fully recoverable from the token store, so eviction is safe.
func (m *Manager) PruneUnauthenticated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	pruned := 0
	for scope, store := range m.stores {
		if snap := store.Snapshot(); !snap.IsAuthenticated && !snap.IsLoading {
			delete(m.stores, scope)
			pruned++
		}
	}
	return pruned
}

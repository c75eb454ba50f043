package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/shohoj-krishi/shohoj-krishi/internal/session"
)

func newManager(t *testing.T, api session.AuthAPI) (*session.Manager, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewManager(api, client, time.Hour, nil), client
}

func TestManagerHydratesFromPersistedToken(t *testing.T) {
	api := &fakeAPI{verifyUser: farmer()}
	manager, client := newManager(t, api)

	// A token persisted by a previous process under the session scope.
	require.NoError(t, client.Set(context.Background(), "authtoken:sess-1", "tok-1", time.Hour).Err())

	store := manager.Get(context.Background(), "sess-1")
	snap := store.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.Equal(t, "tok-1", store.Token())
}

func TestManagerReturnsSameStoreForScope(t *testing.T) {
	manager, _ := newManager(t, &fakeAPI{})

	a := manager.Get(context.Background(), "sess-2")
	b := manager.Get(context.Background(), "sess-2")
	require.Same(t, a, b)
	require.Equal(t, 1, manager.Len())
}

func TestManagerEvict(t *testing.T) {
	manager, _ := newManager(t, &fakeAPI{})

	a := manager.Get(context.Background(), "sess-3")
	manager.Evict("sess-3")
	b := manager.Get(context.Background(), "sess-3")
	require.NotSame(t, a, b)
}

func TestManagerReapEvictsAnonymousStores(t *testing.T) {
	manager, _ := newManager(t, &fakeAPI{})

	for _, scope := range []string{"anon-1", "anon-2", "anon-3"} {
		manager.Get(context.Background(), scope)
	}
	require.Equal(t, 3, manager.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		manager.Reap(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return manager.Len() == 0 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop on context cancel")
	}
}

func TestManagerPruneUnauthenticated(t *testing.T) {
	api := &fakeAPI{verifyUser: farmer()}
	manager, client := newManager(t, api)

	require.NoError(t, client.Set(context.Background(), "authtoken:signed-in", "tok-1", time.Hour).Err())
	manager.Get(context.Background(), "signed-in")
	manager.Get(context.Background(), "anonymous")
	require.Equal(t, 2, manager.Len())

	pruned := manager.PruneUnauthenticated()
	require.Equal(t, 1, pruned)
	require.Equal(t, 1, manager.Len())

	// The authenticated store survives.
	snap := manager.Get(context.Background(), "signed-in").Snapshot()
	require.True(t, snap.IsAuthenticated)
}

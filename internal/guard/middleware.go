package guard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shohoj-krishi/shohoj-krishi/internal/observability"
	"github.com/shohoj-krishi/shohoj-krishi/internal/platform/httpx"
	"github.com/shohoj-krishi/shohoj-krishi/internal/roles"
	"github.com/shohoj-krishi/shohoj-krishi/internal/session"
	"github.com/shohoj-krishi/shohoj-krishi/internal/shared"
)

type storeKey struct{}

// ContextWithStore attaches a session store to the context.
func ContextWithStore(ctx context.Context, store *session.Store) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// StoreFromContext extracts the session store set by Attach.
func StoreFromContext(ctx context.Context) *session.Store {
	store, _ := ctx.Value(storeKey{}).(*session.Store)
	return store
}

// Middleware wires session resolution and role gates for HTTP routes.
type Middleware struct {
	Sessions *session.Manager
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Attach resolves the gateway session into a session store and puts it on
// the request context. It does not gate anything by itself.
func (m Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}
		store := m.Sessions.Get(r.Context(), sess.ID)
		m.expireEarly(r.Context(), store)
		next.ServeHTTP(w, r.WithContext(ContextWithStore(r.Context(), store)))
	})
}

// RequireAuth admits only authenticated sessions.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := StoreFromContext(r.Context())
		if store == nil || !store.Snapshot().IsAuthenticated {
			m.count(ActionSignIn)
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoles admits only principals holding one of the given roles.
// Role mismatches are reported, never silently rendered past.
func (m Middleware) RequireRoles(allowed ...roles.Role) func(http.Handler) http.Handler {
	req := RequireAnyRole(allowed...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := StoreFromContext(r.Context())
			if store == nil {
				m.count(ActionSignIn)
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			snap := store.Snapshot()
			if snap.IsLoading || !snap.IsAuthenticated || snap.User == nil {
				m.count(ActionSignIn)
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if !req.satisfied(snap.User.Role) {
				m.count(ActionUnauthorized)
				if m.Logger != nil {
					m.Logger.Warn("role gate denied",
						slog.String("path", r.URL.Path),
						slog.String("role", string(snap.User.Role)))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "role not permitted for this view")
				return
			}
			m.count(ActionAllow)
			next.ServeHTTP(w, r)
		})
	}
}

// expireEarly forces a local logout when the bearer token is visibly past
// its exp claim, instead of letting the next upstream call bounce with 401.
func (m Middleware) expireEarly(ctx context.Context, store *session.Store) {
	token := store.Token()
	if token == "" || !TokenExpired(token, time.Now()) {
		return
	}
	if m.Logger != nil {
		m.Logger.Info("bearer token expired, clearing session")
	}
	store.Logout(ctx)
}

func (m Middleware) count(action Action) {
	if m.Metrics != nil {
		m.Metrics.GuardDecision(action.String())
	}
}

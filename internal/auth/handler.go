// Package auth exposes the gateway's session endpoints: login, logout,
// session introspection, profile updates, password flows and the
// navigation check the web client consults before rendering a route.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shohoj-krishi/shohoj-krishi/internal/audit"
	"github.com/shohoj-krishi/shohoj-krishi/internal/authapi"
	"github.com/shohoj-krishi/shohoj-krishi/internal/guard"
	"github.com/shohoj-krishi/shohoj-krishi/internal/i18n"
	"github.com/shohoj-krishi/shohoj-krishi/internal/observability"
	"github.com/shohoj-krishi/shohoj-krishi/internal/platform/httpx"
	"github.com/shohoj-krishi/shohoj-krishi/internal/roles"
	"github.com/shohoj-krishi/shohoj-krishi/internal/session"
	"github.com/shohoj-krishi/shohoj-krishi/internal/shared"
)

// PasswordAPI is the slice of the identity API behind the password flows.
type PasswordAPI interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, password string) error
	ChangePassword(ctx context.Context, token, current, next string) error
	RefreshToken(ctx context.Context, token string) (string, error)
}

var _ PasswordAPI = (*authapi.Client)(nil)

// Handler wires the auth endpoints.
type Handler struct {
	logger   *slog.Logger
	sessions *session.Manager
	cookies  *shared.SessionManager
	csrf     *shared.CSRFManager
	passwd   PasswordAPI
	audit    *audit.Repository
	metrics  *observability.Metrics
	messages *i18n.Catalog
}

// NewHandler constructs an auth Handler.
func NewHandler(
	logger *slog.Logger,
	sessions *session.Manager,
	cookies *shared.SessionManager,
	csrf *shared.CSRFManager,
	passwd PasswordAPI,
	auditRepo *audit.Repository,
	metrics *observability.Metrics,
	messages *i18n.Catalog,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		sessions: sessions,
		cookies:  cookies,
		csrf:     csrf,
		passwd:   passwd,
		audit:    auditRepo,
		metrics:  metrics,
		messages: messages,
	}
}

// MountPublicRoutes registers routes that need no authenticated session.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/auth/session", h.handleSession)
	r.Post("/auth/logout", h.handleLogout)
	r.Delete("/auth/error", h.handleClearError)
	r.Post("/auth/forgot-password", h.handleForgotPassword)
	r.Post("/auth/reset-password", h.handleResetPassword)
	r.Get("/api/navigate", h.handleNavigate)
	r.Get("/unauthorized", h.handleUnauthorized)
}

// MountCredentialRoutes registers routes that accept credentials; mount
// behind the tight per-IP rate limit.
func (h *Handler) MountCredentialRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

// MountProtectedRoutes registers routes requiring an authenticated session.
func (h *Handler) MountProtectedRoutes(r chi.Router) {
	r.Put("/auth/profile", h.handleUpdateProfile)
	r.Put("/auth/change-password", h.handleChangePassword)
	r.Post("/auth/refresh", h.handleRefresh)
	r.Get("/api/me/tabs", h.handleMyTabs)
	r.Get("/api/me/features/{feature}", h.handleMyFeature)
}

// handleSession reports the session snapshot plus a CSRF token for
// subsequent mutating requests. The web client calls this on boot.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	store := guard.StoreFromContext(r.Context())
	if store == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	snap := store.Snapshot()

	token := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		var err error
		if token, err = h.csrf.EnsureToken(r.Context(), sess); err != nil {
			h.logger.Warn("csrf token issue failed", slog.Any("error", err))
		}
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":            snap.User,
		"isAuthenticated": snap.IsAuthenticated,
		"isLoading":       snap.IsLoading,
		"error":           snap.Error,
		"csrfToken":       token,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds authapi.Credentials
	if err := httpx.DecodeJSON(r, &creds); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid body")
		return
	}
	if creds.Email == "" || creds.Password == "" {
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", map[string]string{
			"email":    "Email is required",
			"password": "Password is required",
		})
		return
	}

	store := guard.StoreFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if store == nil || sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	res := store.Login(r.Context(), creds)
	if h.metrics != nil {
		h.metrics.AuthAttempt("login", res.Success)
	}
	if !res.Success {
		httpx.JSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   h.messages.Localize(r, i18n.KeyLoginFailed, res.Error),
		})
		return
	}

	h.recordLogin(r, sess.ID, res.User)

	// A sign-in redirect stashed the requested path; hand it back once.
	returnTo := sess.Pop(shared.SessionReturnToKey)
	if returnTo == "" || !roles.HasRouteAccess(res.User.Role, returnTo) {
		returnTo = guard.DashboardPath
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"user":     res.User,
		"returnTo": returnTo,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	store := guard.StoreFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if store != nil {
		store.Logout(r.Context())
	}
	if sess != nil {
		if h.audit != nil {
			if err := h.audit.DeleteSession(r.Context(), sess.ID); err != nil {
				h.logger.Warn("audit delete failed", slog.Any("error", err))
			}
		}
		h.sessions.Evict(sess.ID)
		h.cookies.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleClearError(w http.ResponseWriter, r *http.Request) {
	if store := guard.StoreFromContext(r.Context()); store != nil {
		store.ClearError()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var changes authapi.ProfileUpdate
	if err := httpx.DecodeJSON(r, &changes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid body")
		return
	}
	store := guard.StoreFromContext(r.Context())
	if store == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	res := store.UpdateProfile(r.Context(), changes)
	if !res.Success {
		status := http.StatusBadGateway
		if !store.Snapshot().IsAuthenticated {
			// The rejected token ended the session.
			status = http.StatusUnauthorized
		}
		httpx.JSON(w, status, map[string]any{
			"success": false,
			"error":   res.Error,
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    res.User,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	store := guard.StoreFromContext(r.Context())
	if store == nil || store.Token() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	token, err := h.passwd.RefreshToken(r.Context(), store.Token())
	if err != nil {
		if errors.Is(err, authapi.ErrUnauthenticated) {
			store.ForceLogout(r.Context())
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", session.MsgSessionExpired)
			return
		}
		h.logger.Warn("token refresh failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Error", "token refresh failed")
		return
	}
	store.ReplaceToken(r.Context(), token)
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Email == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "email is required")
		return
	}
	// Same response whether or not the address is known.
	if err := h.passwd.ForgotPassword(r.Context(), req.Email); err != nil {
		h.logger.Warn("forgot password upstream failed", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Token == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "reset token is required")
		return
	}
	if len(req.Password) < 8 {
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", map[string]string{
			"password": "Password must be at least 8 characters",
		})
		return
	}
	if err := h.passwd.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid or expired reset token")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid body")
		return
	}
	if len(req.Password) < 8 {
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", map[string]string{
			"password": "Password must be at least 8 characters",
		})
		return
	}
	store := guard.StoreFromContext(r.Context())
	if store == nil || store.Token() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	if err := h.passwd.ChangePassword(r.Context(), store.Token(), req.CurrentPassword, req.Password); err != nil {
		if errors.Is(err, authapi.ErrUnauthenticated) {
			store.ForceLogout(r.Context())
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", session.MsgSessionExpired)
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "password change rejected")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleNavigate answers "may this session see this path". The client
// calls it before rendering a protected route and follows the redirect
// the decision carries.
func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "path query parameter is required")
		return
	}

	store := guard.StoreFromContext(r.Context())
	if store == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	decision := guard.Decide(store.Snapshot(), path, guard.Requirement{})
	if h.metrics != nil {
		h.metrics.GuardDecision(decision.Action.String())
	}
	if decision.Action == guard.ActionSignIn {
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sess.Set(shared.SessionReturnToKey, decision.ReturnTo)
		}
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"action":     decision.Action.String(),
		"redirectTo": decision.RedirectTo,
		"returnTo":   decision.ReturnTo,
		"reason":     decision.Reason,
	})
}

// handleUnauthorized serves the data behind the access-denied view: the
// localized message and where this role may actually go.
func (h *Handler) handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	store := guard.StoreFromContext(r.Context())
	payload := map[string]any{
		"message": h.messages.Localize(r, i18n.KeyUnauthorized, ""),
		"home":    guard.SignInPath,
	}
	if store != nil {
		if snap := store.Snapshot(); snap.IsAuthenticated && snap.User != nil {
			payload["role"] = snap.User.Role
			payload["home"] = guard.DashboardPath
			payload["tabs"] = roles.TabsForRole(snap.User.Role)
		}
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) handleMyTabs(w http.ResponseWriter, r *http.Request) {
	store := guard.StoreFromContext(r.Context())
	snap := store.Snapshot()
	if snap.User == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role": snap.User.Role,
		"tabs": roles.TabsForRole(snap.User.Role),
	})
}

func (h *Handler) handleMyFeature(w http.ResponseWriter, r *http.Request) {
	feature := chi.URLParam(r, "feature")
	store := guard.StoreFromContext(r.Context())
	snap := store.Snapshot()
	if snap.User == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"feature": feature,
		"allowed": roles.HasFeatureAccess(snap.User.Role, feature),
	})
}

// recordLogin writes the sign-in trail row. Best effort; a failed audit
// write never blocks the login.
func (h *Handler) recordLogin(r *http.Request, sessionID string, user *authapi.Principal) {
	if h.audit == nil || user == nil {
		return
	}
	rec := audit.SessionRecord{
		ID:        sessionID,
		UserID:    user.ID,
		Role:      string(user.Role),
		ExpiresAt: time.Now().Add(h.cookies.TTL()),
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if err := h.audit.CreateSession(r.Context(), rec); err != nil {
		h.logger.Warn("audit record failed", slog.Any("error", err))
	}
}

// Package authority proxies the admin review queue for authority
// signups. Everything here runs behind the admin role gate; the gateway
// adds the admin's bearer token and forwards to the identity API.
package authority

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shohoj-krishi/shohoj-krishi/internal/authapi"
	"github.com/shohoj-krishi/shohoj-krishi/internal/guard"
	"github.com/shohoj-krishi/shohoj-krishi/internal/platform/httpx"
	"github.com/shohoj-krishi/shohoj-krishi/internal/session"
)

// ReviewAPI is the slice of the identity API behind the review queue.
type ReviewAPI interface {
	PendingAuthorities(ctx context.Context, token string) ([]authapi.PendingAuthority, error)
	ApproveAuthority(ctx context.Context, token string, userID int64) error
	RejectAuthority(ctx context.Context, token string, userID int64, reason string) error
}

var _ ReviewAPI = (*authapi.Client)(nil)

// Handler wires the admin review endpoints.
type Handler struct {
	logger *slog.Logger
	api    ReviewAPI
}

// NewHandler constructs an authority review Handler.
func NewHandler(logger *slog.Logger, api ReviewAPI) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, api: api}
}

// MountRoutes registers the review routes. Mount behind the admin gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pending", h.handlePending)
	r.Post("/{userID}/approve", h.handleApprove)
	r.Post("/{userID}/reject", h.handleReject)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	token := h.token(r)
	if token == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	pending, err := h.api.PendingAuthorities(r.Context(), token)
	if err != nil {
		h.logger.Warn("pending authorities fetch failed", slog.Any("error", err))
		h.upstreamFailure(w, r, err, "could not load pending authorities")
		return
	}
	if pending == nil {
		pending = []authapi.PendingAuthority{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"pending": pending})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.api.ApproveAuthority(r.Context(), h.token(r), userID); err != nil {
		h.logger.Warn("authority approve failed",
			slog.Int64("user_id", userID), slog.Any("error", err))
		h.upstreamFailure(w, r, err, "approval failed")
		return
	}
	h.logger.Info("authority approved", slog.Int64("user_id", userID))
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Reason == "" {
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", map[string]string{
			"reason": "Rejection reason is required",
		})
		return
	}
	if err := h.api.RejectAuthority(r.Context(), h.token(r), userID, req.Reason); err != nil {
		h.logger.Warn("authority reject failed",
			slog.Int64("user_id", userID), slog.Any("error", err))
		h.upstreamFailure(w, r, err, "rejection failed")
		return
	}
	h.logger.Info("authority rejected", slog.Int64("user_id", userID))
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// upstreamFailure maps identity API errors onto responses. A 401 means
// the admin's token was revoked upstream; the local session goes with it.
func (h *Handler) upstreamFailure(w http.ResponseWriter, r *http.Request, err error, detail string) {
	if errors.Is(err, authapi.ErrUnauthenticated) {
		if store := guard.StoreFromContext(r.Context()); store != nil {
			store.ForceLogout(r.Context())
		}
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", session.MsgSessionExpired)
		return
	}
	httpx.Problem(w, http.StatusBadGateway, "Upstream Error", detail)
}

func (h *Handler) token(r *http.Request) string {
	store := guard.StoreFromContext(r.Context())
	if store == nil {
		return ""
	}
	return store.Token()
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return 0, false
	}
	return userID, true
}

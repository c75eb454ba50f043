package registration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/shohoj-krishi/shohoj-krishi/internal/guard"
	"github.com/shohoj-krishi/shohoj-krishi/internal/i18n"
	"github.com/shohoj-krishi/shohoj-krishi/internal/platform/httpx"
)

const (
	maxBodyBytes   = 1 << 20
	resendCooldown = 60 * time.Second
)

var otpPattern = regexp.MustCompile(`^\d{6}$`)

// OTPClient is the slice of the identity API used by the OTP endpoints.
type OTPClient interface {
	VerifyOTP(ctx context.Context, email, otp string) error
	ResendOTP(ctx context.Context, email string) error
}

// Handler wires the registration and OTP verification endpoints.
type Handler struct {
	logger    *slog.Logger
	validator *Validator
	otp       OTPClient
	redis     *redis.Client
	messages  *i18n.Catalog
}

// NewHandler constructs a registration Handler.
func NewHandler(logger *slog.Logger, otp OTPClient, redisClient *redis.Client, messages *i18n.Catalog) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		validator: NewValidator(),
		otp:       otp,
		redis:     redisClient,
		messages:  messages,
	}
}

// MountRoutes registers registration routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/verify-otp", h.handleVerifyOTP)
	r.Post("/auth/resend-otp", h.handleResendOTP)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unreadable body")
		return
	}

	form, err := Parse(body)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid registration payload")
		return
	}

	// Fail closed: field errors never reach the identity API.
	if fields := h.validator.Check(form); len(fields) > 0 {
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"errors":  fields,
		})
		return
	}

	store := guard.StoreFromContext(r.Context())
	if store == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	res := store.Register(r.Context(), form.Request())
	if !res.Success {
		status := http.StatusBadGateway
		if len(res.Fields) > 0 {
			status = http.StatusConflict
		}
		httpx.JSON(w, status, map[string]any{
			"success": false,
			"error":   h.messages.Localize(r, i18n.KeyRegistrationFailed, res.Error),
			"errors":  res.Fields,
		})
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"userId":  res.UserID,
	})
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid body")
		return
	}
	if req.Email == "" || !otpPattern.MatchString(req.OTP) {
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"errors":  map[string]string{"otp": "OTP must be exactly 6 digits"},
		})
		return
	}

	if err := h.otp.VerifyOTP(r.Context(), req.Email, req.OTP); err != nil {
		h.logger.Info("otp verification failed", slog.String("email", req.Email))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request",
			h.messages.Localize(r, i18n.KeyOTPInvalid, ""))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Email == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid body")
		return
	}

	// One resend per address per cooldown window, enforced across
	// gateway instances.
	key := "otp:resend:" + req.Email
	ok, err := h.redis.SetNX(r.Context(), key, "1", resendCooldown).Result()
	if err != nil {
		h.logger.Warn("resend cooldown check failed", slog.Any("error", err))
	} else if !ok {
		httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests",
			h.messages.Localize(r, i18n.KeyOTPCooldown, ""))
		return
	}

	if err := h.otp.ResendOTP(r.Context(), req.Email); err != nil {
		// Give the window back; a failed resend must not lock the
		// address out for the full cooldown.
		if delErr := h.redis.Del(r.Context(), key).Err(); delErr != nil {
			h.logger.Warn("resend cooldown release failed", slog.Any("error", delErr))
		}
		httpx.Problem(w, http.StatusBadGateway, "Upstream Error",
			h.messages.Localize(r, i18n.KeyOTPResendFailed, ""))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

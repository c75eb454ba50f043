package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client talks to the identity API over JSON/HTTPS.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient constructs a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Login exchanges credentials for a bearer token and principal.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginGrant, error) {
	var out LoginGrant
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, &out); err != nil {
		return LoginGrant{}, err
	}
	return out, nil
}

// Register submits a new account. A 201 yields a receipt and the account
// moves to the OTP verification step.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (RegisterReceipt, error) {
	var out RegisterReceipt
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", req, &out); err != nil {
		return RegisterReceipt{}, err
	}
	return out, nil
}

// VerifyOTP confirms the six digit code mailed during registration.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	payload := map[string]string{"email": email, "otp": otp}
	return c.do(ctx, http.MethodPost, "/auth/verify-otp", "", payload, nil)
}

// ResendOTP requests a fresh code for the given email.
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/resend-otp", "", payload, nil)
}

// VerifyToken validates the stored token and returns the principal.
func (c *Client) VerifyToken(ctx context.Context, token string) (*Principal, error) {
	var out struct {
		User *Principal `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/verify", token, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "empty verify response"}
	}
	return out.User, nil
}

// Logout invalidates the token upstream. Best effort; callers clear local
// state regardless of the outcome.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

// RefreshToken trades the current token for a fresh one.
func (c *Client) RefreshToken(ctx context.Context, token string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", token, nil, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// UpdateProfile applies a partial profile change and returns the replaced
// principal.
func (c *Client) UpdateProfile(ctx context.Context, token string, changes ProfileUpdate) (*Principal, error) {
	var out struct {
		User *Principal `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/auth/profile", token, changes, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "empty profile response"}
	}
	return out.User, nil
}

// ForgotPassword starts the reset flow for the given email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", "", payload, nil)
}

// ResetPassword completes a reset with the emailed token.
func (c *Client) ResetPassword(ctx context.Context, resetToken, password string) error {
	payload := map[string]string{"token": resetToken, "password": password}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", "", payload, nil)
}

// ChangePassword rotates the password for an authenticated principal.
func (c *Client) ChangePassword(ctx context.Context, token, current, next string) error {
	payload := map[string]string{"currentPassword": current, "password": next}
	return c.do(ctx, http.MethodPut, "/auth/change-password", token, payload, nil)
}

// PendingAuthorities lists authority signups awaiting admin review.
func (c *Client) PendingAuthorities(ctx context.Context, token string) ([]PendingAuthority, error) {
	var out struct {
		Pending []PendingAuthority `json:"pending"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/authorities/pending", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Pending, nil
}

// ApproveAuthority approves a pending authority account.
func (c *Client) ApproveAuthority(ctx context.Context, token string, userID int64) error {
	path := fmt.Sprintf("/admin/authorities/%d/approve", userID)
	return c.do(ctx, http.MethodPost, path, token, nil, nil)
}

// RejectAuthority rejects a pending authority account with a reason.
func (c *Client) RejectAuthority(ctx context.Context, token string, userID int64, reason string) error {
	path := fmt.Sprintf("/admin/authorities/%d/reject", userID)
	payload := map[string]string{"reason": reason}
	return c.do(ctx, http.MethodPost, path, token, payload, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("authapi: encode %s: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("authapi: build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("authapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthenticated)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("authapi: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(data) > 0 {
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil && c.logger != nil {
			c.logger.Debug("non-json error body from identity api",
				slog.Int("status", resp.StatusCode))
		}
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}

// Package session owns the authentication state machine: exactly one
// Store per logical session, every transition serialized through its
// mutex. The lifecycle mirrors the platform's sign-in flow:
//
//	Start -> Loading -> Authenticated | Unauthenticated
//
// with Authenticated and Unauthenticated reachable from each other via
// login and logout.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/shohoj-krishi/shohoj-krishi/internal/authapi"
)

// Status is the authentication state of a session.
type Status int

const (
	// StatusLoading means a verify or login is in flight; nothing may be
	// revealed while loading.
	StatusLoading Status = iota
	// StatusAuthenticated means a principal is attached.
	StatusAuthenticated
	// StatusUnauthenticated means no principal is attached.
	StatusUnauthenticated
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// User-facing messages, kept identical to the web client's wording.
const (
	MsgSessionExpired = "Session expired. Please log in again."
	MsgLoginFailed    = "Login failed. Please try again."
	MsgRegisterFailed = "Registration failed. Please try again."
	MsgProfileFailed  = "Profile update failed."
)

// AuthAPI is the slice of the identity API the state machine consumes.
type AuthAPI interface {
	Login(ctx context.Context, creds authapi.Credentials) (authapi.LoginGrant, error)
	Register(ctx context.Context, req authapi.RegisterRequest) (authapi.RegisterReceipt, error)
	VerifyToken(ctx context.Context, token string) (*authapi.Principal, error)
	Logout(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, token string, changes authapi.ProfileUpdate) (*authapi.Principal, error)
}

var _ AuthAPI = (*authapi.Client)(nil)

// Result reports the outcome of login/register/profile calls. Failures
// surface here as messages; no error escapes the state machine boundary.
type Result struct {
	Success bool               `json:"success"`
	User    *authapi.Principal `json:"user,omitempty"`
	UserID  int64              `json:"userId,omitempty"`
	Error   string             `json:"error,omitempty"`
	// Fields carries per-field errors mapped from upstream 409/400
	// responses on registration.
	Fields map[string]string `json:"fields,omitempty"`
}

// Snapshot is a copy of the session state at one instant.
type Snapshot struct {
	User            *authapi.Principal `json:"user"`
	IsAuthenticated bool               `json:"isAuthenticated"`
	IsLoading       bool               `json:"isLoading"`
	Error           string             `json:"error,omitempty"`
}

// Store is the single owner of one session's authentication state.
type Store struct {
	api    AuthAPI
	tokens TokenStore
	logger *slog.Logger

	mu     sync.Mutex
	status Status
	user   *authapi.Principal
	token  string
	errMsg string
	// gen guards against stale writes: a network call that resolves after
	// a later transition has bumped the generation is discarded.
	gen uint64
}

// NewStore constructs a Store in the Loading state; callers must run
// Initialize before reading the snapshot.
func NewStore(api AuthAPI, tokens TokenStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:    api,
		tokens: tokens,
		logger: logger,
		status: StatusLoading,
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		User:            cloneUser(s.user),
		IsAuthenticated: s.status == StatusAuthenticated,
		IsLoading:       s.status == StatusLoading,
		Error:           s.errMsg,
	}
}

// Token returns the current bearer token, empty when unauthenticated.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Initialize resolves the persisted token, if any, into a verified
// principal. No token ends Unauthenticated with no error; a token that
// fails verification is discarded and surfaces the session-expired
// message. Invoked once when the session is first touched.
func (s *Store) Initialize(ctx context.Context) {
	gen := s.begin()

	token, err := s.tokens.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			s.logger.Warn("token load failed", slog.Any("error", err))
		}
		s.settle(gen, StatusUnauthenticated, nil, "", "")
		return
	}

	user, err := s.api.VerifyToken(ctx, token)
	if err != nil {
		if clearErr := s.tokens.Clear(ctx); clearErr != nil {
			s.logger.Warn("token clear failed", slog.Any("error", clearErr))
		}
		s.settle(gen, StatusUnauthenticated, nil, "", MsgSessionExpired)
		return
	}
	s.settle(gen, StatusAuthenticated, user, token, "")
}

// Login exchanges credentials for a session. On success the token is
// persisted and the state becomes Authenticated; on failure the state is
// Unauthenticated and the token store is untouched.
func (s *Store) Login(ctx context.Context, creds authapi.Credentials) Result {
	gen := s.begin()

	grant, err := s.api.Login(ctx, creds)
	if err != nil {
		msg := failureMessage(err, MsgLoginFailed)
		s.settle(gen, StatusUnauthenticated, nil, "", msg)
		return Result{Success: false, Error: msg}
	}

	if err := s.tokens.Save(ctx, grant.Token); err != nil {
		s.logger.Error("token persist failed", slog.Any("error", err))
	}
	s.settle(gen, StatusAuthenticated, grant.User, grant.Token, "")
	return Result{Success: true, User: grant.User}
}

// Register submits a validated signup. Registration does not authenticate:
// a success carries the pending user id for the OTP step.
func (s *Store) Register(ctx context.Context, req authapi.RegisterRequest) Result {
	gen := s.begin()

	receipt, err := s.api.Register(ctx, req)
	if err != nil {
		msg := failureMessage(err, MsgRegisterFailed)
		s.settle(gen, StatusUnauthenticated, nil, "", msg)
		return Result{Success: false, Error: msg, Fields: registerFieldErrors(err)}
	}
	s.settle(gen, StatusUnauthenticated, nil, "", "")
	return Result{Success: true, UserID: receipt.UserID}
}

// Logout tears the session down. The upstream call is best effort; the
// token is cleared and the state reset no matter what it returns.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	token := s.token
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	if token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			s.logger.Warn("upstream logout failed", slog.Any("error", err))
		}
	}
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Warn("token clear failed", slog.Any("error", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.status = StatusUnauthenticated
	s.user = nil
	s.token = ""
	s.errMsg = ""
}

// ForceLogout discards the session locally after the upstream rejected
// its token. No upstream logout call is made; the token is already dead
// on that side. Any in-flight transition is superseded.
func (s *Store) ForceLogout(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Warn("token clear failed", slog.Any("error", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.status = StatusUnauthenticated
	s.user = nil
	s.token = ""
	s.errMsg = MsgSessionExpired
}

// ReplaceToken swaps the bearer token after an upstream refresh without
// touching the principal. Ignored unless currently authenticated.
func (s *Store) ReplaceToken(ctx context.Context, token string) {
	if token == "" {
		return
	}
	s.mu.Lock()
	if s.status != StatusAuthenticated {
		s.mu.Unlock()
		return
	}
	s.token = token
	s.mu.Unlock()

	if err := s.tokens.Save(ctx, token); err != nil {
		s.logger.Error("token persist failed", slog.Any("error", err))
	}
}

// ClearError clears the error field without touching authentication
// state. Safe to call repeatedly.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
}

// UpdateProfile applies a profile change. Success replaces the principal
// wholesale (role and identity fields may change). A failure leaves state
// untouched and reports the message in the result only, except when the
// upstream rejects the token, which ends the session.
func (s *Store) UpdateProfile(ctx context.Context, changes authapi.ProfileUpdate) Result {
	s.mu.Lock()
	token := s.token
	gen := s.gen
	s.mu.Unlock()

	if token == "" {
		return Result{Success: false, Error: MsgSessionExpired}
	}

	user, err := s.api.UpdateProfile(ctx, token, changes)
	if err != nil {
		if errors.Is(err, authapi.ErrUnauthenticated) {
			// The upstream no longer honors this token; drop the
			// session instead of serving stale local state.
			s.ForceLogout(ctx)
			return Result{Success: false, Error: MsgSessionExpired}
		}
		return Result{Success: false, Error: failureMessage(err, MsgProfileFailed)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.status != StatusAuthenticated {
		// A logout won the race; do not resurrect the principal.
		return Result{Success: false, Error: MsgSessionExpired}
	}
	s.user = user
	return Result{Success: true, User: user}
}

// begin moves the store to Loading and opens a new generation.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusLoading
	s.errMsg = ""
	s.gen++
	return s.gen
}

// settle applies the outcome of an in-flight transition unless a newer
// transition superseded it.
func (s *Store) settle(gen uint64, status Status, user *authapi.Principal, token, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.status = status
	s.user = user
	s.token = token
	s.errMsg = errMsg
}

func failureMessage(err error, fallback string) string {
	if errors.Is(err, authapi.ErrUnauthenticated) {
		if fallback == MsgLoginFailed {
			return "Invalid email or password."
		}
		return MsgSessionExpired
	}
	if apiErr, ok := authapi.AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// registerFieldErrors maps upstream registration failures back onto form
// fields: a 409 names the duplicated email or phone, a 400 may carry a
// field/message map. Anything else stays a top-level message.
func registerFieldErrors(err error) map[string]string {
	apiErr, ok := authapi.AsAPIError(err)
	if !ok {
		return nil
	}
	if apiErr.IsConflict() {
		fields := make(map[string]string, 1)
		switch {
		case strings.Contains(apiErr.Message, "Email"):
			fields["email"] = apiErr.Message
		case strings.Contains(apiErr.Message, "Phone"):
			fields["phone"] = apiErr.Message
		default:
			return nil
		}
		return fields
	}
	if apiErr.Status == http.StatusBadRequest && len(apiErr.Fields) > 0 {
		fields := make(map[string]string, len(apiErr.Fields))
		for k, v := range apiErr.Fields {
			fields[k] = v
		}
		return fields
	}
	return nil
}

func cloneUser(u *authapi.Principal) *authapi.Principal {
	if u == nil {
		return nil
	}
	copied := *u
	return &copied
}

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/shohoj-krishi/shohoj-krishi/internal/audit"
	"github.com/shohoj-krishi/shohoj-krishi/internal/auth"
	"github.com/shohoj-krishi/shohoj-krishi/internal/authapi"
	"github.com/shohoj-krishi/shohoj-krishi/internal/guard"
	"github.com/shohoj-krishi/shohoj-krishi/internal/i18n"
	"github.com/shohoj-krishi/shohoj-krishi/internal/roles"
	"github.com/shohoj-krishi/shohoj-krishi/internal/session"
	"github.com/shohoj-krishi/shohoj-krishi/internal/shared"
	_ "github.com/shohoj-krishi/shohoj-krishi/testing"
)

type fakeIdentityAPI struct {
	loginGrant authapi.LoginGrant
	loginErr   error
	verifyUser *authapi.Principal
	verifyErr  error
	refreshErr error
	changeErr  error
}

func (f *fakeIdentityAPI) Login(ctx context.Context, creds authapi.Credentials) (authapi.LoginGrant, error) {
	return f.loginGrant, f.loginErr
}

func (f *fakeIdentityAPI) Register(ctx context.Context, req authapi.RegisterRequest) (authapi.RegisterReceipt, error) {
	return authapi.RegisterReceipt{}, nil
}

func (f *fakeIdentityAPI) VerifyToken(ctx context.Context, token string) (*authapi.Principal, error) {
	return f.verifyUser, f.verifyErr
}

func (f *fakeIdentityAPI) Logout(ctx context.Context, token string) error { return nil }

func (f *fakeIdentityAPI) UpdateProfile(ctx context.Context, token string, changes authapi.ProfileUpdate) (*authapi.Principal, error) {
	return nil, authapi.ErrUnauthenticated
}

func (f *fakeIdentityAPI) ForgotPassword(ctx context.Context, email string) error { return nil }

func (f *fakeIdentityAPI) ResetPassword(ctx context.Context, resetToken, password string) error {
	return nil
}

func (f *fakeIdentityAPI) ChangePassword(ctx context.Context, token, current, next string) error {
	return f.changeErr
}

func (f *fakeIdentityAPI) RefreshToken(ctx context.Context, token string) (string, error) {
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return "refreshed", nil
}

type commitWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *commitWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) flush() {
	if !w.committed {
		w.committed = true
		w.commit()
	}
}

type testEnv struct {
	router  chi.Router
	cookies *shared.SessionManager
}

func newTestEnv(t *testing.T, api *fakeIdentityAPI) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	cookies := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	sessions := session.NewManager(api, redisClient, time.Hour, nil)
	handler := auth.NewHandler(nil, sessions, cookies, csrf, api, audit.NewRepository(nil), nil, i18n.NewCatalog())

	gm := guard.Middleware{Sessions: sessions}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := cookies.Load(r.Context(), r)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(r.Context(), sess)
			// Commit just before the first write so Set-Cookie lands in
			// the recorded header snapshot.
			cw := &commitWriter{ResponseWriter: w, commit: func() {
				require.NoError(t, cookies.Commit(ctx, w, r, sess))
			}}
			next.ServeHTTP(cw, r.WithContext(ctx))
			cw.flush()
		})
	})
	router.Use(gm.Attach)
	handler.MountPublicRoutes(router)
	handler.MountCredentialRoutes(router)
	router.Group(func(r chi.Router) {
		r.Use(gm.RequireAuth)
		handler.MountProtectedRoutes(r)
	})

	return &testEnv{router: router, cookies: cookies}
}

func (e *testEnv) do(t *testing.T, method, target, body string, cookie *http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	res := httptest.NewRecorder()
	e.router.ServeHTTP(res, req)

	var payload map[string]any
	if res.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	}
	return res, payload
}

func sessionCookie(t *testing.T, res *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == "test_session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionEndpointIssuesCSRFToken(t *testing.T) {
	env := newTestEnv(t, &fakeIdentityAPI{})

	res, payload := env.do(t, http.MethodGet, "/auth/session", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, false, payload["isAuthenticated"])
	require.Equal(t, false, payload["isLoading"])
	require.NotEmpty(t, payload["csrfToken"])
}

func TestLoginSuccessReturnsDashboard(t *testing.T) {
	api := &fakeIdentityAPI{loginGrant: authapi.LoginGrant{
		Token: "tok-1",
		User:  &authapi.Principal{ID: 7, Email: "farmer@test.local", Role: roles.RoleFarmer},
	}}
	env := newTestEnv(t, api)

	res, payload := env.do(t, http.MethodPost, "/auth/login",
		`{"email":"farmer@test.local","password":"secret123"}`, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, true, payload["success"])
	require.Equal(t, "/dashboard", payload["returnTo"])

	user := payload["user"].(map[string]any)
	require.Equal(t, "FARMER", user["role"])
}

func TestLoginFailure(t *testing.T) {
	api := &fakeIdentityAPI{loginErr: &authapi.APIError{Status: http.StatusBadGateway}}
	env := newTestEnv(t, api)

	res, payload := env.do(t, http.MethodPost, "/auth/login",
		`{"email":"farmer@test.local","password":"wrong"}`, nil)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Equal(t, false, payload["success"])
	require.Equal(t, "Login failed. Please try again.", payload["error"])
}

func TestLoginValidatesInput(t *testing.T) {
	env := newTestEnv(t, &fakeIdentityAPI{})

	res, payload := env.do(t, http.MethodPost, "/auth/login", `{"email":""}`, nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
	errs := payload["errors"].(map[string]any)
	require.Equal(t, "Password is required", errs["password"])
}

func TestNavigateRedirectsAndPreservesReturnPath(t *testing.T) {
	api := &fakeIdentityAPI{loginGrant: authapi.LoginGrant{
		Token: "tok-2",
		User:  &authapi.Principal{ID: 7, Role: roles.RoleFarmer},
	}}
	env := newTestEnv(t, api)

	// Anonymous navigation to a protected page stashes the path.
	res, payload := env.do(t, http.MethodGet, "/api/navigate?path=/dashboard/crops", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "signin", payload["action"])
	require.Equal(t, "/auth/signin", payload["redirectTo"])
	require.Equal(t, "/dashboard/crops", payload["returnTo"])
	cookie := sessionCookie(t, res)

	// Signing in on the same session returns the stashed path.
	res, payload = env.do(t, http.MethodPost, "/auth/login",
		`{"email":"farmer@test.local","password":"secret123"}`, cookie)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "/dashboard/crops", payload["returnTo"])
}

func TestLoginDropsReturnPathTheRoleCannotSee(t *testing.T) {
	api := &fakeIdentityAPI{loginGrant: authapi.LoginGrant{
		Token: "tok-3",
		User:  &authapi.Principal{ID: 8, Role: roles.RoleBuyer},
	}}
	env := newTestEnv(t, api)

	// The anonymous visitor asked for a farmer-only page.
	res, _ := env.do(t, http.MethodGet, "/api/navigate?path=/dashboard/crops", "", nil)
	cookie := sessionCookie(t, res)

	_, payload := env.do(t, http.MethodPost, "/auth/login",
		`{"email":"buyer@test.local","password":"secret123"}`, cookie)
	require.Equal(t, "/dashboard", payload["returnTo"])
}

func TestNavigateAuthenticatedRoleMismatch(t *testing.T) {
	api := &fakeIdentityAPI{
		loginGrant: authapi.LoginGrant{Token: "tok-4", User: &authapi.Principal{ID: 9, Role: roles.RoleBuyer}},
		verifyUser: &authapi.Principal{ID: 9, Role: roles.RoleBuyer},
	}
	env := newTestEnv(t, api)

	res, _ := env.do(t, http.MethodPost, "/auth/login",
		`{"email":"buyer@test.local","password":"secret123"}`, nil)
	cookie := sessionCookie(t, res)

	_, payload := env.do(t, http.MethodGet, "/api/navigate?path=/dashboard/crops", "", cookie)
	require.Equal(t, "unauthorized", payload["action"])
	require.Equal(t, "/unauthorized", payload["redirectTo"])

	_, payload = env.do(t, http.MethodGet, "/api/navigate?path=/dashboard/marketplace", "", cookie)
	require.Equal(t, "allow", payload["action"])
}

func TestUnauthorizedViewData(t *testing.T) {
	api := &fakeIdentityAPI{
		loginGrant: authapi.LoginGrant{Token: "tok-5", User: &authapi.Principal{ID: 9, Role: roles.RoleBuyer}},
		verifyUser: &authapi.Principal{ID: 9, Role: roles.RoleBuyer},
	}
	env := newTestEnv(t, api)

	// Anonymous: the only way home is sign-in.
	_, payload := env.do(t, http.MethodGet, "/unauthorized", "", nil)
	require.Equal(t, "You don't have permission to access this page.", payload["message"])
	require.Equal(t, "/auth/signin", payload["home"])

	res, _ := env.do(t, http.MethodPost, "/auth/login",
		`{"email":"buyer@test.local","password":"secret123"}`, nil)
	cookie := sessionCookie(t, res)

	_, payload = env.do(t, http.MethodGet, "/unauthorized", "", cookie)
	require.Equal(t, "BUYER", payload["role"])
	require.Equal(t, "/dashboard", payload["home"])
	require.NotEmpty(t, payload["tabs"])
}

func TestLogout(t *testing.T) {
	api := &fakeIdentityAPI{
		loginGrant: authapi.LoginGrant{Token: "tok-6", User: &authapi.Principal{ID: 7, Role: roles.RoleFarmer}},
		verifyErr:  authapi.ErrUnauthenticated,
	}
	env := newTestEnv(t, api)

	res, _ := env.do(t, http.MethodPost, "/auth/login",
		`{"email":"farmer@test.local","password":"secret123"}`, nil)
	cookie := sessionCookie(t, res)

	res, payload := env.do(t, http.MethodPost, "/auth/logout", "", cookie)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, true, payload["success"])

	// Protected routes reject the torn-down session.
	res, _ = env.do(t, http.MethodGet, "/api/me/tabs", "", cookie)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRefreshRejectedUpstreamEndsSession(t *testing.T) {
	api := &fakeIdentityAPI{
		loginGrant: authapi.LoginGrant{Token: "tok-9", User: &authapi.Principal{ID: 7, Role: roles.RoleFarmer}},
		refreshErr: authapi.ErrUnauthenticated,
	}
	env := newTestEnv(t, api)

	res, _ := env.do(t, http.MethodPost, "/auth/login",
		`{"email":"farmer@test.local","password":"secret123"}`, nil)
	cookie := sessionCookie(t, res)

	// The upstream revoked the token: the refresh answers 401 and the
	// gateway session does not linger in the authenticated state.
	res, _ = env.do(t, http.MethodPost, "/auth/refresh", "", cookie)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	res, _ = env.do(t, http.MethodGet, "/api/me/tabs", "", cookie)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	res, payload := env.do(t, http.MethodGet, "/auth/session", "", cookie)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, false, payload["isAuthenticated"])
	require.Equal(t, "Session expired. Please log in again.", payload["error"])
}

func TestChangePasswordRejectedUpstreamEndsSession(t *testing.T) {
	api := &fakeIdentityAPI{
		loginGrant: authapi.LoginGrant{Token: "tok-10", User: &authapi.Principal{ID: 7, Role: roles.RoleFarmer}},
		changeErr:  authapi.ErrUnauthenticated,
	}
	env := newTestEnv(t, api)

	res, _ := env.do(t, http.MethodPost, "/auth/login",
		`{"email":"farmer@test.local","password":"secret123"}`, nil)
	cookie := sessionCookie(t, res)

	res, _ = env.do(t, http.MethodPut, "/auth/change-password",
		`{"currentPassword":"secret123","password":"newsecret1"}`, cookie)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	res, _ = env.do(t, http.MethodGet, "/api/me/tabs", "", cookie)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestMyTabsAndFeatures(t *testing.T) {
	api := &fakeIdentityAPI{
		loginGrant: authapi.LoginGrant{Token: "tok-7", User: &authapi.Principal{ID: 7, Role: roles.RoleFarmer}},
		verifyUser: &authapi.Principal{ID: 7, Role: roles.RoleFarmer},
	}
	env := newTestEnv(t, api)

	res, _ := env.do(t, http.MethodPost, "/auth/login",
		`{"email":"farmer@test.local","password":"secret123"}`, nil)
	cookie := sessionCookie(t, res)

	res, payload := env.do(t, http.MethodGet, "/api/me/tabs", "", cookie)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, payload["tabs"], 6)

	_, payload = env.do(t, http.MethodGet, "/api/me/features/post_crops", "", cookie)
	require.Equal(t, true, payload["allowed"])

	_, payload = env.do(t, http.MethodGet, "/api/me/features/manage_all_users", "", cookie)
	require.Equal(t, false, payload["allowed"])
}

func TestClearError(t *testing.T) {
	api := &fakeIdentityAPI{loginErr: authapi.ErrUnauthenticated}
	env := newTestEnv(t, api)

	res, _ := env.do(t, http.MethodPost, "/auth/login",
		`{"email":"farmer@test.local","password":"wrong"}`, nil)
	cookie := sessionCookie(t, res)

	_, payload := env.do(t, http.MethodGet, "/auth/session", "", cookie)
	require.Equal(t, "Invalid email or password.", payload["error"])

	res, _ = env.do(t, http.MethodDelete, "/auth/error", "", cookie)
	require.Equal(t, http.StatusNoContent, res.Code)

	_, payload = env.do(t, http.MethodGet, "/auth/session", "", cookie)
	require.Empty(t, payload["error"])
}

package authapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shohoj-krishi/shohoj-krishi/internal/authapi"
	"github.com/shohoj-krishi/shohoj-krishi/internal/roles"
	_ "github.com/shohoj-krishi/shohoj-krishi/testing"
)

func newClient(t *testing.T, handler http.HandlerFunc) *authapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return authapi.NewClient(srv.URL, 5*time.Second, nil)
}

func TestLoginDecodesGrant(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var creds authapi.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "farmer@test.local", creds.Email)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-1",
			"user":  map[string]any{"id": 7, "email": creds.Email, "role": "FARMER"},
		})
	})

	grant, err := client.Login(context.Background(), authapi.Credentials{Email: "farmer@test.local", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, "tok-1", grant.Token)
	require.Equal(t, roles.RoleFarmer, grant.User.Role)
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.VerifyToken(context.Background(), "stale")
	require.ErrorIs(t, err, authapi.ErrUnauthenticated)
}

func TestConflictDecodesAPIError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Email already registered"}`))
	})

	_, err := client.Register(context.Background(), authapi.RegisterRequest{Email: "dupe@test.local"})
	apiErr, ok := authapi.AsAPIError(err)
	require.True(t, ok)
	require.True(t, apiErr.IsConflict())
	require.Equal(t, "Email already registered", apiErr.Message)
}

func TestErrorWithFieldMap(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Validation failed","errors":{"phone":"Invalid phone"}}`))
	})

	_, err := client.Register(context.Background(), authapi.RegisterRequest{})
	apiErr, ok := authapi.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "Invalid phone", apiErr.Fields["phone"])
}

func TestNonJSONErrorBodyKeepsStatus(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	err := client.Logout(context.Background(), "tok")
	apiErr, ok := authapi.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestVerifyTokenSendsBearer(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":1,"role":"BUYER"}}`))
	})

	user, err := client.VerifyToken(context.Background(), "tok-9")
	require.NoError(t, err)
	require.Equal(t, roles.RoleBuyer, user.Role)
}

func TestAuthorityReviewCalls(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/authorities/pending":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"pending":[{"userId":11,"email":"officer@dae.gov.bd"}]}`))
		case "/admin/authorities/11/approve":
			require.Equal(t, http.MethodPost, r.Method)
			w.WriteHeader(http.StatusOK)
		case "/admin/authorities/11/reject":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "blurry id card", body["reason"])
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	pending, err := client.PendingAuthorities(context.Background(), "admin-tok")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, int64(11), pending[0].UserID)

	require.NoError(t, client.ApproveAuthority(context.Background(), "admin-tok", 11))
	require.NoError(t, client.RejectAuthority(context.Background(), "admin-tok", 11, "blurry id card"))
}

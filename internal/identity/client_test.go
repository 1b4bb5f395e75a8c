package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"boostclics/internal/telegram"
	"boostclics/internal/upstream"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ana = &telegram.Identity{UserID: "42", DisplayName: "Ana", Username: "ana"}

func newTestClient(url string) *Client {
	c := NewClient(Config{
		BaseURL:      url,
		SharedSecret: "shared-secret",
		Audience:     "auth-test",
		Timeout:      time.Second,
		Retry:        upstream.Policy{Retries: 2, InitialInterval: time.Millisecond},
	})
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestExchange_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signin/telegram", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims := &AssertionClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return []byte("shared-secret"), nil
		}, jwt.WithTimeFunc(func() time.Time { return time.Unix(1700000010, 0) }), jwt.WithAudience("auth-test"))
		require.NoError(t, err)
		assert.Equal(t, "42", claims.Subject)
		assert.Equal(t, "boostclics", claims.Issuer)
		assert.NotEmpty(t, claims.ID)

		var body signInRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body.TelegramID)
		assert.Equal(t, "Ana", body.DisplayName)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session":{"accessToken":"at","accessTokenExpiresIn":900,"refreshToken":"rt","user":{"id":"u-1"}}}`))
	}))
	defer srv.Close()

	s, err := newTestClient(srv.URL).Exchange(context.Background(), ana)
	require.NoError(t, err)

	assert.Equal(t, "at", s.AccessToken)
	assert.Equal(t, "rt", s.RefreshToken)
	assert.Equal(t, "u-1", s.ProviderUserID)
	assert.Equal(t, time.Unix(1700000900, 0).UTC(), s.ExpiresAt)
}

func TestExchange_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"session":{"accessToken":"at","accessTokenExpiresIn":60}}`))
	}))
	defer srv.Close()

	s, err := newTestClient(srv.URL).Exchange(context.Background(), ana)
	require.NoError(t, err)
	assert.Equal(t, "at", s.AccessToken)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExchange_Rejected(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"user disabled"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Exchange(context.Background(), ana)
	assert.ErrorIs(t, err, ErrExchangeRejected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExchange_EmptySession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session":null}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Exchange(context.Background(), ana)
	assert.ErrorIs(t, err, ErrExchangeRejected)
}

func TestExchange_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Exchange(context.Background(), ana)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExchangeRejected)
}

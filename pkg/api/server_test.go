package api

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinelog/cinelog/pkg/auth"
	"github.com/cinelog/cinelog/pkg/middleware"
	"github.com/cinelog/cinelog/pkg/observability"
)

func TestProtectedRoutes_RateLimited(t *testing.T) {
	limits := &middleware.RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
	}
	s := NewServer(Deps{
		Store:     newFakeStore(),
		Blobs:     newFakeBlobs(),
		Issuer:    auth.NewTokenIssuer("test-secret", time.Hour),
		Hasher:    auth.NewPasswordHasher(4),
		Logger:    observability.NewLogger(observability.ErrorLevel, io.Discard),
		RateLimit: middleware.NewRateLimitMiddlewareWithConfig(limits, limits),
	})
	_, token := registerUser(t, s, "alice")

	for i := 0; i < 2; i++ {
		rec := doJSON(t, s, http.MethodGet, "/users/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := doJSON(t, s, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Public routes stay unthrottled.
	rec = doJSON(t, s, http.MethodPost, "/login", "", loginRequest{Username: "alice", Password: "password123"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutes_NoLimiterByDefault(t *testing.T) {
	s, _, _ := testServer(t)
	_, token := registerUser(t, s, "alice")

	rec := doJSON(t, s, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

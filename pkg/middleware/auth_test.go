package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinelog/cinelog/pkg/auth"
	"github.com/cinelog/cinelog/pkg/observability"
	"github.com/cinelog/cinelog/pkg/storage"
)

// fakeUserStore implements storage.UserStore over a map for middleware tests.
type fakeUserStore struct {
	users         map[int64]*storage.User
	removedTokens []string
	removeErr     error
}

func newFakeUserStore(users ...*storage.User) *fakeUserStore {
	s := &fakeUserStore{users: map[int64]*storage.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) CreateUser(context.Context, storage.NewUser) (*storage.User, error) {
	panic("not used")
}

func (s *fakeUserStore) GetUserByID(_ context.Context, id int64) (*storage.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) GetUserByUsername(context.Context, string) (*storage.User, error) {
	panic("not used")
}

func (s *fakeUserStore) GetUserByEmail(context.Context, string) (*storage.User, error) {
	panic("not used")
}

func (s *fakeUserStore) UpdateProfile(context.Context, int64, *string, *time.Time) (*storage.User, error) {
	panic("not used")
}

func (s *fakeUserStore) UpdateAvatar(context.Context, int64, string, string) error {
	panic("not used")
}

func (s *fakeUserStore) UpdatePasswordHash(context.Context, int64, string) error {
	panic("not used")
}

func (s *fakeUserStore) AddToken(_ context.Context, userID int64, token string) error {
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.Tokens = append(u.Tokens, token)
	return nil
}

func (s *fakeUserStore) RemoveToken(_ context.Context, userID int64, token string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removedTokens = append(s.removedTokens, token)
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	kept := u.Tokens[:0]
	for _, t := range u.Tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	u.Tokens = kept
	return nil
}

func (s *fakeUserStore) ClearTokens(_ context.Context, userID int64) error {
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.Tokens = nil
	return nil
}

func (s *fakeUserStore) HasToken(_ context.Context, userID int64, token string) (bool, error) {
	u, ok := s.users[userID]
	if !ok {
		return false, storage.ErrNotFound
	}
	for _, t := range u.Tokens {
		if t == token {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) UsersWithTokens(context.Context) ([]int64, error) {
	var ids []int64
	for id, u := range s.users {
		if len(u.Tokens) > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func runAuth(t *testing.T, m *AuthMiddleware, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, called
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	m := NewAuthMiddleware(issuer, newFakeUserStore(), testLogger(), nil)

	rec, called := runAuth(t, m, "")
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization header missing", errorBody(t, rec))
}

func TestAuthMiddleware_BadFormat(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	m := NewAuthMiddleware(issuer, newFakeUserStore(), testLogger(), nil)

	for _, header := range []string{"Basic abc123", "Bearer", "Bearertoken", "Bearer ", "Bearer a b"} {
		rec, called := runAuth(t, m, header)
		assert.False(t, called, "header %q", header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Equal(t, "Invalid authorization format", errorBody(t, rec), "header %q", header)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	m := NewAuthMiddleware(issuer, newFakeUserStore(), testLogger(), nil)

	rec, called := runAuth(t, m, "Bearer not-a-jwt")
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", errorBody(t, rec))
}

// expiredToken signs a token for userID whose expiry is already in the past.
func expiredToken(t *testing.T, secret string, userID int64) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthMiddleware_ExpiredTokenCleansUpSession(t *testing.T) {
	expired := expiredToken(t, "secret", 1)

	store := newFakeUserStore(&storage.User{ID: 1, Username: "alice", Tokens: []string{expired}})
	verifier := auth.NewTokenIssuer("secret", time.Hour)
	m := NewAuthMiddleware(verifier, store, testLogger(), nil)

	rec, called := runAuth(t, m, "Bearer "+expired)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token expired", errorBody(t, rec))

	// The dead session was removed from the registry.
	assert.Equal(t, []string{expired}, store.removedTokens)
	assert.Empty(t, store.users[1].Tokens)
}

func TestAuthMiddleware_ExpiredTokenCleanupFailureStillRejects(t *testing.T) {
	expired := expiredToken(t, "secret", 1)

	store := newFakeUserStore(&storage.User{ID: 1, Tokens: []string{expired}})
	store.removeErr = assert.AnError

	verifier := auth.NewTokenIssuer("secret", time.Hour)
	m := NewAuthMiddleware(verifier, store, testLogger(), nil)

	rec, called := runAuth(t, m, "Bearer "+expired)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token expired", errorBody(t, rec))
}

func TestAuthMiddleware_UserNotFound(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(99)
	require.NoError(t, err)

	m := NewAuthMiddleware(issuer, newFakeUserStore(), testLogger(), nil)

	rec, called := runAuth(t, m, "Bearer "+token)
	assert.False(t, called)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", errorBody(t, rec))
}

func TestAuthMiddleware_RevokedSession(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(1)
	require.NoError(t, err)

	// Token verifies but is absent from the session registry (logged out).
	store := newFakeUserStore(&storage.User{ID: 1, Username: "alice", Tokens: []string{"some-other-token"}})
	m := NewAuthMiddleware(issuer, store, testLogger(), nil)

	rec, called := runAuth(t, m, "Bearer "+token)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Session terminated. Please log in again.", errorBody(t, rec))
}

func TestAuthMiddleware_Success(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(1)
	require.NoError(t, err)

	store := newFakeUserStore(&storage.User{ID: 1, Username: "alice", Tokens: []string{token}})
	m := NewAuthMiddleware(issuer, store, testLogger(), nil)

	var principal *storage.User
	var presented string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal = GetPrincipal(r)
		presented = GetToken(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "alice", principal.Username)
	assert.Equal(t, token, presented)
}

func TestAuthMiddleware_TrimsSurroundingWhitespace(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(1)
	require.NoError(t, err)

	store := newFakeUserStore(&storage.User{ID: 1, Username: "alice", Tokens: []string{token}})
	m := NewAuthMiddleware(issuer, store, testLogger(), nil)

	rec, called := runAuth(t, m, "  Bearer "+token+"  ")
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPrincipal_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetPrincipal(req))
	assert.Empty(t, GetToken(req))
}

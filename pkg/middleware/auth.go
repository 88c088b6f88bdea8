// Package middleware provides the authentication gate and rate limiting
// applied in front of the API handlers.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cinelog/cinelog/pkg/auth"
	"github.com/cinelog/cinelog/pkg/contextkeys"
	"github.com/cinelog/cinelog/pkg/httputil"
	"github.com/cinelog/cinelog/pkg/observability"
	"github.com/cinelog/cinelog/pkg/storage"
)

// AuthMiddleware authenticates requests with a Bearer JWT and checks the
// token against the user's persisted session set, so that logout and
// logout-all take effect immediately even for otherwise valid tokens.
type AuthMiddleware struct {
	issuer  *auth.TokenIssuer
	users   storage.UserStore
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewAuthMiddleware creates the authentication middleware. metrics may be nil.
func NewAuthMiddleware(issuer *auth.TokenIssuer, users storage.UserStore, logger *observability.Logger, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		issuer:  issuer,
		users:   users,
		logger:  logger,
		metrics: metrics,
	}
}

// Handler wraps an HTTP handler with authentication. On success the
// authenticated user and the presented raw token are added to the request
// context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.reject(w, http.StatusUnauthorized, "Authorization header missing", "header_missing")
			return
		}

		// Surrounding whitespace is forgiven; anything other than exactly
		// "Bearer <token>" is a format error, not a token error.
		parts := strings.Split(strings.TrimSpace(authHeader), " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			m.reject(w, http.StatusUnauthorized, "Invalid authorization format", "bad_format")
			return
		}
		token := parts[1]

		userID, err := m.issuer.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				// Best effort: drop the dead session so the registry does not
				// accumulate expired tokens. Failures only get logged; the
				// response is the same either way.
				m.cleanupExpired(r, token)
				m.reject(w, http.StatusUnauthorized, "Token expired", "expired")
				return
			}
			m.reject(w, http.StatusUnauthorized, "Invalid token", "invalid")
			return
		}

		user, err := m.users.GetUserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				m.reject(w, http.StatusNotFound, "User not found", "user_missing")
				return
			}
			m.logger.WithRequestID(r.Context()).WithError(err).Error("failed to load user during auth")
			httputil.WriteInternalError(w, errors.New("internal server error"))
			return
		}

		if !containsToken(user.Tokens, token) {
			m.reject(w, http.StatusUnauthorized, "Session terminated. Please log in again.", "session_revoked")
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), user)
		ctx = contextkeys.WithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) cleanupExpired(r *http.Request, token string) {
	userID, err := m.issuer.DecodeExpired(token)
	if err != nil {
		m.logger.WithRequestID(r.Context()).WithError(err).Warn("could not decode expired token for cleanup")
		return
	}
	if err := m.users.RemoveToken(r.Context(), userID, token); err != nil {
		m.logger.WithRequestID(r.Context()).WithError(err).
			WithField("user_id", userID).Warn("failed to remove expired token")
		return
	}
	if m.metrics != nil {
		m.metrics.SessionsRevoked.WithLabelValues("expired").Inc()
	}
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, status int, message, reason string) {
	if m.metrics != nil {
		m.metrics.AuthRejectionsTotal.WithLabelValues(reason).Inc()
	}
	httputil.WriteErrorMessage(w, status, message)
}

func containsToken(tokens []string, token string) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}

// GetPrincipal extracts the authenticated user placed in the request context
// by AuthMiddleware. Returns nil on unauthenticated requests.
func GetPrincipal(r *http.Request) *storage.User {
	user, _ := r.Context().Value(contextkeys.PrincipalKey).(*storage.User)
	return user
}

// GetToken extracts the raw bearer token presented with the request.
func GetToken(r *http.Request) string {
	token, _ := r.Context().Value(contextkeys.TokenKey).(string)
	return token
}

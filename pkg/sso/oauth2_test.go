package sso

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// tokenServer stands in for Google's token endpoint.
func tokenServer(t *testing.T, body string, status int) *GoogleOAuth {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	g := NewGoogleOAuth("client-id", "client-secret", "https://app.example.com/auth/google/callback")
	g.config.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}
	return g
}

func TestExchangeIDToken(t *testing.T) {
	g := tokenServer(t, `{"access_token":"at","token_type":"Bearer","id_token":"raw-id-token"}`, http.StatusOK)

	raw, err := g.ExchangeIDToken(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "raw-id-token", raw)
}

func TestExchangeIDToken_NoIDTokenInResponse(t *testing.T) {
	g := tokenServer(t, `{"access_token":"at","token_type":"Bearer"}`, http.StatusOK)

	_, err := g.ExchangeIDToken(context.Background(), "code-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id_token")
}

func TestExchangeIDToken_ExchangeRejected(t *testing.T) {
	g := tokenServer(t, `{"error":"invalid_grant"}`, http.StatusBadRequest)

	_, err := g.ExchangeIDToken(context.Background(), "stale-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to exchange authorization code")
}

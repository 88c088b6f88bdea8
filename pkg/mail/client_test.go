package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Configured(t *testing.T) {
	assert.True(t, NewClient("key", "no-reply@cinelog.app", "CineLog").IsConfigured())
	assert.False(t, NewClient("", "no-reply@cinelog.app", "CineLog").IsConfigured())
	assert.False(t, NewClient("key", "", "CineLog").IsConfigured())
	assert.False(t, NewClient("key", "no-reply@cinelog.app", "").IsConfigured())
}

func TestSend_UnconfiguredReturnsError(t *testing.T) {
	c := NewClient("", "", "")
	err := c.Send(context.Background(), "user@example.com", "hi", "<p>hi</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSend_EmptyFieldsRejected(t *testing.T) {
	c := NewClient("key", "no-reply@cinelog.app", "CineLog")
	err := c.Send(context.Background(), "", "hi", "<p>hi</p>")
	require.Error(t, err)
}

func TestSend_PostsToAPI(t *testing.T) {
	var got sendEmailReq
	var apiKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient("secret-key", "no-reply@cinelog.app", "CineLog")
	c.baseURL = srv.URL

	err := c.Send(context.Background(), "alice@example.com", "Welcome to CineLog", "<p>hello</p>")
	require.NoError(t, err)

	assert.Equal(t, "secret-key", apiKey)
	assert.Equal(t, "no-reply@cinelog.app", got.Sender["email"])
	assert.Equal(t, "CineLog", got.Sender["name"])
	require.Len(t, got.To, 1)
	assert.Equal(t, "alice@example.com", got.To[0]["email"])
	assert.Equal(t, "Welcome to CineLog", got.Subject)
	assert.Equal(t, "<p>hello</p>", got.HTMLContent)
}

func TestSend_APIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"unauthorized","message":"Key not found"}`))
	}))
	defer srv.Close()

	c := NewClient("bad-key", "no-reply@cinelog.app", "CineLog")
	c.baseURL = srv.URL

	err := c.Send(context.Background(), "alice@example.com", "subject", "<p>body</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestWelcomeEmail(t *testing.T) {
	subject, html := WelcomeEmail("alice")
	assert.Equal(t, "Welcome to CineLog", subject)
	assert.True(t, strings.Contains(html, "alice"))
}

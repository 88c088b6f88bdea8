package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))

	var dest struct {
		Name string `json:"name"`
	}
	require.NoError(t, ParseJSON(r, &dest))
	assert.Equal(t, "x", dest.Name)
}

func TestParseJSON_Invalid(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))

	var dest map[string]string
	assert.Error(t, ParseJSON(r, &dest))
}

func TestParseJSONOrError_WritesBadRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	rec := httptest.NewRecorder()

	var dest map[string]string
	ok := ParseJSONOrError(rec, r, &dest)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParsePathInt64(t *testing.T) {
	router := mux.NewRouter()
	var got int64
	var gotErr error
	router.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = ParsePathInt64(r, "id")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/123", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, int64(123), got)

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/abc", nil))
	assert.Error(t, gotErr)
}

func TestRequireNonEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.True(t, RequireNonEmpty(rec, "value", "field"))

	rec = httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(rec, "", "field"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "field is required")
}

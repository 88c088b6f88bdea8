// Package swagger serves the embedded OpenAPI document and a Swagger UI
// page. Access is gated by HTTP Basic auth and, when a limiter is supplied,
// rate limited per client IP.
package swagger

import (
	"crypto/subtle"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"

	"github.com/cinelog/cinelog/pkg/httputil"
	"github.com/cinelog/cinelog/pkg/middleware"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Handlers serves the API documentation endpoints.
type Handlers struct {
	username string
	password string
	limiter  *middleware.DistributedRateLimiter

	jsonSpec []byte
	jsonErr  error
}

// NewHandlers creates the documentation handlers. limiter may be nil, in
// which case no rate limit applies.
func NewHandlers(username, password string, limiter *middleware.DistributedRateLimiter) *Handlers {
	h := &Handlers{
		username: username,
		password: password,
		limiter:  limiter,
	}
	h.jsonSpec, h.jsonErr = yamlToJSON(openapiSpec)
	return h
}

// RegisterRoutes registers the documentation routes with the router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/openapi.yaml", h.guard(h.serveYAML)).Methods("GET")
	router.Handle("/openapi.json", h.guard(h.serveJSON)).Methods("GET")
	router.Handle("/api-docs", h.guard(h.serveUI)).Methods("GET")
}

// guard wraps a documentation handler with basic auth and the rate limiter.
func (h *Handlers) guard(fn http.HandlerFunc) http.Handler {
	var handler http.Handler = h.basicAuth(fn)
	if h.limiter != nil {
		handler = h.limiter.Handler(handler)
	}
	return handler
}

func (h *Handlers) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(h.password)) == 1
		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", `Basic realm="CineLog API documentation"`)
			httputil.WriteUnauthorized(w, "Authentication required")
			return
		}
		next(w, r)
	}
}

func (h *Handlers) serveYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(openapiSpec)
}

func (h *Handlers) serveJSON(w http.ResponseWriter, r *http.Request) {
	if h.jsonErr != nil {
		httputil.WriteInternalError(w, fmt.Errorf("openapi document is not valid yaml: %w", h.jsonErr))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(h.jsonSpec)
}

func (h *Handlers) serveUI(w http.ResponseWriter, r *http.Request) {
	tmpl := template.Must(template.New("swagger").Parse(swaggerUITemplate))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, nil); err != nil {
		httputil.WriteInternalError(w, err)
	}
}

// yamlToJSON converts the YAML document to JSON once at startup.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

const swaggerUITemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>CineLog API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5.10.5/swagger-ui.css" />
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5.10.5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "/openapi.yaml",
        dom_id: "#swagger-ui",
        presets: [SwaggerUIBundle.presets.apis],
        layout: "BaseLayout"
      });
    };
  </script>
</body>
</html>`

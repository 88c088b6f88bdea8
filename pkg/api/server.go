// Package api implements the HTTP surface of the service: account and
// session endpoints, the media catalog, watch tracking, ratings, comments
// and lists.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cinelog/cinelog/pkg/auth"
	"github.com/cinelog/cinelog/pkg/httputil"
	"github.com/cinelog/cinelog/pkg/mail"
	"github.com/cinelog/cinelog/pkg/middleware"
	"github.com/cinelog/cinelog/pkg/observability"
	"github.com/cinelog/cinelog/pkg/sso"
	"github.com/cinelog/cinelog/pkg/storage"
)

// maxUploadBytes caps multipart uploads (posters, avatars).
const maxUploadBytes = 5 << 20

// OAuthFlow drives the server-side Google authorization-code flow: the
// consent redirect and the code-for-ID-token exchange. Satisfied by
// *sso.GoogleOAuth.
type OAuthFlow interface {
	AuthCodeURL(state string) string
	ExchangeIDToken(ctx context.Context, code string) (string, error)
}

// Deps carries everything the API server composes. Bridge, OAuth, Mailer,
// Metrics and RateLimit may be nil; the matching features degrade gracefully.
type Deps struct {
	Store          storage.Store
	Blobs          storage.BlobStore
	Issuer         *auth.TokenIssuer
	Hasher         *auth.PasswordHasher
	Bridge         *sso.Bridge
	OAuth          OAuthFlow
	Mailer         *mail.Client
	Logger         *observability.Logger
	Metrics        *observability.Metrics
	RateLimit      *middleware.RateLimitMiddleware
	AllowedOrigins []string
}

// Server is the API server.
type Server struct {
	store     storage.Store
	blobs     storage.BlobStore
	issuer    *auth.TokenIssuer
	hasher    *auth.PasswordHasher
	bridge    *sso.Bridge
	oauth     OAuthFlow
	mailer    *mail.Client
	logger    *observability.Logger
	metrics   *observability.Metrics
	rateLimit *middleware.RateLimitMiddleware

	router  *mux.Router
	handler http.Handler
}

// NewServer creates the API server and wires all routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		store:     deps.Store,
		blobs:     deps.Blobs,
		issuer:    deps.Issuer,
		hasher:    deps.Hasher,
		bridge:    deps.Bridge,
		oauth:     deps.OAuth,
		mailer:    deps.Mailer,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		rateLimit: deps.RateLimit,
		router:    mux.NewRouter(),
	}

	s.setupRoutes()

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(s.logger.Slog()),
		httputil.LoggingMiddleware(s.logger.Slog()),
		httputil.CORSMiddleware(origins),
	}
	if s.metrics != nil {
		chain = append(chain, observability.HTTPMetricsMiddleware(s.metrics))
	}
	s.handler = httputil.Chain(chain...)(s.router)

	return s
}

// setupRoutes registers public routes first, then everything behind the
// auth middleware. The protected subrouter is registered last because an
// unmatched request never falls back out of it.
func (s *Server) setupRoutes() {
	// Public routes.
	s.router.HandleFunc("/users", s.register).Methods("POST")
	s.router.HandleFunc("/login", s.login).Methods("POST")
	s.router.HandleFunc("/users/google", s.googleLogin).Methods("POST")
	s.router.HandleFunc("/auth/google", s.googleRedirect).Methods("GET")
	s.router.HandleFunc("/auth/google/callback", s.googleCallback).Methods("GET")
	s.router.HandleFunc("/users/{id}/avatar", s.getAvatar).Methods("GET")
	s.router.HandleFunc("/comments/content/{contentId}", s.getCommentsForContent).Methods("GET")
	s.router.HandleFunc("/comments/{id}", s.getComment).Methods("GET")

	authMW := middleware.NewAuthMiddleware(s.issuer, s.store, s.logger, s.metrics)
	protected := s.router.NewRoute().Subrouter()
	protected.Use(authMW.Handler)
	if s.rateLimit != nil {
		// After auth, so the limiter keys on the user rather than the IP.
		protected.Use(s.rateLimit.Handler)
	}

	protected.HandleFunc("/logout", s.logout).Methods("POST")
	protected.HandleFunc("/logoutall", s.logoutAll).Methods("POST")
	protected.HandleFunc("/users/me", s.getProfile).Methods("GET")
	protected.HandleFunc("/users/me", s.updateProfile).Methods("PATCH")
	protected.HandleFunc("/users/me/avatar", s.putAvatar).Methods("PUT")

	protected.HandleFunc("/contents", s.createContent).Methods("POST")
	protected.HandleFunc("/contents/searchByTitle", s.searchContents).Methods("GET")
	protected.HandleFunc("/contents/posterByTitle", s.getPosterByTitle).Methods("GET")

	protected.HandleFunc("/contents_user", s.associateContent).Methods("POST")
	protected.HandleFunc("/contents_user", s.listTrackedContents).Methods("GET")
	protected.HandleFunc("/contents_user/{id}", s.getTrackedContent).Methods("GET")
	protected.HandleFunc("/contents_user/{contentId}", s.updateWatchStatus).Methods("PATCH")
	protected.HandleFunc("/contents_user/{contentId}", s.dissociateContent).Methods("DELETE")

	protected.HandleFunc("/ratings", s.createRating).Methods("POST")
	protected.HandleFunc("/ratings", s.listRatings).Methods("GET")
	protected.HandleFunc("/ratings/{contentId}", s.getRating).Methods("GET")
	protected.HandleFunc("/ratings/{contentId}", s.updateRating).Methods("PATCH")
	protected.HandleFunc("/ratings/{contentId}", s.deleteRating).Methods("DELETE")

	protected.HandleFunc("/comments", s.createComment).Methods("POST")

	protected.HandleFunc("/lists", s.createList).Methods("POST")
	protected.HandleFunc("/lists", s.listLists).Methods("GET")
	protected.HandleFunc("/lists/{id}", s.getList).Methods("GET")
	protected.HandleFunc("/lists/{id}", s.updateList).Methods("PATCH")
}

// Router exposes the underlying router so auxiliary handlers (API docs) can
// attach themselves.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler, including the middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

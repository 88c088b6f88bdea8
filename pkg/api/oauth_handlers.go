package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cinelog/cinelog/pkg/httputil"
)

// stateCookie carries the CSRF state between the consent redirect and the
// callback.
const stateCookie = "cinelog_oauth_state"

// googleRedirect handles GET /auth/google: it plants a fresh CSRF state and
// sends the browser to Google's consent page.
func (s *Server) googleRedirect(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil || s.bridge == nil {
		httputil.WriteServiceUnavailable(w, "Google sign-in is not configured")
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

// googleCallback handles GET /auth/google/callback: it checks the CSRF
// state, exchanges the authorization code for an ID token and signs the user
// in exactly as if the token had been posted to /users/google.
func (s *Server) googleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil || s.bridge == nil {
		httputil.WriteServiceUnavailable(w, "Google sign-in is not configured")
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		httputil.WriteBadRequest(w, "Invalid state parameter")
		return
	}
	// The state is single use.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteBadRequest(w, "Missing authorization code")
		return
	}

	rawIDToken, err := s.oauth.ExchangeIDToken(r.Context(), code)
	if err != nil {
		s.countLogin("google", "failure")
		s.logger.WithRequestID(r.Context()).WithError(err).Warn("authorization code exchange failed")
		httputil.WriteUnauthorized(w, "Invalid Google token")
		return
	}

	s.finishGoogleLogin(w, r, rawIDToken)
}

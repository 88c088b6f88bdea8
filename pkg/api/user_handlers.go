package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cinelog/cinelog/pkg/httputil"
	"github.com/cinelog/cinelog/pkg/mail"
	"github.com/cinelog/cinelog/pkg/middleware"
	"github.com/cinelog/cinelog/pkg/sso"
	"github.com/cinelog/cinelog/pkg/storage"
	"github.com/cinelog/cinelog/pkg/storage/s3"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 100
)

// dateLayout is the wire format for birthdates and release dates.
const dateLayout = "2006-01-02"

func parseDate(value string) (*time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return &t, nil
}

// register handles POST /users.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") ||
		!httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if len(req.Password) < minPasswordLen || len(req.Password) > maxPasswordLen {
		httputil.WriteBadRequest(w, fmt.Sprintf("password must be between %d and %d characters", minPasswordLen, maxPasswordLen))
		return
	}

	var birthdate *time.Time
	if req.Birthdate != "" {
		var err error
		if birthdate, err = parseDate(req.Birthdate); err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to hash password")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}

	user, err := s.store.CreateUser(r.Context(), storage.NewUser{
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		Name:         req.Name,
		Birthdate:    birthdate,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			s.countRegistration("local", "conflict")
			httputil.WriteConflict(w, "Username or email already in use")
			return
		}
		s.countRegistration("local", "error")
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to create user")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}

	token, err := s.startSession(r.Context(), user.ID)
	if err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to start session")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}

	s.countRegistration("local", "success")
	s.sendWelcomeEmail(user)
	httputil.WriteCreated(w, authResponse{User: user.Redacted(), Token: token})
}

// login handles POST /login.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") ||
		!httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.countLogin("local", "failure")
			httputil.WriteUnauthorized(w, "Invalid credentials")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to load user for login")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}

	if !s.hasher.Verify(user.PasswordHash, req.Password) {
		s.countLogin("local", "failure")
		httputil.WriteUnauthorized(w, "Invalid credentials")
		return
	}

	token, err := s.startSession(r.Context(), user.ID)
	if err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to start session")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}

	s.countLogin("local", "success")
	httputil.WriteSuccess(w, authResponse{User: user.Redacted(), Token: token})
}

// googleLogin handles POST /users/google.
func (s *Server) googleLogin(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		httputil.WriteServiceUnavailable(w, "Google sign-in is not configured")
		return
	}

	var req googleLoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.IDToken, "id_token") {
		return
	}

	s.finishGoogleLogin(w, r, req.IDToken)
}

// finishGoogleLogin runs the federated bridge for a raw ID token and writes
// the session response. Shared by the token-post and redirect flows.
func (s *Server) finishGoogleLogin(w http.ResponseWriter, r *http.Request, rawIDToken string) {
	user, token, created, err := s.bridge.Login(r.Context(), rawIDToken)
	if err != nil {
		if errors.Is(err, sso.ErrInvalidToken) {
			s.countLogin("google", "failure")
			httputil.WriteUnauthorized(w, "Invalid Google token")
			return
		}
		s.countLogin("google", "error")
		s.logger.WithRequestID(r.Context()).WithError(err).Error("google login failed")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}

	s.countLogin("google", "success")
	if created {
		s.countRegistration("google", "success")
		s.sendWelcomeEmail(user)
		httputil.WriteCreated(w, authResponse{User: user.Redacted(), Token: token})
		return
	}
	httputil.WriteSuccess(w, authResponse{User: user.Redacted(), Token: token})
}

// logout handles POST /logout: it revokes exactly the token presented with
// the request, leaving other devices signed in.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)
	token := middleware.GetToken(r)

	if err := s.store.RemoveToken(r.Context(), user.ID, token); err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to remove token")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsRevoked.WithLabelValues("logout").Inc()
	}
	httputil.WriteSuccess(w, messageResponse{Message: "Logged out"})
}

// logoutAll handles POST /logoutall: it revokes every session of the user.
func (s *Server) logoutAll(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)

	if err := s.store.ClearTokens(r.Context(), user.ID); err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to clear tokens")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsRevoked.WithLabelValues("logout_all").Inc()
	}
	httputil.WriteSuccess(w, messageResponse{Message: "Logged out of all devices"})
}

// getProfile handles GET /users/me.
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, middleware.GetPrincipal(r).Redacted())
}

// updateProfile handles PATCH /users/me.
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)

	var req updateProfileRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == nil && req.Birthdate == nil {
		httputil.WriteBadRequest(w, "nothing to update")
		return
	}

	var birthdate *time.Time
	if req.Birthdate != nil {
		var err error
		if birthdate, err = parseDate(*req.Birthdate); err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
	}

	updated, err := s.store.UpdateProfile(r.Context(), user.ID, req.Name, birthdate)
	if err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to update profile")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, updated.Redacted())
}

// putAvatar handles PUT /users/me/avatar.
func (s *Server) putAvatar(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)

	file, mime, ok := s.readImageUpload(w, r, "avatar")
	if !ok {
		return
	}
	defer file.Close()

	key := s3.NewAvatarKey()
	if err := s.blobs.Put(r.Context(), key, file, mime); err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to store avatar")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	if err := s.store.UpdateAvatar(r.Context(), user.ID, key, mime); err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to record avatar")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, messageResponse{Message: "Avatar updated"})
}

// getAvatar handles GET /users/{id}/avatar. Avatars are public.
func (s *Server) getAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := s.store.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "User not found")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to load user")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	if user.AvatarKey == "" {
		httputil.WriteNotFoundError(w, "User has no avatar")
		return
	}

	s.streamBlob(w, r, user.AvatarKey, user.AvatarMime)
}

// startSession issues a token and records it in the user's session set.
func (s *Server) startSession(ctx context.Context, userID int64) (string, error) {
	token, err := s.issuer.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	if err := s.store.AddToken(ctx, userID, token); err != nil {
		return "", fmt.Errorf("failed to record session: %w", err)
	}
	return token, nil
}

// sendWelcomeEmail fires the registration email in the background. Delivery
// failures are logged, never surfaced to the client.
func (s *Server) sendWelcomeEmail(user *storage.User) {
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return
	}
	username, email := user.Username, user.Email
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		subject, html := mail.WelcomeEmail(username)
		if err := s.mailer.Send(ctx, email, subject, html); err != nil {
			s.logger.WithError(err).Warn("welcome email delivery failed")
		}
	}()
}

func (s *Server) countLogin(method, status string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(method, status).Inc()
	}
}

func (s *Server) countRegistration(method, status string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(method, status).Inc()
	}
}

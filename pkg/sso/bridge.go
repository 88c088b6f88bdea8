package sso

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cinelog/cinelog/pkg/auth"
	"github.com/cinelog/cinelog/pkg/observability"
	"github.com/cinelog/cinelog/pkg/storage"
	"github.com/cinelog/cinelog/pkg/storage/s3"
)

// maxAvatarBytes caps the profile picture downloaded from Google.
const maxAvatarBytes = 5 << 20

// Bridge turns a verified Google identity into a local authenticated
// session.
type Bridge struct {
	verifier   TokenVerifier
	users      storage.UserStore
	blobs      storage.BlobStore
	hasher     *auth.PasswordHasher
	issuer     *auth.TokenIssuer
	logger     *observability.Logger
	httpClient *http.Client
}

// NewBridge assembles the federated login bridge.
func NewBridge(verifier TokenVerifier, users storage.UserStore, blobs storage.BlobStore, hasher *auth.PasswordHasher, issuer *auth.TokenIssuer, logger *observability.Logger) *Bridge {
	return &Bridge{
		verifier:   verifier,
		users:      users,
		blobs:      blobs,
		hasher:     hasher,
		issuer:     issuer,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Login verifies the presented ID token and returns the matching local user
// plus a freshly issued session token. The second return value reports
// whether a new account was provisioned.
func (b *Bridge) Login(ctx context.Context, rawIDToken string) (*storage.User, string, bool, error) {
	claims, err := b.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, "", false, err
	}

	email := strings.ToLower(claims.Email)

	created := false
	user, err := b.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		// An account with this email already exists: it is reused for the
		// federated login even when it was registered locally or carries a
		// different Google subject.
		if user.GoogleSub != claims.Subject {
			b.logger.WithRequestID(ctx).
				WithField("user_id", user.ID).
				Warn("google login matched existing account by email")
		}
	case errors.Is(err, storage.ErrNotFound):
		user, err = b.provision(ctx, claims, email)
		if err != nil {
			return nil, "", false, err
		}
		created = true
	default:
		return nil, "", false, fmt.Errorf("failed to look up user by email: %w", err)
	}

	token, err := b.issuer.Issue(user.ID)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to issue token: %w", err)
	}
	if err := b.users.AddToken(ctx, user.ID, token); err != nil {
		return nil, "", false, fmt.Errorf("failed to record session: %w", err)
	}

	return user, token, created, nil
}

// provision creates the local account for a first-time Google sign-in. The
// avatar import is part of the transaction boundary: when the picture cannot
// be fetched the registration is aborted rather than created incomplete.
func (b *Bridge) provision(ctx context.Context, claims *Claims, email string) (*storage.User, error) {
	password, err := auth.RandomPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate placeholder password: %w", err)
	}
	hash, err := b.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
	}

	var avatarKey, avatarMime string
	if claims.Picture != "" {
		avatarKey, avatarMime, err = b.importAvatar(ctx, claims.Picture)
		if err != nil {
			return nil, fmt.Errorf("failed to import profile picture: %w", err)
		}
	}

	nu := storage.NewUser{
		Username:     usernameFromEmail(email),
		Email:        email,
		PasswordHash: hash,
		Name:         claims.Name,
		GoogleSub:    claims.Subject,
		AvatarKey:    avatarKey,
		AvatarMime:   avatarMime,
	}

	user, err := b.users.CreateUser(ctx, nu)
	if errors.Is(err, storage.ErrConflict) {
		// The derived username is taken by another account; retry once with
		// a random suffix.
		nu.Username = nu.Username + "-" + uuid.NewString()[:8]
		user, err = b.users.CreateUser(ctx, nu)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create federated user: %w", err)
	}

	b.logger.WithRequestID(ctx).
		WithField("user_id", user.ID).
		Info("provisioned account from google sign-in")
	return user, nil
}

// importAvatar downloads the Google profile picture and stores it as the new
// account's avatar.
func (b *Bridge) importAvatar(ctx context.Context, pictureURL string) (key, mime string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pictureURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to build picture request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("picture fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("picture fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		return "", "", fmt.Errorf("failed to read picture body: %w", err)
	}

	mime = resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}

	key = s3.NewAvatarKey()
	if err := b.blobs.Put(ctx, key, bytes.NewReader(data), mime); err != nil {
		return "", "", fmt.Errorf("failed to store avatar: %w", err)
	}
	return key, mime, nil
}

// usernameFromEmail derives a username from the local part of the email.
func usernameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel errors returned by all store implementations. Callers branch with
// errors.Is rather than inspecting driver-specific error types.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict indicates a uniqueness constraint was violated (duplicate
	// username, email, federated subject, content title, ...). The write is
	// rejected atomically; nothing is persisted.
	ErrConflict = errors.New("storage: conflict")
)

// NewUser carries the fields required to create an account.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Name         string
	Birthdate    *time.Time
	GoogleSub    string
	AvatarKey    string
	AvatarMime   string
}

// UserStore persists accounts and their session token sets.
//
// Token mutations (AddToken/RemoveToken/ClearTokens) are executed as single
// atomic array operations against the current persisted value, so concurrent
// logins and revocations on the same user cannot lose each other's writes.
type UserStore interface {
	CreateUser(ctx context.Context, nu NewUser) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id int64, name *string, birthdate *time.Time) (*User, error)
	UpdateAvatar(ctx context.Context, id int64, key, mime string) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error

	// Session registry operations over users.tokens.
	AddToken(ctx context.Context, userID int64, token string) error
	// RemoveToken is idempotent: removing an absent token is a no-op.
	RemoveToken(ctx context.Context, userID int64, token string) error
	ClearTokens(ctx context.Context, userID int64) error
	HasToken(ctx context.Context, userID int64, token string) (bool, error)
	// UsersWithTokens returns ids of users with at least one recorded token;
	// used by the expired-token sweeper.
	UsersWithTokens(ctx context.Context) ([]int64, error)
}

// NewContent carries the fields required to create a catalog entry.
type NewContent struct {
	Title       string
	Type        ContentType
	Synopsis    string
	PosterKey   string
	PosterMime  string
	TrailerURL  string
	ReleaseDate *time.Time
	Duration    int
	Genres      []string
	Keywords    []string
}

// ContentStore persists catalog entries.
type ContentStore interface {
	CreateContent(ctx context.Context, nc NewContent) (*Content, error)
	GetContentByID(ctx context.Context, id int64) (*Content, error)
	// SearchByTitle matches case-insensitive substrings of the title.
	SearchByTitle(ctx context.Context, title string) ([]Content, error)
	// FirstByTitle returns the first match of SearchByTitle.
	FirstByTitle(ctx context.Context, title string) (*Content, error)
}

// ContentUserStore persists per-user watch tracking.
type ContentUserStore interface {
	Associate(ctx context.Context, userID, contentID int64) (*ContentUser, error)
	ContentsForUser(ctx context.Context, userID int64) ([]Content, error)
	GetAssociation(ctx context.Context, id, userID int64) (*ContentUser, error)
	GetByContent(ctx context.Context, userID, contentID int64) (*ContentUser, error)
	UpdateStatus(ctx context.Context, userID, contentID int64, status WatchStatus) (*ContentUser, error)
	Dissociate(ctx context.Context, userID, contentID int64) error
}

// RatingStore persists user scores, one per (user, content) pair.
type RatingStore interface {
	CreateRating(ctx context.Context, userID, contentID int64, rating float64) (*Rating, error)
	RatingsForUser(ctx context.Context, userID int64) ([]Rating, error)
	GetRating(ctx context.Context, userID, contentID int64) (*Rating, error)
	UpdateRating(ctx context.Context, userID, contentID int64, rating float64) (*Rating, error)
	DeleteRating(ctx context.Context, userID, contentID int64) error
}

// CommentStore persists comments.
type CommentStore interface {
	CreateComment(ctx context.Context, userID, contentID int64, text string) (*Comment, error)
	GetCommentByID(ctx context.Context, id int64) (*Comment, error)
	// CommentsForContent returns comments newest first.
	CommentsForContent(ctx context.Context, contentID int64) ([]Comment, error)
}

// ListStore persists user-owned lists and their content memberships.
type ListStore interface {
	CreateList(ctx context.Context, userID int64, name, description string, contentID int64) (*List, error)
	ListsForUser(ctx context.Context, userID int64) ([]List, error)
	GetList(ctx context.Context, id, userID int64) (*List, error)
	UpdateList(ctx context.Context, id, userID int64, name, description *string) (*List, error)
}

// Store aggregates every persistence concern the API server needs.
type Store interface {
	UserStore
	ContentStore
	ContentUserStore
	RatingStore
	CommentStore
	ListStore
}

// BlobStore stores opaque binary objects (posters, avatars) under
// caller-chosen keys.
type BlobStore interface {
	Put(ctx context.Context, key string, content io.Reader, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}

package storage

import "time"

// User is a registered account. PasswordHash and Tokens never leave the
// process; Redacted strips them for API responses.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name,omitempty"`
	Birthdate    *time.Time `json:"birthdate,omitempty"`
	AvatarKey    string     `json:"-"`
	AvatarMime   string     `json:"-"`
	// GoogleSub is the federated-identity subject id, set only for accounts
	// created through Google sign-in.
	GoogleSub string `json:"-"`
	// Tokens is the set of currently valid bearer tokens for this user, one
	// per signed-in device.
	Tokens       []string  `json:"-"`
	RegisterDate time.Time `json:"register_date"`
}

// RedactedUser is the external representation of a User.
type RedactedUser struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	Birthdate    *time.Time `json:"birthdate,omitempty"`
	HasAvatar    bool       `json:"has_avatar"`
	RegisterDate time.Time  `json:"register_date"`
}

// Redacted returns the user without credential or session material.
func (u *User) Redacted() RedactedUser {
	return RedactedUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		Birthdate:    u.Birthdate,
		HasAvatar:    u.AvatarKey != "",
		RegisterDate: u.RegisterDate,
	}
}

// ContentType distinguishes movies from series.
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

// Content is a catalog entry. Poster bytes live in blob storage; PosterKey
// and PosterMime reference them.
type Content struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	Type         ContentType `json:"type"`
	Synopsis     string      `json:"synopsis"`
	PosterKey    string      `json:"-"`
	PosterMime   string      `json:"-"`
	TrailerURL   string      `json:"trailer_url,omitempty"`
	ReleaseDate  *time.Time  `json:"release_date,omitempty"`
	Duration     int         `json:"duration"`
	Genres       []string    `json:"genre"`
	Keywords     []string    `json:"keywords"`
	CreationDate time.Time   `json:"creation_date"`
}

// WatchStatus is the per-user tracking state of a content.
type WatchStatus string

const (
	WatchStatusWatched WatchStatus = "watched"
	WatchStatusToWatch WatchStatus = "to_watch"
)

// ContentUser is a row of the user/content watch-tracking join table.
type ContentUser struct {
	ID        int64       `json:"id_content_user"`
	UserID    int64       `json:"id_user"`
	ContentID int64       `json:"id_content"`
	Status    WatchStatus `json:"status"`
}

// Rating is a single user's score for a content, at most one per pair.
type Rating struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ContentID  int64     `json:"content_id"`
	Rating     float64   `json:"rating"`
	RatingDate time.Time `json:"rating_date"`
}

// Comment is a user remark on a content.
type Comment struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ContentID   int64     `json:"content_id"`
	Text        string    `json:"text"`
	CommentDate time.Time `json:"comment_date"`
}

// List is a user-owned named collection of contents.
type List struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CreationDate time.Time `json:"creation_date"`
	Contents     []Content `json:"contents,omitempty"`
}

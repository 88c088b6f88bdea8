package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cinelog/cinelog/pkg/storage"
)

const userColumns = `id, username, email, password_hash, name, birthdate,
	avatar_key, avatar_mime, COALESCE(google_sub, ''), tokens, register_date`

func scanUser(row interface{ Scan(...any) error }) (*storage.User, error) {
	var u storage.User
	var tokens pq.StringArray
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Name,
		&u.Birthdate, &u.AvatarKey, &u.AvatarMime, &u.GoogleSub, &tokens,
		&u.RegisterDate)
	if err != nil {
		return nil, translateErr(err)
	}
	u.Tokens = tokens
	return &u, nil
}

// CreateUser inserts a new account. Duplicate username, email or federated
// subject returns storage.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, nu storage.NewUser) (*storage.User, error) {
	var googleSub sql.NullString
	if nu.GoogleSub != "" {
		googleSub = sql.NullString{String: nu.GoogleSub, Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, name, birthdate, avatar_key, avatar_mime, google_sub)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		nu.Username, nu.Email, nu.PasswordHash, nu.Name, nu.Birthdate,
		nu.AvatarKey, nu.AvatarMime, googleSub)

	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*storage.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*storage.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// UpdateProfile changes mutable profile fields. Nil arguments leave the
// stored value untouched.
func (s *Store) UpdateProfile(ctx context.Context, id int64, name *string, birthdate *time.Time) (*storage.User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET name = COALESCE($2, name), birthdate = COALESCE($3, birthdate)
		WHERE id = $1
		RETURNING `+userColumns,
		id, name, birthdate)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return u, nil
}

func (s *Store) UpdateAvatar(ctx context.Context, id int64, key, mime string) error {
	return s.execOnUser(ctx,
		`UPDATE users SET avatar_key = $2, avatar_mime = $3 WHERE id = $1`,
		id, key, mime)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return s.execOnUser(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

// AddToken appends a bearer token to the user's session set as a single
// atomic array operation.
func (s *Store) AddToken(ctx context.Context, userID int64, token string) error {
	return s.execOnUser(ctx,
		`UPDATE users SET tokens = array_append(tokens, $2) WHERE id = $1`,
		userID, token)
}

// RemoveToken drops a token from the session set. Removing a token that is
// not present succeeds without effect.
func (s *Store) RemoveToken(ctx context.Context, userID int64, token string) error {
	return s.execOnUser(ctx,
		`UPDATE users SET tokens = array_remove(tokens, $2) WHERE id = $1`,
		userID, token)
}

// ClearTokens revokes every session of the user.
func (s *Store) ClearTokens(ctx context.Context, userID int64) error {
	return s.execOnUser(ctx,
		`UPDATE users SET tokens = '{}' WHERE id = $1`, userID)
}

// HasToken reports whether the token is in the user's current session set.
func (s *Store) HasToken(ctx context.Context, userID int64, token string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT $2 = ANY(tokens) FROM users WHERE id = $1`,
		userID, token).Scan(&ok)
	if err != nil {
		return false, translateErr(err)
	}
	return ok, nil
}

// UsersWithTokens returns ids of users holding at least one session token.
func (s *Store) UsersWithTokens(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM users WHERE cardinality(tokens) > 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with tokens: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// execOnUser runs an UPDATE that targets one user row and maps a zero-row
// result onto storage.ErrNotFound.
func (s *Store) execOnUser(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translateErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/cinelog/cinelog/pkg/storage"
)

const contentUserColumns = `id_content_user, id_user, id_content, status`

func scanContentUser(row interface{ Scan(...any) error }) (*storage.ContentUser, error) {
	var cu storage.ContentUser
	err := row.Scan(&cu.ID, &cu.UserID, &cu.ContentID, &cu.Status)
	if err != nil {
		return nil, translateErr(err)
	}
	return &cu, nil
}

// Associate links a content to a user's tracking list with the default
// to_watch status. An existing association returns storage.ErrConflict.
func (s *Store) Associate(ctx context.Context, userID, contentID int64) (*storage.ContentUser, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO content_user (id_user, id_content)
		VALUES ($1, $2)
		RETURNING `+contentUserColumns,
		userID, contentID)
	cu, err := scanContentUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to associate content: %w", err)
	}
	return cu, nil
}

// ContentsForUser returns every content the user is tracking.
func (s *Store) ContentsForUser(ctx context.Context, userID int64) ([]storage.Content, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.type, c.synopsis, c.poster_key, c.poster_mime,
			c.trailer_url, c.release_date, c.duration, c.genres, c.keywords, c.creation_date
		FROM contents c
		JOIN content_user cu ON cu.id_content = c.id
		WHERE cu.id_user = $1
		ORDER BY c.title`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked contents: %w", err)
	}
	defer rows.Close()

	var out []storage.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetAssociation fetches a tracking row by its own id, scoped to the owner.
func (s *Store) GetAssociation(ctx context.Context, id, userID int64) (*storage.ContentUser, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contentUserColumns+` FROM content_user WHERE id_content_user = $1 AND id_user = $2`,
		id, userID)
	return scanContentUser(row)
}

// GetByContent fetches the tracking row for a (user, content) pair.
func (s *Store) GetByContent(ctx context.Context, userID, contentID int64) (*storage.ContentUser, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contentUserColumns+` FROM content_user WHERE id_user = $1 AND id_content = $2`,
		userID, contentID)
	return scanContentUser(row)
}

// UpdateStatus flips the watch status of an existing association.
func (s *Store) UpdateStatus(ctx context.Context, userID, contentID int64, status storage.WatchStatus) (*storage.ContentUser, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE content_user SET status = $3
		WHERE id_user = $1 AND id_content = $2
		RETURNING `+contentUserColumns,
		userID, contentID, status)
	return scanContentUser(row)
}

// Dissociate removes a content from the user's tracking list.
func (s *Store) Dissociate(ctx context.Context, userID, contentID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM content_user WHERE id_user = $1 AND id_content = $2`,
		userID, contentID)
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

package postgres

import (
	"context"
	"fmt"

	"github.com/cinelog/cinelog/pkg/storage"
)

const listColumns = `id, user_id, name, description, creation_date`

func scanList(row interface{ Scan(...any) error }) (*storage.List, error) {
	var l storage.List
	err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.Description, &l.CreationDate)
	if err != nil {
		return nil, translateErr(err)
	}
	return &l, nil
}

// CreateList creates a named list for the user and seeds it with an initial
// content. The insert pair runs in one transaction so a bad content id leaves
// no empty list behind.
func (s *Store) CreateList(ctx context.Context, userID int64, name, description string, contentID int64) (*storage.List, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO lists (user_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING `+listColumns,
		userID, name, description)
	l, err := scanList(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO content_list (list_id, content_id) VALUES ($1, $2)`,
		l.ID, contentID); err != nil {
		return nil, fmt.Errorf("failed to add content to list: %w", translateErr(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit list creation: %w", err)
	}

	l.Contents, err = s.listContents(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListsForUser returns the user's lists with their contents populated.
func (s *Store) ListsForUser(ctx context.Context, userID int64) ([]storage.List, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE user_id = $1 ORDER BY creation_date DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	defer rows.Close()

	var out []storage.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Contents, err = s.listContents(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetList fetches one list, scoped to its owner.
func (s *Store) GetList(ctx context.Context, id, userID int64) (*storage.List, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE id = $1 AND user_id = $2`,
		id, userID)
	l, err := scanList(row)
	if err != nil {
		return nil, err
	}
	l.Contents, err = s.listContents(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// UpdateList renames or redescribes a list. Nil arguments leave the stored
// value untouched.
func (s *Store) UpdateList(ctx context.Context, id, userID int64, name, description *string) (*storage.List, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE lists
		SET name = COALESCE($3, name), description = COALESCE($4, description)
		WHERE id = $1 AND user_id = $2
		RETURNING `+listColumns,
		id, userID, name, description)
	l, err := scanList(row)
	if err != nil {
		return nil, err
	}
	l.Contents, err = s.listContents(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) listContents(ctx context.Context, listID int64) ([]storage.Content, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.type, c.synopsis, c.poster_key, c.poster_mime,
			c.trailer_url, c.release_date, c.duration, c.genres, c.keywords, c.creation_date
		FROM contents c
		JOIN content_list cl ON cl.content_id = c.id
		WHERE cl.list_id = $1
		ORDER BY cl.id_content_list`,
		listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list list contents: %w", err)
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

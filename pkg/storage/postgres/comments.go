package postgres

import (
	"context"
	"fmt"

	"github.com/cinelog/cinelog/pkg/storage"
)

const commentColumns = `id, user_id, content_id, text, comment_date`

func scanComment(row interface{ Scan(...any) error }) (*storage.Comment, error) {
	var c storage.Comment
	err := row.Scan(&c.ID, &c.UserID, &c.ContentID, &c.Text, &c.CommentDate)
	if err != nil {
		return nil, translateErr(err)
	}
	return &c, nil
}

func (s *Store) CreateComment(ctx context.Context, userID, contentID int64, text string) (*storage.Comment, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (user_id, content_id, text)
		VALUES ($1, $2, $3)
		RETURNING `+commentColumns,
		userID, contentID, text)
	c, err := scanComment(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return c, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id int64) (*storage.Comment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	return scanComment(row)
}

// CommentsForContent returns all comments on a content, newest first.
func (s *Store) CommentsForContent(ctx context.Context, contentID int64) ([]storage.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE content_id = $1 ORDER BY comment_date DESC`,
		contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var out []storage.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"
	"fmt"

	"github.com/cinelog/cinelog/pkg/storage"
)

const ratingColumns = `id, user_id, content_id, rating, rating_date`

func scanRating(row interface{ Scan(...any) error }) (*storage.Rating, error) {
	var r storage.Rating
	err := row.Scan(&r.ID, &r.UserID, &r.ContentID, &r.Rating, &r.RatingDate)
	if err != nil {
		return nil, translateErr(err)
	}
	return &r, nil
}

// CreateRating records a user's score for a content. A second rating for the
// same pair returns storage.ErrConflict.
func (s *Store) CreateRating(ctx context.Context, userID, contentID int64, rating float64) (*storage.Rating, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO ratings (user_id, content_id, rating)
		VALUES ($1, $2, $3)
		RETURNING `+ratingColumns,
		userID, contentID, rating)
	r, err := scanRating(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create rating: %w", err)
	}
	return r, nil
}

// RatingsForUser returns all of a user's ratings, most recent first.
func (s *Store) RatingsForUser(ctx context.Context, userID int64) ([]storage.Rating, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE user_id = $1 ORDER BY rating_date DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	var out []storage.Rating
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) GetRating(ctx context.Context, userID, contentID int64) (*storage.Rating, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE user_id = $1 AND content_id = $2`,
		userID, contentID)
	return scanRating(row)
}

// UpdateRating replaces the score and refreshes the rating timestamp.
func (s *Store) UpdateRating(ctx context.Context, userID, contentID int64, rating float64) (*storage.Rating, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE ratings SET rating = $3, rating_date = NOW()
		WHERE user_id = $1 AND content_id = $2
		RETURNING `+ratingColumns,
		userID, contentID, rating)
	return scanRating(row)
}

func (s *Store) DeleteRating(ctx context.Context, userID, contentID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ratings WHERE user_id = $1 AND content_id = $2`,
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

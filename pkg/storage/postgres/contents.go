package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/cinelog/cinelog/pkg/storage"
)

const contentColumns = `id, title, type, synopsis, poster_key, poster_mime,
	trailer_url, release_date, duration, genres, keywords, creation_date`

func scanContent(row interface{ Scan(...any) error }) (*storage.Content, error) {
	var c storage.Content
	var genres, keywords pq.StringArray
	err := row.Scan(&c.ID, &c.Title, &c.Type, &c.Synopsis, &c.PosterKey,
		&c.PosterMime, &c.TrailerURL, &c.ReleaseDate, &c.Duration, &genres,
		&keywords, &c.CreationDate)
	if err != nil {
		return nil, translateErr(err)
	}
	c.Genres = genres
	c.Keywords = keywords
	return &c, nil
}

// CreateContent inserts a catalog entry. A duplicate title returns
// storage.ErrConflict.
func (s *Store) CreateContent(ctx context.Context, nc storage.NewContent) (*storage.Content, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO contents (title, type, synopsis, poster_key, poster_mime, trailer_url, release_date, duration, genres, keywords)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+contentColumns,
		nc.Title, nc.Type, nc.Synopsis, nc.PosterKey, nc.PosterMime,
		nc.TrailerURL, nc.ReleaseDate, nc.Duration,
		pq.Array(nc.Genres), pq.Array(nc.Keywords))

	c, err := scanContent(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create content: %w", err)
	}
	return c, nil
}

func (s *Store) GetContentByID(ctx context.Context, id int64) (*storage.Content, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE id = $1`, id)
	return scanContent(row)
}

// SearchByTitle returns catalog entries whose title contains the query,
// case-insensitively, ordered by title.
func (s *Store) SearchByTitle(ctx context.Context, title string) ([]storage.Content, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE title ILIKE '%' || $1 || '%' ORDER BY title`,
		title)
	if err != nil {
		return nil, fmt.Errorf("failed to search contents: %w", err)
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

// FirstByTitle returns the first title match or storage.ErrNotFound.
func (s *Store) FirstByTitle(ctx context.Context, title string) (*storage.Content, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE title ILIKE '%' || $1 || '%' ORDER BY title LIMIT 1`,
		title)
	return scanContent(row)
}

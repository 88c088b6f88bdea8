package postgres

import (
	"context"
	"fmt"
)

// schema is executed at startup. CREATE TABLE IF NOT EXISTS keeps restarts
// idempotent; production deployments run the same statements as a migration.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		birthdate DATE,
		avatar_key TEXT NOT NULL DEFAULT '',
		avatar_mime TEXT NOT NULL DEFAULT '',
		google_sub TEXT UNIQUE,
		tokens TEXT[] NOT NULL DEFAULT '{}',
		register_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS contents (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL DEFAULT 'movie' CHECK (type IN ('movie', 'series')),
		synopsis TEXT NOT NULL,
		poster_key TEXT NOT NULL,
		poster_mime TEXT NOT NULL,
		trailer_url TEXT NOT NULL DEFAULT '',
		release_date DATE,
		duration INTEGER NOT NULL,
		genres TEXT[] NOT NULL DEFAULT '{}',
		keywords TEXT[] NOT NULL DEFAULT '{}',
		creation_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS content_user (
		id_content_user BIGSERIAL PRIMARY KEY,
		id_user BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		id_content BIGINT NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'to_watch' CHECK (status IN ('watched', 'to_watch')),
		UNIQUE (id_user, id_content)
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content_id BIGINT NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
		rating DOUBLE PRECISION NOT NULL,
		rating_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, content_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content_id BIGINT NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		comment_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS lists (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		creation_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS content_list (
		id_content_list BIGSERIAL PRIMARY KEY,
		list_id BIGINT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
		content_id BIGINT NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
		UNIQUE (list_id, content_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contents_title ON contents (lower(title))`,
	`CREATE INDEX IF NOT EXISTS idx_comments_content ON comments (content_id, comment_date DESC)`,
}

// InitSchema creates all tables and indexes if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

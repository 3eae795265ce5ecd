package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            UUID PRIMARY KEY,
		handle        TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		full_name     TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		refresh_token TEXT,
		avatar_url    TEXT NOT NULL DEFAULT '',
		cover_url     TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS videos (
		id               UUID PRIMARY KEY,
		owner_id         UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		title            TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		video_url        TEXT NOT NULL,
		video_key        TEXT NOT NULL DEFAULT '',
		thumbnail_url    TEXT NOT NULL DEFAULT '',
		thumbnail_key    TEXT NOT NULL DEFAULT '',
		duration_seconds INT NOT NULL DEFAULT 0,
		views            BIGINT NOT NULL DEFAULT 0,
		published        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS videos_owner_idx ON videos (owner_id)`,
	`CREATE TABLE IF NOT EXISTS playlists (
		id          UUID PRIMARY KEY,
		owner_id    UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS playlists_owner_idx ON playlists (owner_id)`,
	`CREATE TABLE IF NOT EXISTS watch_history (
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		video_id   UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		watched_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (account_id, video_id)
	)`,
	`CREATE INDEX IF NOT EXISTS watch_history_account_idx ON watch_history (account_id, watched_at DESC)`,
	`CREATE TABLE IF NOT EXISTS playlist_videos (
		playlist_id UUID NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
		video_id    UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		position    INT NOT NULL,
		PRIMARY KEY (playlist_id, video_id)
	)`,
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for _, statement := range migrationStatements {
		if _, err := pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

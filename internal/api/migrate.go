package api

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

func AutoMigrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS users (
          id         BIGSERIAL PRIMARY KEY,
          username   TEXT NOT NULL UNIQUE,
          first_name TEXT NOT NULL DEFAULT '',
          last_name  TEXT NOT NULL DEFAULT '',
          email      TEXT NOT NULL UNIQUE,
          password   TEXT NOT NULL,
          image_url  TEXT NOT NULL DEFAULT '',
          created_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		log.Printf("cure8or-api: migrate users: %v", err)
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS songs (
          id          BIGSERIAL PRIMARY KEY,
          spotify_id  TEXT NOT NULL UNIQUE,
          title       TEXT NOT NULL,
          artist      TEXT NOT NULL,
          album       TEXT NOT NULL DEFAULT '',
          duration_ms INT NOT NULL DEFAULT 0,
          preview_url TEXT NOT NULL DEFAULT '',
          spotify_url TEXT NOT NULL DEFAULT '',
          image_url   TEXT NOT NULL DEFAULT ''
      )
    `); err != nil {
		return err
	}

	// password is the bcrypt hash of the unlock password; non-null iff the
	// playlist is private.
	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS playlists (
          id          BIGSERIAL PRIMARY KEY,
          name        TEXT NOT NULL,
          description TEXT NOT NULL DEFAULT '',
          owner_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
          is_private  BOOLEAN NOT NULL DEFAULT FALSE,
          password    TEXT,
          image_url   TEXT NOT NULL DEFAULT '',
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS playlist_songs (
          playlist_id BIGINT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
          song_id     BIGINT NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
          added_by    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          PRIMARY KEY (playlist_id, song_id)
      )
    `); err != nil {
		return err
	}

	// The composite primary key is what backs the idempotent grant insert.
	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS playlist_access (
          user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
          playlist_id BIGINT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          PRIMARY KEY (user_id, playlist_id)
      )
    `); err != nil {
		return err
	}

	return nil
}

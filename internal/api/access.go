package api

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// storedPlaylist is the playlist row as the access policy sees it, password
// hash included. It never leaves this package; handlers serialize the
// Playlist view instead.
type storedPlaylist struct {
	ID           int64
	OwnerID      int64
	IsPrivate    bool
	PasswordHash *string
}

func (s *Server) getStoredPlaylist(ctx context.Context, playlistID int64) (storedPlaylist, error) {
	var pl storedPlaylist
	err := s.db.QueryRow(ctx, `
		SELECT id, owner_id, is_private, password
		FROM playlists
		WHERE id = $1
	`, playlistID).Scan(&pl.ID, &pl.OwnerID, &pl.IsPrivate, &pl.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return storedPlaylist{}, ErrNotFound
	}
	if err != nil {
		return storedPlaylist{}, err
	}
	return pl, nil
}

// hasGrant reports whether the user has previously unlocked the playlist.
func (s *Server) hasGrant(ctx context.Context, userID, playlistID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(ctx, `
		SELECT 1
		FROM playlist_access
		WHERE user_id = $1 AND playlist_id = $2
	`, userID, playlistID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// grant records that the user unlocked the playlist. Idempotent: the
// composite primary key plus ON CONFLICT DO NOTHING makes concurrent unlock
// attempts for the same pair converge to one row with neither call failing.
func (s *Server) grant(ctx context.Context, userID, playlistID int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO playlist_access (user_id, playlist_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, playlist_id) DO NOTHING
	`, userID, playlistID)
	return err
}

// resolvePlaylistAccess decides whether the caller may read the playlist's
// contents. userID is 0 for anonymous callers; password may be empty.
//
// The check order is the contract, not an accident: public short-circuits
// everything, then ownership, then an existing grant, and only a caller that
// is none of those is asked for a password. A successful verification is the
// one path that persists a grant.
func (s *Server) resolvePlaylistAccess(ctx context.Context, pl storedPlaylist, userID int64, password string) error {
	if !pl.IsPrivate {
		return nil
	}
	if userID == 0 {
		return ErrUnauthorized
	}
	if userID == pl.OwnerID {
		return nil
	}

	granted, err := s.hasGrant(ctx, userID, pl.ID)
	if err != nil {
		return err
	}
	if granted {
		return nil
	}

	// A private playlist with no hash on record is unreachable for
	// non-owners; the create/update paths reject that state, but deny here
	// rather than trust it.
	if pl.PasswordHash == nil || password == "" {
		return ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(*pl.PasswordHash), []byte(password)) != nil {
		return ErrUnauthorized
	}

	return s.grant(ctx, userID, pl.ID)
}

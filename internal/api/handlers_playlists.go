package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := s.db.Query(ctx, `
		SELECT p.id, p.name, p.description, p.owner_id, u.username,
		       p.is_private, p.image_url, p.created_at
		FROM playlists p
		JOIN users u ON p.owner_id = u.id
		ORDER BY p.created_at DESC
		LIMIT 200
	`)
	if err != nil {
		log.Printf("cure8or-api: list playlists: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer rows.Close()

	playlists := []Playlist{}
	for rows.Next() {
		var pl Playlist
		if err := rows.Scan(
			&pl.ID,
			&pl.Name,
			&pl.Description,
			&pl.OwnerID,
			&pl.OwnerUsername,
			&pl.IsPrivate,
			&pl.ImageURL,
			&pl.CreatedAt,
		); err != nil {
			log.Printf("cure8or-api: list playlists scan: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		playlists = append(playlists, pl)
	}
	if err := rows.Err(); err != nil {
		log.Printf("cure8or-api: list playlists rows: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

// handleCreatePlaylist creates a playlist owned by the caller. A private
// playlist must come with a non-empty password; the hash is stored, never
// the plaintext.
func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := callerID(r)

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		IsPrivate   bool   `json:"isPrivate"`
		Password    string `json:"password"`
		ImageURL    string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	body.Description = strings.TrimSpace(body.Description)

	if body.Name == "" || len(body.Name) > 200 {
		writeError(w, http.StatusBadRequest, "name must be between 1 and 200 characters")
		return
	}
	if len(body.Description) > 1000 {
		writeError(w, http.StatusBadRequest, "description is too long")
		return
	}
	if body.IsPrivate && body.Password == "" {
		writeError(w, http.StatusBadRequest, "a private playlist requires a password")
		return
	}

	var passwordHash *string
	if body.IsPrivate {
		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), s.bcryptCost)
		if err != nil {
			log.Printf("cure8or-api: create playlist hash: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		h := string(hash)
		passwordHash = &h
	}

	var pl Playlist
	err := s.db.QueryRow(ctx, `
		INSERT INTO playlists (name, description, owner_id, is_private, password, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, description, owner_id, is_private, image_url, created_at
	`, body.Name, body.Description, ownerID, body.IsPrivate, passwordHash, body.ImageURL).Scan(
		&pl.ID,
		&pl.Name,
		&pl.Description,
		&pl.OwnerID,
		&pl.IsPrivate,
		&pl.ImageURL,
		&pl.CreatedAt,
	)
	if err != nil {
		log.Printf("cure8or-api: create playlist: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type":    "playlist.created",
		"payload": map[string]any{"playlist": pl},
	})

	writeJSON(w, http.StatusCreated, map[string]any{"playlist": pl})
}

// handleGetPlaylist returns the playlist and its songs if the caller may
// read it. Anonymous callers can read public playlists; private ones need
// ownership or a previously persisted grant (unlocking happens on the
// access endpoint).
func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlistID, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	pl, err := s.getStoredPlaylist(ctx, playlistID)
	if err != nil {
		s.writeAccessError(w, err, "get playlist")
		return
	}

	if err := s.resolvePlaylistAccess(ctx, pl, callerID(r), ""); err != nil {
		s.writeAccessError(w, err, "get playlist access")
		return
	}

	view, err := s.fetchPlaylist(ctx, playlistID)
	if err != nil {
		s.writeAccessError(w, err, "fetch playlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"playlist": view})
}

// handleUnlockPlaylist verifies the supplied password and, on success,
// persists a grant and returns the playlist contents. Owners and already
// granted callers pass without a password.
func (s *Server) handleUnlockPlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlistID, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	if r.Body != nil {
		// An empty body is a passwordless unlock attempt, not a client error.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	pl, err := s.getStoredPlaylist(ctx, playlistID)
	if err != nil {
		s.writeAccessError(w, err, "unlock playlist")
		return
	}

	if err := s.resolvePlaylistAccess(ctx, pl, callerID(r), body.Password); err != nil {
		s.writeAccessError(w, err, "unlock playlist access")
		return
	}

	view, err := s.fetchPlaylist(ctx, playlistID)
	if err != nil {
		s.writeAccessError(w, err, "fetch playlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"playlist": view})
}

// handlePatchPlaylist updates metadata, privacy and password. Owner only.
func (s *Server) handlePatchPlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := callerID(r)

	playlistID, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ImageURL    *string `json:"imageUrl"`
		IsPrivate   *bool   `json:"isPrivate"`
		Password    *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Printf("cure8or-api: patch playlist begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback(ctx)

	var existing Playlist
	var passwordHash *string
	err = tx.QueryRow(ctx, `
		SELECT id, name, description, owner_id, is_private, password, image_url, created_at
		FROM playlists
		WHERE id = $1
	`, playlistID).Scan(
		&existing.ID,
		&existing.Name,
		&existing.Description,
		&existing.OwnerID,
		&existing.IsPrivate,
		&passwordHash,
		&existing.ImageURL,
		&existing.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if err != nil {
		log.Printf("cure8or-api: patch playlist fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if existing.OwnerID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" || len(name) > 200 {
			writeError(w, http.StatusBadRequest, "name must be between 1 and 200 characters")
			return
		}
		existing.Name = name
	}
	if body.Description != nil {
		desc := strings.TrimSpace(*body.Description)
		if len(desc) > 1000 {
			writeError(w, http.StatusBadRequest, "description is too long")
			return
		}
		existing.Description = desc
	}
	if body.ImageURL != nil {
		existing.ImageURL = *body.ImageURL
	}
	if body.IsPrivate != nil {
		existing.IsPrivate = *body.IsPrivate
	}
	if body.Password != nil {
		// An explicit empty password would leave a private playlist
		// permanently unreachable for non-owners; reject it outright.
		if *body.Password == "" {
			writeError(w, http.StatusBadRequest, "password cannot be empty")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*body.Password), s.bcryptCost)
		if err != nil {
			log.Printf("cure8or-api: patch playlist hash: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		h := string(hash)
		passwordHash = &h
	}

	// Keep the invariant: hash present iff private.
	if existing.IsPrivate && passwordHash == nil {
		writeError(w, http.StatusBadRequest, "a private playlist requires a password")
		return
	}
	if !existing.IsPrivate {
		passwordHash = nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE playlists
		SET name = $2,
			description = $3,
			is_private = $4,
			password = $5,
			image_url = $6
		WHERE id = $1
	`, existing.ID, existing.Name, existing.Description, existing.IsPrivate, passwordHash, existing.ImageURL)
	if err != nil {
		log.Printf("cure8or-api: patch playlist update: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("cure8or-api: patch playlist commit: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type":    "playlist.updated",
		"payload": map[string]any{"playlist": existing},
	})

	writeJSON(w, http.StatusOK, map[string]any{"playlist": existing})
}

// handleDeletePlaylist deletes a playlist; grants and song links cascade.
func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := callerID(r)

	playlistID, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Printf("cure8or-api: delete playlist begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback(ctx)

	var ownerID int64
	err = tx.QueryRow(ctx, "SELECT owner_id FROM playlists WHERE id = $1", playlistID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if err != nil {
		log.Printf("cure8or-api: delete playlist fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if ownerID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if _, err := tx.Exec(ctx, "DELETE FROM playlists WHERE id = $1", playlistID); err != nil {
		log.Printf("cure8or-api: delete playlist exec: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("cure8or-api: delete playlist commit: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type":    "playlist.deleted",
		"payload": map[string]any{"playlistId": playlistID},
	})

	w.WriteHeader(http.StatusNoContent)
}

type playlistView struct {
	Playlist
	Songs []PlaylistSong `json:"songs"`
}

// fetchPlaylist loads the playlist view plus its songs. Access must already
// have been resolved; this function does no policy checks.
func (s *Server) fetchPlaylist(ctx context.Context, playlistID int64) (playlistView, error) {
	var view playlistView
	err := s.db.QueryRow(ctx, `
		SELECT p.id, p.name, p.description, p.owner_id, u.username,
		       p.is_private, p.image_url, p.created_at
		FROM playlists p
		JOIN users u ON p.owner_id = u.id
		WHERE p.id = $1
	`, playlistID).Scan(
		&view.ID,
		&view.Name,
		&view.Description,
		&view.OwnerID,
		&view.OwnerUsername,
		&view.IsPrivate,
		&view.ImageURL,
		&view.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return playlistView{}, ErrNotFound
	}
	if err != nil {
		return playlistView{}, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT s.id, s.spotify_id, s.title, s.artist, s.album, s.duration_ms,
		       s.preview_url, s.spotify_url, s.image_url,
		       ps.added_by, u.username
		FROM songs s
		JOIN playlist_songs ps ON ps.song_id = s.id
		JOIN users u ON ps.added_by = u.id
		WHERE ps.playlist_id = $1
		ORDER BY ps.created_at ASC
	`, playlistID)
	if err != nil {
		return playlistView{}, err
	}
	defer rows.Close()

	view.Songs = []PlaylistSong{}
	for rows.Next() {
		var song PlaylistSong
		if err := rows.Scan(
			&song.ID,
			&song.SpotifyID,
			&song.Title,
			&song.Artist,
			&song.Album,
			&song.DurationMs,
			&song.PreviewURL,
			&song.SpotifyURL,
			&song.ImageURL,
			&song.AddedBy,
			&song.AddedByUsername,
		); err != nil {
			return playlistView{}, err
		}
		view.Songs = append(view.Songs, song)
	}
	if err := rows.Err(); err != nil {
		return playlistView{}, err
	}

	return view, nil
}

// writeAccessError maps policy errors to statuses. Every denial surfaces the
// same message so callers cannot probe which condition failed.
func (s *Server) writeAccessError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "playlist not found")
	case errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		log.Printf("cure8or-api: %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "database error")
	}
}

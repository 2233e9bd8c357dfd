package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
)

// handleAddPlaylistSong attaches a catalog track to a playlist. The song row
// is created on first use and reused afterwards.
func (s *Server) handleAddPlaylistSong(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := callerID(r)

	playlistID, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	var body struct {
		SpotifyID string `json:"spotifyId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.SpotifyID = strings.TrimSpace(body.SpotifyID)
	if body.SpotifyID == "" {
		writeError(w, http.StatusBadRequest, "spotifyId is required")
		return
	}

	var exists int
	err := s.db.QueryRow(ctx, "SELECT 1 FROM playlists WHERE id = $1", playlistID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if err != nil {
		log.Printf("cure8or-api: add song playlist check: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if s.catalog == nil {
		writeError(w, http.StatusBadGateway, "catalog is not configured")
		return
	}
	track, err := s.catalog.GetTrack(ctx, body.SpotifyID)
	if err != nil {
		log.Printf("cure8or-api: catalog get track: %v", err)
		writeError(w, http.StatusBadGateway, "failed to query catalog")
		return
	}

	// Find-or-create keyed on spotify_id. The upsert keeps stored metadata
	// fresh and always returns the row id, concurrent inserts included.
	var songID int64
	err = s.db.QueryRow(ctx, `
		INSERT INTO songs (spotify_id, title, artist, album, duration_ms, preview_url, spotify_url, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (spotify_id) DO UPDATE
		SET title = EXCLUDED.title,
		    artist = EXCLUDED.artist,
		    album = EXCLUDED.album,
		    duration_ms = EXCLUDED.duration_ms,
		    preview_url = EXCLUDED.preview_url,
		    spotify_url = EXCLUDED.spotify_url,
		    image_url = EXCLUDED.image_url
		RETURNING id
	`, track.SpotifyID, track.Title, track.Artist, track.Album, track.DurationMs,
		track.PreviewURL, track.SpotifyURL, track.ImageURL).Scan(&songID)
	if err != nil {
		log.Printf("cure8or-api: add song upsert: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO playlist_songs (playlist_id, song_id, added_by)
		VALUES ($1, $2, $3)
	`, playlistID, songID, userID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate key") {
			writeError(w, http.StatusBadRequest, "song is already in this playlist")
			return
		}
		log.Printf("cure8or-api: add song insert: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "playlist.song_added",
		"payload": map[string]any{
			"playlistId": playlistID,
			"songId":     songID,
			"addedBy":    userID,
		},
	})

	writeJSON(w, http.StatusCreated, map[string]any{"added": songID})
}

func (s *Server) handleRemovePlaylistSong(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlistID, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	songID, ok := idParam(r, "songId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid song id")
		return
	}

	var removed int64
	err := s.db.QueryRow(ctx, `
		DELETE FROM playlist_songs
		WHERE playlist_id = $1 AND song_id = $2
		RETURNING song_id
	`, playlistID, songID).Scan(&removed)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "song not found in playlist")
		return
	}
	if err != nil {
		log.Printf("cure8or-api: remove song: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "playlist.song_removed",
		"payload": map[string]any{
			"playlistId": playlistID,
			"songId":     songID,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

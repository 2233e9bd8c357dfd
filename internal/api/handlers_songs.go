package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jaykarasev/cure8or-backend/internal/catalog"
)

const searchCacheTTL = 5 * time.Minute

// handleSearchSongs proxies a catalog search. Results are cached in redis
// keyed on the normalized query so repeated searches skip the upstream call.
func (s *Server) handleSearchSongs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if len(q) > 200 {
		writeError(w, http.StatusBadRequest, "query is too long")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 25 {
			limit = v
		}
	}

	cacheKey := fmt.Sprintf("catalog:search:%s:%d", strings.ToLower(q), limit)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var items []catalog.Track
			if json.Unmarshal([]byte(cached), &items) == nil {
				writeJSON(w, http.StatusOK, map[string]any{"songs": items})
				return
			}
		}
	}

	if s.catalog == nil {
		writeError(w, http.StatusBadGateway, "catalog is not configured")
		return
	}
	items, err := s.catalog.SearchTracks(ctx, q, limit)
	if err != nil {
		log.Printf("cure8or-api: catalog search: %v", err)
		writeError(w, http.StatusBadGateway, "failed to query catalog")
		return
	}

	if s.rdb != nil {
		if data, err := json.Marshal(items); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, data, searchCacheTTL).Err(); err != nil {
				log.Printf("cure8or-api: cache search results: %v", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"songs": items})
}

// handleListSongs lists stored songs, optionally filtered by title or artist.
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := `
		SELECT id, spotify_id, title, artist, album, duration_ms,
		       preview_url, spotify_url, image_url
		FROM songs`
	var where []string
	var args []any

	if title := strings.TrimSpace(r.URL.Query().Get("title")); title != "" {
		args = append(args, "%"+title+"%")
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if artist := strings.TrimSpace(r.URL.Query().Get("artist")); artist != "" {
		args = append(args, "%"+artist+"%")
		where = append(where, fmt.Sprintf("artist ILIKE $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY title"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		log.Printf("cure8or-api: list songs: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer rows.Close()

	songs := []Song{}
	for rows.Next() {
		var song Song
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
		); err != nil {
			log.Printf("cure8or-api: list songs scan: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		log.Printf("cure8or-api: list songs rows: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"songs": songs})
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	songID, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid song id")
		return
	}

	var song Song
	err := s.db.QueryRow(ctx, `
		SELECT id, spotify_id, title, artist, album, duration_ms,
		       preview_url, spotify_url, image_url
		FROM songs
		WHERE id = $1
	`, songID).Scan(
		&song.ID,
		&song.SpotifyID,
		&song.Title,
		&song.Artist,
		&song.Album,
		&song.DurationMs,
		&song.PreviewURL,
		&song.SpotifyURL,
		&song.ImageURL,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "song not found")
		return
	}
	if err != nil {
		log.Printf("cure8or-api: get song: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"song": song})
}

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		SpotifyID  string `json:"spotifyId"`
		Title      string `json:"title"`
		Artist     string `json:"artist"`
		Album      string `json:"album"`
		DurationMs int    `json:"durationMs"`
		PreviewURL string `json:"previewUrl"`
		SpotifyURL string `json:"spotifyUrl"`
		ImageURL   string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	body.Title = strings.TrimSpace(body.Title)
	body.Artist = strings.TrimSpace(body.Artist)
	if body.SpotifyID == "" || body.Title == "" || body.Artist == "" {
		writeError(w, http.StatusBadRequest, "spotifyId, title and artist are required")
		return
	}

	var song Song
	err := s.db.QueryRow(ctx, `
		INSERT INTO songs (spotify_id, title, artist, album, duration_ms, preview_url, spotify_url, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, spotify_id, title, artist, album, duration_ms, preview_url, spotify_url, image_url
	`, body.SpotifyID, body.Title, body.Artist, body.Album, body.DurationMs,
		body.PreviewURL, body.SpotifyURL, body.ImageURL).Scan(
		&song.ID,
		&song.SpotifyID,
		&song.Title,
		&song.Artist,
		&song.Album,
		&song.DurationMs,
		&song.PreviewURL,
		&song.SpotifyURL,
		&song.ImageURL,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate key") {
			writeError(w, http.StatusConflict, "song already exists")
			return
		}
		log.Printf("cure8or-api: create song: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"song": song})
}

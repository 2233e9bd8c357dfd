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

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := s.db.Query(ctx, `
		SELECT id, username, first_name, last_name, email, image_url, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		log.Printf("cure8or-api: list users: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.ImageURL, &u.CreatedAt); err != nil {
			log.Printf("cure8or-api: list users scan: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		log.Printf("cure8or-api: list users rows: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type userProfile struct {
	User
	Playlists       []Playlist `json:"playlists"`
	AccessPlaylists []Playlist `json:"accessPlaylists"`
}

// handleGetUser returns the profile plus the playlists the user owns and the
// private playlists they have unlocked.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var profile userProfile
	err := s.db.QueryRow(ctx, `
		SELECT id, username, first_name, last_name, email, image_url, created_at
		FROM users
		WHERE id = $1
	`, userID).Scan(
		&profile.ID,
		&profile.Username,
		&profile.FirstName,
		&profile.LastName,
		&profile.Email,
		&profile.ImageURL,
		&profile.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("cure8or-api: get user: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	profile.Playlists, err = s.queryPlaylists(ctx, `
		SELECT p.id, p.name, p.description, p.owner_id, u.username,
		       p.is_private, p.image_url, p.created_at
		FROM playlists p
		JOIN users u ON p.owner_id = u.id
		WHERE p.owner_id = $1
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		log.Printf("cure8or-api: get user playlists: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	profile.AccessPlaylists, err = s.queryPlaylists(ctx, `
		SELECT p.id, p.name, p.description, p.owner_id, u.username,
		       p.is_private, p.image_url, p.created_at
		FROM playlists p
		JOIN playlist_access pa ON p.id = pa.playlist_id
		JOIN users u ON p.owner_id = u.id
		WHERE pa.user_id = $1
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		log.Printf("cure8or-api: get user access playlists: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": profile})
}

func (s *Server) queryPlaylists(ctx context.Context, query string, args ...any) ([]Playlist, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
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
			return nil, err
		}
		playlists = append(playlists, pl)
	}
	return playlists, rows.Err()
}

// handlePatchUser is a partial self-update of profile fields and password.
func (s *Server) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID != callerID(r) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var body struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Email     *string `json:"email"`
		ImageURL  *string `json:"imageUrl"`
		Password  *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Printf("cure8or-api: patch user begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback(ctx)

	var user User
	var storedHash string
	err = tx.QueryRow(ctx, `
		SELECT id, username, first_name, last_name, email, image_url, created_at, password
		FROM users
		WHERE id = $1
	`, userID).Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.ImageURL,
		&user.CreatedAt,
		&storedHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("cure8or-api: patch user fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if body.FirstName != nil {
		user.FirstName = strings.TrimSpace(*body.FirstName)
	}
	if body.LastName != nil {
		user.LastName = strings.TrimSpace(*body.LastName)
	}
	if body.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*body.Email))
		if email == "" || !strings.Contains(email, "@") {
			writeError(w, http.StatusBadRequest, "invalid email")
			return
		}
		user.Email = email
	}
	if body.ImageURL != nil {
		user.ImageURL = *body.ImageURL
	}
	if body.Password != nil {
		if len(*body.Password) < 6 {
			writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*body.Password), s.bcryptCost)
		if err != nil {
			log.Printf("cure8or-api: patch user hash: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		storedHash = string(hash)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET first_name = $2,
			last_name = $3,
			email = $4,
			image_url = $5,
			password = $6
		WHERE id = $1
	`, user.ID, user.FirstName, user.LastName, user.Email, user.ImageURL, storedHash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate key") {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		log.Printf("cure8or-api: patch user update: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("cure8or-api: patch user commit: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// handleDeleteUser removes the caller's own account; owned playlists and
// grants cascade.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID != callerID(r) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var deleted int64
	err := s.db.QueryRow(ctx, "DELETE FROM users WHERE id = $1 RETURNING id", userID).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("cure8or-api: delete user: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

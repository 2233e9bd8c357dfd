package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	ImageURL  string `json:"imageUrl"`
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	body.Username = strings.TrimSpace(body.Username)
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))

	if body.Username == "" || body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	if len(body.Username) > 50 || !strings.Contains(body.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid username or email")
		return
	}
	if len(body.Password) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), s.bcryptCost)
	if err != nil {
		log.Printf("cure8or-api: register hash: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var user User
	err = s.db.QueryRow(r.Context(), `
		INSERT INTO users (username, first_name, last_name, email, password, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, username, first_name, last_name, email, image_url, created_at
	`, body.Username, body.FirstName, body.LastName, body.Email, string(hash), body.ImageURL).Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.ImageURL,
		&user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate key") {
			writeError(w, http.StatusConflict, "username or email already registered")
			return
		}
		log.Printf("cure8or-api: register insert: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		log.Printf("cure8or-api: register token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// handleLogin exchanges a username-or-email plus password for a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	body.Identifier = strings.TrimSpace(body.Identifier)
	if body.Identifier == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	var user User
	var storedHash string
	err := s.db.QueryRow(r.Context(), `
		SELECT id, username, first_name, last_name, email, image_url, created_at, password
		FROM users
		WHERE username = $1 OR email = lower($1)
	`, body.Identifier).Scan(
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
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		log.Printf("cure8or-api: login lookup: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(body.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		log.Printf("cure8or-api: login token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

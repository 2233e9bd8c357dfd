package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/jaykarasev/cure8or-backend/internal/catalog"
)

// DB is the subset of pgxpool.Pool the server uses. Tests inject a MockDB.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Catalog is the external music catalog the song endpoints consult.
type Catalog interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]catalog.Track, error)
	GetTrack(ctx context.Context, id string) (catalog.Track, error)
}

type Config struct {
	JWTSecret  []byte
	TokenTTL   time.Duration // access token lifetime, default 1h
	BcryptCost int           // password hashing work factor, default 12
}

type Server struct {
	db      DB
	rdb     *redis.Client
	catalog Catalog

	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
}

func NewServer(db DB, rdb *redis.Client, cat Catalog, cfg Config) *Server {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.BcryptCost < bcrypt.MinCost {
		cfg.BcryptCost = 12
	}
	return &Server{
		db:         db,
		rdb:        rdb,
		catalog:    cat,
		jwtSecret:  cfg.JWTSecret,
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: cfg.BcryptCost,
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	// Every route sees a best-effort identity; routes that need one opt in
	// to requireUser below.
	r.Use(s.identityMiddleware)

	r.Get("/health", s.handleHealth)

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/token", s.handleLogin)

	r.Get("/songs/search", s.handleSearchSongs)
	r.Get("/songs", s.handleListSongs)
	r.Get("/songs/{id}", s.handleGetSong)
	r.Post("/songs", s.handleCreateSong)

	r.Get("/playlists", s.handleListPlaylists)
	r.Get("/playlists/{id}", s.handleGetPlaylist)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		r.Post("/playlists", s.handleCreatePlaylist)
		r.Post("/playlists/{id}/access", s.handleUnlockPlaylist)
		r.Patch("/playlists/{id}", s.handlePatchPlaylist)
		r.Delete("/playlists/{id}", s.handleDeletePlaylist)

		r.Post("/playlists/{id}/songs", s.handleAddPlaylistSong)
		r.Delete("/playlists/{id}/songs/{songId}", s.handleRemovePlaylistSong)

		r.Get("/users", s.handleListUsers)
		r.Get("/users/{id}", s.handleGetUser)
		r.Patch("/users/{id}", s.handlePatchUser)
		r.Delete("/users/{id}", s.handleDeleteUser)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "cure8or-api",
	})
}

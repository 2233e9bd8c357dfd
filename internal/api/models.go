package api

import (
	"errors"
	"time"
)

var (
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized covers every access denial: missing identity, wrong or
	// missing password, and private playlists with neither ownership nor a
	// grant. Callers get one kind so they cannot tell which condition failed.
	ErrUnauthorized = errors.New("unauthorized")
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

type Song struct {
	ID         int64  `json:"id"`
	SpotifyID  string `json:"spotifyId"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMs int    `json:"durationMs"`
	PreviewURL string `json:"previewUrl,omitempty"`
	SpotifyURL string `json:"spotifyUrl,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

// Playlist is the serialized playlist view. It has no password field at all,
// so the hash cannot leak through a handler response; the hash only ever
// lives on the unexported storedPlaylist inside the access policy.
type Playlist struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	OwnerID       int64     `json:"ownerId"`
	OwnerUsername string    `json:"ownerUsername,omitempty"`
	IsPrivate     bool      `json:"isPrivate"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PlaylistSong is a song inside a playlist together with who added it.
type PlaylistSong struct {
	Song
	AddedBy         int64  `json:"addedBy"`
	AddedByUsername string `json:"addedByUsername"`
}

package catalog

// Track is a song as seen in the external music catalog, before it is
// persisted locally.
type Track struct {
	SpotifyID  string `json:"spotifyId"`
	Title      string `json:"title"`
	Artist     string `json:"artist"` // all artists, comma separated
	Album      string `json:"album"`
	DurationMs int    `json:"durationMs"`
	PreviewURL string `json:"previewUrl,omitempty"`
	SpotifyURL string `json:"spotifyUrl,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

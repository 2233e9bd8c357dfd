package catalog

import (
	"context"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyClient looks tracks up in the Spotify catalog using the
// client-credentials flow. No user consent is involved; the service account
// only reads public track metadata. The oauth2 transport refreshes the app
// token transparently.
type SpotifyClient struct {
	client *spotify.Client
}

func NewSpotifyClient(ctx context.Context, clientID, clientSecret string) *SpotifyClient {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(ctx)
	return &SpotifyClient{
		client: spotify.New(httpClient, spotify.WithRetry(true)),
	}
}

func (c *SpotifyClient) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 || limit > 25 {
		limit = 10
	}

	res, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, err
	}
	if res.Tracks == nil {
		return []Track{}, nil
	}

	out := make([]Track, 0, len(res.Tracks.Tracks))
	for _, ft := range res.Tracks.Tracks {
		out = append(out, fromFullTrack(ft))
	}
	return out, nil
}

func (c *SpotifyClient) GetTrack(ctx context.Context, id string) (Track, error) {
	ft, err := c.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return Track{}, err
	}
	return fromFullTrack(*ft), nil
}

func fromFullTrack(t spotify.FullTrack) Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}

	tr := Track{
		SpotifyID:  string(t.ID),
		Title:      t.Name,
		Artist:     strings.Join(names, ", "),
		Album:      t.Album.Name,
		DurationMs: int(t.Duration),
		PreviewURL: t.PreviewURL,
	}

	if u, ok := t.ExternalURLs["spotify"]; ok && u != "" {
		tr.SpotifyURL = u
	} else {
		tr.SpotifyURL = "https://open.spotify.com/track/" + string(t.ID)
	}
	if len(t.Album.Images) > 0 {
		tr.ImageURL = t.Album.Images[0].URL
	}
	return tr
}

package trackinfo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrTrackNotFound      = errors.New("track not found")
	ErrTrackNotEmbeddable = errors.New("track is not embeddable")
)

type Info struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type Config struct {
	// OEmbedURL is the oEmbed endpoint, e.g. https://www.youtube.com/oembed.
	OEmbedURL string
	// WatchURL prefixes the track id in the url passed to oEmbed.
	WatchURL string
	// PageURL prefixes the track id for the html fallback.
	PageURL string
	// ThumbnailURL is a format string taking the track id.
	ThumbnailURL string
	Timeout      time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		OEmbedURL:    "https://www.youtube.com/oembed",
		WatchURL:     "https://www.youtube.com/watch?v=",
		PageURL:      "https://youtu.be/",
		ThumbnailURL: "https://i.ytimg.com/vi/%s/hqdefault.jpg",
		Timeout:      5 * time.Second,
	}
}

type Client struct {
	httpClient *http.Client
	cfg        Config
}

func New(cfg *Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        *cfg,
	}
}

// Lookup resolves metadata for trackID through oEmbed, falling back to
// scraping the watch page when embedding is disabled for the track.
func (c *Client) Lookup(ctx context.Context, trackID string) (*Info, error) {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return nil, ErrTrackNotFound
	}

	info, err := c.getWithOEmbed(ctx, trackID)
	if err != nil {
		if !errors.Is(err, ErrTrackNotEmbeddable) {
			return nil, fmt.Errorf("failed to get track info with oembed: %w", err)
		}

		info, err = c.getFromPage(ctx, trackID)
		if err != nil {
			return nil, fmt.Errorf("failed to get track info from page: %w", err)
		}
	}

	return info, nil
}

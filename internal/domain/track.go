package domain

// Track is an immutable playable item; two tracks are the same track when their IDs match.
type Track struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

package model

// Track is an entry in a room playlist. The game core treats it as
// opaque; the fields beyond uri/name/artists exist for the catalog
// endpoints and the client UI.
type Track struct {
	ID         string   `json:"id,omitempty"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	DurationMS int      `json:"durationMs,omitempty"`
}

// Playlist is a catalog playlist summary.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImageURL   string `json:"imageUrl,omitempty"`
	TrackCount int    `json:"trackCount"`
}

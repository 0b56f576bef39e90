package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"guessthetune/internal/model"
)

// CatalogCache handles Redis caching of Spotify catalog responses so
// repeated lobby browsing doesn't hammer the upstream API.
type CatalogCache interface {
	GetPlaylists(ctx context.Context, accessToken string) ([]model.Playlist, error)
	SetPlaylists(ctx context.Context, accessToken string, playlists []model.Playlist) error
	GetTracks(ctx context.Context, playlistID string) ([]model.Track, error)
	SetTracks(ctx context.Context, playlistID string, tracks []model.Track) error
}

type catalogCache struct {
	client       *redis.Client
	playlistsTTL time.Duration
	tracksTTL    time.Duration
}

// NewCatalogCache creates a new catalog cache.
func NewCatalogCache(client *redis.Client) CatalogCache {
	return &catalogCache{
		client:       client,
		playlistsTTL: 5 * time.Minute,
		tracksTTL:    15 * time.Minute,
	}
}

// playlistsKey is derived from a hash of the access token, which is
// the only stable per-user handle we have without storing identities.
func (c *catalogCache) playlistsKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return fmt.Sprintf("catalog:playlists:%s", hex.EncodeToString(sum[:8]))
}

func (c *catalogCache) tracksKey(playlistID string) string {
	return fmt.Sprintf("catalog:tracks:%s", playlistID)
}

func (c *catalogCache) GetPlaylists(ctx context.Context, accessToken string) ([]model.Playlist, error) {
	data, err := c.client.Get(ctx, c.playlistsKey(accessToken)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var playlists []model.Playlist
	if err := json.Unmarshal([]byte(data), &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

func (c *catalogCache) SetPlaylists(ctx context.Context, accessToken string, playlists []model.Playlist) error {
	data, err := json.Marshal(playlists)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.playlistsKey(accessToken), data, c.playlistsTTL).Err()
}

func (c *catalogCache) GetTracks(ctx context.Context, playlistID string) ([]model.Track, error) {
	data, err := c.client.Get(ctx, c.tracksKey(playlistID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tracks []model.Track
	if err := json.Unmarshal([]byte(data), &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

func (c *catalogCache) SetTracks(ctx context.Context, playlistID string, tracks []model.Track) error {
	data, err := json.Marshal(tracks)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.tracksKey(playlistID), data, c.tracksTTL).Err()
}

package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"guessthetune/internal/cache"
	"guessthetune/internal/model"
)

var (
	// ErrSpotifyUnauthorized means the access token was rejected and
	// the client should refresh it.
	ErrSpotifyUnauthorized = errors.New("spotify token expired")
	ErrSpotifyRequest      = errors.New("spotify request failed")
)

var spotifyScopes = []string{
	"streaming",
	"user-read-email",
	"user-read-private",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// SpotifyService is the thin client around the Spotify Web API: OAuth
// token exchange, catalog reads, and playback control. The game core
// never imports this package.
type SpotifyService struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	redirectURI  string
	accountsURL  string
	apiURL       string
	catalog      cache.CatalogCache // optional
	log          zerolog.Logger
}

// NewSpotifyService creates a Spotify client. catalog may be nil to
// disable response caching.
func NewSpotifyService(clientID, clientSecret, redirectURI string, catalog cache.CatalogCache, log zerolog.Logger) *SpotifyService {
	return &SpotifyService{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		accountsURL:  "https://accounts.spotify.com",
		apiURL:       "https://api.spotify.com",
		catalog:      catalog,
		log:          log.With().Str("component", "spotify").Logger(),
	}
}

// AuthorizeURL builds the Spotify authorization redirect target.
func (s *SpotifyService) AuthorizeURL() string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {s.clientID},
		"scope":         {strings.Join(spotifyScopes, " ")},
		"redirect_uri":  {s.redirectURI},
		"show_dialog":   {"true"},
	}
	return s.accountsURL + "/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for tokens.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string) (*model.TokenSet, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {s.redirectURI},
	}
	return s.tokenRequest(ctx, form)
}

// RefreshToken obtains a fresh access token. Spotify does not return a
// new refresh token, so the old one is carried over.
func (s *SpotifyService) RefreshToken(ctx context.Context, refreshToken string) (*model.TokenSet, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	tokens, err := s.tokenRequest(ctx, form)
	if err != nil {
		return nil, err
	}
	tokens.RefreshToken = refreshToken
	return tokens, nil
}

func (s *SpotifyService) tokenRequest(ctx context.Context, form url.Values) (*model.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.accountsURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(s.clientID + ":" + s.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.log.Warn().Int("status", resp.StatusCode).Bytes("body", body).Msg("token request rejected")
		return nil, fmt.Errorf("%w: status %d", ErrSpotifyRequest, resp.StatusCode)
	}

	var tokens model.TokenSet
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

type playlistsResponse struct {
	Items []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
		Tracks struct {
			Total int `json:"total"`
		} `json:"tracks"`
	} `json:"items"`
}

// GetUserPlaylists lists the user's playlists, via cache when possible.
func (s *SpotifyService) GetUserPlaylists(ctx context.Context, accessToken string) ([]model.Playlist, error) {
	if s.catalog != nil {
		if cached, err := s.catalog.GetPlaylists(ctx, accessToken); err == nil && cached != nil {
			return cached, nil
		}
	}

	var parsed playlistsResponse
	if err := s.apiGet(ctx, accessToken, "/v1/me/playlists?limit=50", &parsed); err != nil {
		return nil, err
	}

	playlists := make([]model.Playlist, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		p := model.Playlist{
			ID:         item.ID,
			Name:       item.Name,
			TrackCount: item.Tracks.Total,
		}
		if len(item.Images) > 0 {
			p.ImageURL = item.Images[0].URL
		}
		playlists = append(playlists, p)
	}

	if s.catalog != nil {
		if err := s.catalog.SetPlaylists(ctx, accessToken, playlists); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache playlists")
		}
	}
	return playlists, nil
}

type trackItem struct {
	ID      string `json:"id"`
	URI     string `json:"uri"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	DurationMS int `json:"duration_ms"`
}

type playlistTracksResponse struct {
	Items []struct {
		Track *trackItem `json:"track"`
	} `json:"items"`
}

// GetPlaylistTracks lists the playable tracks of a playlist, via cache
// when possible.
func (s *SpotifyService) GetPlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]model.Track, error) {
	if s.catalog != nil {
		if cached, err := s.catalog.GetTracks(ctx, playlistID); err == nil && cached != nil {
			return cached, nil
		}
	}

	var parsed playlistTracksResponse
	path := fmt.Sprintf("/v1/playlists/%s/tracks?limit=100", url.PathEscape(playlistID))
	if err := s.apiGet(ctx, accessToken, path, &parsed); err != nil {
		return nil, err
	}

	tracks := make([]model.Track, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		// Local and removed tracks come back as null entries.
		if item.Track == nil || item.Track.URI == "" {
			continue
		}
		tracks = append(tracks, toTrack(item.Track))
	}

	if s.catalog != nil {
		if err := s.catalog.SetTracks(ctx, playlistID, tracks); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache playlist tracks")
		}
	}
	return tracks, nil
}

type searchResponse struct {
	Tracks struct {
		Items []trackItem `json:"items"`
	} `json:"tracks"`
}

// SearchTracks runs a track search against the catalog.
func (s *SpotifyService) SearchTracks(ctx context.Context, accessToken, query string) ([]model.Track, error) {
	var parsed searchResponse
	path := "/v1/search?" + url.Values{
		"type":  {"track"},
		"q":     {query},
		"limit": {"20"},
	}.Encode()
	if err := s.apiGet(ctx, accessToken, path, &parsed); err != nil {
		return nil, err
	}

	tracks := make([]model.Track, 0, len(parsed.Tracks.Items))
	for i := range parsed.Tracks.Items {
		item := parsed.Tracks.Items[i]
		if item.URI == "" {
			continue
		}
		tracks = append(tracks, toTrack(&item))
	}
	return tracks, nil
}

func toTrack(item *trackItem) model.Track {
	t := model.Track{
		ID:         item.ID,
		URI:        item.URI,
		Name:       item.Name,
		Album:      item.Album.Name,
		DurationMS: item.DurationMS,
	}
	for _, a := range item.Artists {
		t.Artists = append(t.Artists, a.Name)
	}
	if len(item.Album.Images) > 0 {
		t.ImageURL = item.Album.Images[0].URL
	}
	return t
}

// StartPlayback transfers playback to the device and starts the given
// track URIs. The transfer step is best-effort: it fails when the
// device is already active, which is fine.
func (s *SpotifyService) StartPlayback(ctx context.Context, accessToken, deviceID string, uris []string, positionMS int) error {
	transfer := map[string]interface{}{
		"device_ids": []string{deviceID},
		"play":       false,
	}
	if err := s.apiPut(ctx, accessToken, "/v1/me/player", transfer); err != nil {
		s.log.Debug().Err(err).Msg("playback transfer failed, continuing")
	}

	body := map[string]interface{}{
		"uris":        uris,
		"position_ms": positionMS,
	}
	path := "/v1/me/player/play?device_id=" + url.QueryEscape(deviceID)
	return s.apiPut(ctx, accessToken, path, body)
}

// PausePlayback pauses playback on the device.
func (s *SpotifyService) PausePlayback(ctx context.Context, accessToken, deviceID string) error {
	path := "/v1/me/player/pause?device_id=" + url.QueryEscape(deviceID)
	return s.apiPut(ctx, accessToken, path, nil)
}

// ResumePlayback resumes playback on the device.
func (s *SpotifyService) ResumePlayback(ctx context.Context, accessToken, deviceID string) error {
	path := "/v1/me/player/play?device_id=" + url.QueryEscape(deviceID)
	return s.apiPut(ctx, accessToken, path, nil)
}

func (s *SpotifyService) apiGet(ctx context.Context, accessToken, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrSpotifyUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrSpotifyRequest, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *SpotifyService) apiPut(ctx context.Context, accessToken, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.apiURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify put %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrSpotifyUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrSpotifyRequest, resp.StatusCode)
	}
	return nil
}

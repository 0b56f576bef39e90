package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSpotify(accountsURL, apiURL string) *SpotifyService {
	svc := NewSpotifyService("client-id", "client-secret", "http://localhost:8080/auth/callback", nil, zerolog.Nop())
	if accountsURL != "" {
		svc.accountsURL = accountsURL
	}
	if apiURL != "" {
		svc.apiURL = apiURL
	}
	return svc
}

func TestAuthorizeURL(t *testing.T) {
	svc := newTestSpotify("", "")

	u, err := url.Parse(svc.AuthorizeURL())
	require.NoError(t, err)
	assert.Equal(t, "accounts.spotify.com", u.Host)
	assert.Equal(t, "/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/auth/callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "streaming")
	assert.Contains(t, q.Get("scope"), "playlist-read-private")
}

func TestExchangeCode(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/token", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Basic "))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600}`))
	}))
	defer accounts.Close()

	svc := newTestSpotify(accounts.URL, "")
	tokens, err := svc.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "at", tokens.AccessToken)
	assert.Equal(t, "rt", tokens.RefreshToken)
	assert.Equal(t, 3600, tokens.ExpiresIn)
}

func TestExchangeCode_Rejected(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer accounts.Close()

	svc := newTestSpotify(accounts.URL, "")
	_, err := svc.ExchangeCode(context.Background(), "bad-code")
	assert.ErrorIs(t, err, ErrSpotifyRequest)
}

func TestRefreshToken_KeepsOldRefreshToken(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

		// Spotify omits refresh_token on refresh responses.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-at","expires_in":3600}`))
	}))
	defer accounts.Close()

	svc := newTestSpotify(accounts.URL, "")
	tokens, err := svc.RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-at", tokens.AccessToken)
	assert.Equal(t, "old-refresh", tokens.RefreshToken)
}

func TestGetPlaylistTracks_MapsAndSkipsNulls(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/playlists/pl1/tracks", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"track":{"id":"t1","uri":"spotify:track:t1","name":"First","artists":[{"name":"A"},{"name":"B"}],"album":{"name":"Album","images":[{"url":"http://img/1"}]},"duration_ms":201000}},
			{"track":null},
			{"track":{"id":"","uri":"","name":"local file"}}
		]}`))
	}))
	defer api.Close()

	svc := newTestSpotify("", api.URL)
	tracks, err := svc.GetPlaylistTracks(context.Background(), "token-1", "pl1")
	require.NoError(t, err)

	require.Len(t, tracks, 1)
	assert.Equal(t, "t1", tracks[0].ID)
	assert.Equal(t, "spotify:track:t1", tracks[0].URI)
	assert.Equal(t, "First", tracks[0].Name)
	assert.Equal(t, []string{"A", "B"}, tracks[0].Artists)
	assert.Equal(t, "Album", tracks[0].Album)
	assert.Equal(t, "http://img/1", tracks[0].ImageURL)
	assert.Equal(t, 201000, tracks[0].DurationMS)
}

func TestGetUserPlaylists(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/me/playlists", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"pl1","name":"Road Trip","images":[{"url":"http://img/p"}],"tracks":{"total":42}}]}`))
	}))
	defer api.Close()

	svc := newTestSpotify("", api.URL)
	playlists, err := svc.GetUserPlaylists(context.Background(), "token-1")
	require.NoError(t, err)

	require.Len(t, playlists, 1)
	assert.Equal(t, "pl1", playlists[0].ID)
	assert.Equal(t, "Road Trip", playlists[0].Name)
	assert.Equal(t, "http://img/p", playlists[0].ImageURL)
	assert.Equal(t, 42, playlists[0].TrackCount)
}

func TestAPIGet_UnauthorizedMapsToSentinel(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer api.Close()

	svc := newTestSpotify("", api.URL)
	_, err := svc.GetUserPlaylists(context.Background(), "stale-token")
	assert.ErrorIs(t, err, ErrSpotifyUnauthorized)
}

func TestStartPlayback(t *testing.T) {
	var paths []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	svc := newTestSpotify("", api.URL)
	err := svc.StartPlayback(context.Background(), "token-1", "device-1", []string{"spotify:track:t1"}, 0)
	require.NoError(t, err)
	// Transfer first, then play.
	assert.Equal(t, []string{"/v1/me/player", "/v1/me/player/play"}, paths)
}

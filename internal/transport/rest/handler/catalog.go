package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"guessthetune/internal/service"
	"guessthetune/internal/transport/rest/middleware"
)

// CatalogHandler handles playlist and track lookups.
type CatalogHandler struct {
	spotify *service.SpotifyService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(spotify *service.SpotifyService) *CatalogHandler {
	return &CatalogHandler{spotify: spotify}
}

// Playlists handles GET /v1/playlists.
func (h *CatalogHandler) Playlists(w http.ResponseWriter, r *http.Request) {
	accessToken := middleware.GetAccessToken(r.Context())

	playlists, err := h.spotify.GetUserPlaylists(r.Context(), accessToken)
	if err != nil {
		writeSpotifyError(w, err, "failed to fetch playlists")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlists": playlists})
}

// PlaylistTracks handles GET /v1/playlists/{playlistId}/tracks.
func (h *CatalogHandler) PlaylistTracks(w http.ResponseWriter, r *http.Request) {
	accessToken := middleware.GetAccessToken(r.Context())
	playlistID := mux.Vars(r)["playlistId"]

	tracks, err := h.spotify.GetPlaylistTracks(r.Context(), accessToken, playlistID)
	if err != nil {
		writeSpotifyError(w, err, "failed to fetch playlist tracks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})
}

// Search handles GET /v1/search?q=...
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	accessToken := middleware.GetAccessToken(r.Context())
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "search query is required")
		return
	}

	tracks, err := h.spotify.SearchTracks(r.Context(), accessToken, query)
	if err != nil {
		writeSpotifyError(w, err, "failed to search tracks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})
}

// writeSpotifyError maps an upstream failure onto the response,
// flagging expired tokens so the client knows to refresh.
func writeSpotifyError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, service.ErrSpotifyUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error":        "Token expired",
			"needsRefresh": true,
		})
		return
	}
	writeError(w, http.StatusInternalServerError, fallback)
}

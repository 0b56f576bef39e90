package handler

import (
	"encoding/json"
	"net/http"

	"guessthetune/internal/service"
	"guessthetune/internal/transport/rest/middleware"
)

// PlaybackHandler handles playback control on the host's device.
type PlaybackHandler struct {
	spotify *service.SpotifyService
}

// NewPlaybackHandler creates a new playback handler.
func NewPlaybackHandler(spotify *service.SpotifyService) *PlaybackHandler {
	return &PlaybackHandler{spotify: spotify}
}

// PlayRequest is the request body for PUT /v1/player/play.
type PlayRequest struct {
	DeviceID   string   `json:"device_id"`
	URIs       []string `json:"uris"`
	PositionMS int      `json:"position_ms"`
}

// Play handles PUT /v1/player/play.
func (h *PlaybackHandler) Play(w http.ResponseWriter, r *http.Request) {
	accessToken := middleware.GetAccessToken(r.Context())

	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}
	if len(req.URIs) == 0 {
		writeError(w, http.StatusBadRequest, "uris array is required")
		return
	}

	if err := h.spotify.StartPlayback(r.Context(), accessToken, req.DeviceID, req.URIs, req.PositionMS); err != nil {
		writeSpotifyError(w, err, "failed to start playback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeviceRequest is the request body for pause and resume.
type DeviceRequest struct {
	DeviceID string `json:"device_id"`
}

// Pause handles PUT /v1/player/pause.
func (h *PlaybackHandler) Pause(w http.ResponseWriter, r *http.Request) {
	accessToken := middleware.GetAccessToken(r.Context())

	var req DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.spotify.PausePlayback(r.Context(), accessToken, req.DeviceID); err != nil {
		writeSpotifyError(w, err, "failed to pause playback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Resume handles PUT /v1/player/resume.
func (h *PlaybackHandler) Resume(w http.ResponseWriter, r *http.Request) {
	accessToken := middleware.GetAccessToken(r.Context())

	var req DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.spotify.ResumePlayback(r.Context(), accessToken, req.DeviceID); err != nil {
		writeSpotifyError(w, err, "failed to resume playback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

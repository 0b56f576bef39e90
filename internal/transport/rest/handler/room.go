package handler

import (
	"net/http"
	"strconv"

	"guessthetune/internal/game"
	"guessthetune/internal/repository"
)

// RoomHandler handles the read-only room directory and game history.
// All room mutations go through the WebSocket gateway.
type RoomHandler struct {
	mgr     *game.Manager
	history repository.HistoryRepo // optional
}

// NewRoomHandler creates a new room handler.
func NewRoomHandler(mgr *game.Manager, history repository.HistoryRepo) *RoomHandler {
	return &RoomHandler{mgr: mgr, history: history}
}

// List handles GET /v1/rooms.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rooms": h.mgr.RoomSummaries(),
	})
}

// History handles GET /v1/history.
func (h *RoomHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"games": []interface{}{}})
		return
	}

	limit := int64(20)
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	records, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch game history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"games": records})
}

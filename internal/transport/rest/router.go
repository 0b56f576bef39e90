package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"guessthetune/internal/game"
	"guessthetune/internal/repository"
	"guessthetune/internal/service"
	"guessthetune/internal/transport/rest/handler"
	"guessthetune/internal/transport/rest/middleware"
	"guessthetune/internal/transport/ws"
)

// Container holds all dependencies for the router.
type Container struct {
	SpotifyService *service.SpotifyService
	SessionService *service.SessionService
	GameManager    *game.Manager
	HistoryRepo    repository.HistoryRepo
	WSHandler      *ws.Handler
	ClientURL      string
	SecureCookies  bool
	AllowedOrigins []string
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.SpotifyService, c.SessionService, c.ClientURL, c.SecureCookies)
	catalogHandler := handler.NewCatalogHandler(c.SpotifyService)
	playbackHandler := handler.NewPlaybackHandler(c.SpotifyService)
	roomHandler := handler.NewRoomHandler(c.GameManager, c.HistoryRepo)

	sessionMW := middleware.NewSessionMiddleware(c.SessionService)

	r.Use(corsMiddleware(c.AllowedOrigins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","message":"GuessTheTune server is running"}`))
	}).Methods("GET")

	// OAuth flow (public)
	r.HandleFunc("/auth/login", authHandler.Login).Methods("GET")
	r.HandleFunc("/auth/callback", authHandler.Callback).Methods("GET")
	r.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST", "OPTIONS")

	// Game WebSocket (public; identity is per-connection)
	r.HandleFunc("/ws", c.WSHandler.ServeWS).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public room directory
	v1.HandleFunc("/rooms", roomHandler.List).Methods("GET", "OPTIONS")
	v1.HandleFunc("/history", roomHandler.History).Methods("GET", "OPTIONS")

	// Spotify-backed routes (require session cookie)
	authed := v1.NewRoute().Subrouter()
	authed.Use(sessionMW.RequireSession)

	authed.HandleFunc("/token", authHandler.Token).Methods("GET", "OPTIONS")
	authed.HandleFunc("/playlists", catalogHandler.Playlists).Methods("GET", "OPTIONS")
	authed.HandleFunc("/playlists/{playlistId}/tracks", catalogHandler.PlaylistTracks).Methods("GET", "OPTIONS")
	authed.HandleFunc("/search", catalogHandler.Search).Methods("GET", "OPTIONS")
	authed.HandleFunc("/player/play", playbackHandler.Play).Methods("PUT", "OPTIONS")
	authed.HandleFunc("/player/pause", playbackHandler.Pause).Methods("PUT", "OPTIONS")
	authed.HandleFunc("/player/resume", playbackHandler.Resume).Methods("PUT", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, allowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

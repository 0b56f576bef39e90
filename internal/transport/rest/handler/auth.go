package handler

import (
	"encoding/json"
	"net/http"

	"guessthetune/internal/model"
	"guessthetune/internal/service"
	"guessthetune/internal/transport/rest/middleware"
)

// AuthHandler handles the Spotify OAuth flow and session lifecycle.
type AuthHandler struct {
	spotify      *service.SpotifyService
	sessions     *service.SessionService
	clientURL    string
	secureCookie bool
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(spotify *service.SpotifyService, sessions *service.SessionService, clientURL string, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		spotify:      spotify,
		sessions:     sessions,
		clientURL:    clientURL,
		secureCookie: secureCookie,
	}
}

// Login handles GET /auth/login: redirect to Spotify authorization.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.spotify.AuthorizeURL(), http.StatusTemporaryRedirect)
}

// Callback handles GET /auth/callback: exchange the authorization code
// and establish the session cookie.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		http.Redirect(w, r, h.clientURL+"/?error=auth_failed", http.StatusTemporaryRedirect)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, h.clientURL+"/?error=no_code", http.StatusTemporaryRedirect)
		return
	}

	tokens, err := h.spotify.ExchangeCode(r.Context(), code)
	if err != nil {
		http.Redirect(w, r, h.clientURL+"/?error=token_exchange_failed", http.StatusTemporaryRedirect)
		return
	}

	if err := h.setSessionCookie(w, tokens); err != nil {
		http.Redirect(w, r, h.clientURL+"/?error=session_failed", http.StatusTemporaryRedirect)
		return
	}
	http.Redirect(w, r, h.clientURL+"/lobby?host=true", http.StatusTemporaryRedirect)
}

// Refresh handles POST /auth/refresh: trade the refresh token for a
// new access token and reissue the session cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no session cookie found")
		return
	}
	claims, err := h.sessions.Parse(cookie.Value)
	if err != nil || claims.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, "no refresh token found")
		return
	}

	tokens, err := h.spotify.RefreshToken(r.Context(), claims.RefreshToken)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	if err := h.setSessionCookie(w, tokens); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Logout handles POST /auth/logout: clear the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Token handles GET /v1/token: hand the access token to the client for
// the Web Playback SDK. The refresh token never leaves the cookie.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	accessToken := middleware.GetAccessToken(r.Context())
	if accessToken == "" {
		writeError(w, http.StatusUnauthorized, "no access token found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": accessToken})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, tokens *model.TokenSet) error {
	session, err := h.sessions.Issue(tokens)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Helper functions shared by the handler package.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

package middleware

import (
	"context"
	"net/http"

	"guessthetune/internal/service"
)

type contextKey string

const (
	AccessTokenKey  contextKey = "accessToken"
	RefreshTokenKey contextKey = "refreshToken"
)

// SessionCookieName is the httpOnly cookie carrying the signed Spotify
// session.
const SessionCookieName = "spotify_session"

// SessionMiddleware validates the Spotify session cookie.
type SessionMiddleware struct {
	sessions *service.SessionService
}

// NewSessionMiddleware creates a new session middleware.
func NewSessionMiddleware(sessions *service.SessionService) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// RequireSession parses the session cookie and puts the Spotify tokens
// on the request context.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.sessions.Parse(cookie.Value)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired session"}`, http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, AccessTokenKey, claims.AccessToken)
		ctx = context.WithValue(ctx, RefreshTokenKey, claims.RefreshToken)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAccessToken extracts the Spotify access token from context.
func GetAccessToken(ctx context.Context) string {
	if v := ctx.Value(AccessTokenKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetRefreshToken extracts the Spotify refresh token from context.
func GetRefreshToken(ctx context.Context) string {
	if v := ctx.Value(RefreshTokenKey); v != nil {
		return v.(string)
	}
	return ""
}

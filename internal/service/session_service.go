package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"guessthetune/internal/model"
)

var ErrInvalidSession = errors.New("invalid or expired session")

// SessionService wraps Spotify tokens in signed session cookies so the
// server stays stateless about who is logged in.
type SessionService struct {
	jwtSecret []byte
	ttl       time.Duration
}

// NewSessionService creates a new session service.
func NewSessionService(jwtSecret string) *SessionService {
	return &SessionService{
		jwtSecret: []byte(jwtSecret),
		ttl:       time.Hour, // matches the Spotify access token lifetime
	}
}

// Issue signs a session token carrying the given token set.
func (s *SessionService) Issue(tokens *model.TokenSet) (string, error) {
	claims := &model.SessionClaims{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// Parse validates a session token and returns its claims.
func (s *SessionService) Parse(tokenString string) (*model.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidSession
	}
	claims, ok := token.Claims.(*model.SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// TTL returns the session lifetime, used for the cookie max age.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

package model

import "github.com/golang-jwt/jwt/v5"

// TokenSet holds the Spotify tokens obtained from the OAuth code
// exchange or a refresh.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// SessionClaims wrap a TokenSet in a signed session cookie so the
// server never stores Spotify tokens itself.
type SessionClaims struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	jwt.RegisteredClaims
}

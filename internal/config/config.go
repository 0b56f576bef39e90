package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all server settings. Values come from config.yaml when
// present, with environment variables taking precedence (PORT,
// MONGO_URI, SPOTIFY_CLIENT_ID, ...).
type Config struct {
	Port      int    `mapstructure:"port"`
	ClientURL string `mapstructure:"client_url"`

	MongoURI  string `mapstructure:"mongo_uri"`
	RedisAddr string `mapstructure:"redis_addr"`

	JWTSecret     string `mapstructure:"jwt_secret"`
	SecureCookies bool   `mapstructure:"secure_cookies"`

	SpotifyClientID     string `mapstructure:"spotify_client_id"`
	SpotifyClientSecret string `mapstructure:"spotify_client_secret"`
	SpotifyRedirectURI  string `mapstructure:"spotify_redirect_uri"`

	HostDisconnectPolicy string        `mapstructure:"host_disconnect_policy"`
	GuessTimeout         time.Duration `mapstructure:"guess_timeout"`
	AdvanceDelay         time.Duration `mapstructure:"advance_delay"`
	WinningScore         int           `mapstructure:"winning_score"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// Load reads configuration from config.yaml and the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("client_url", "http://localhost:3000")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("jwt_secret", "change-me-in-production")
	v.SetDefault("secure_cookies", false)
	v.SetDefault("spotify_redirect_uri", "http://localhost:8080/auth/callback")
	v.SetDefault("host_disconnect_policy", "resilient")
	v.SetDefault("guess_timeout", "30s")
	v.SetDefault("advance_delay", "3s")
	v.SetDefault("winning_score", 10)
	v.SetDefault("cors_allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})

	// Config file is optional; env vars and defaults cover deployment.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

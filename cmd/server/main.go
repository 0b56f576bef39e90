package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"guessthetune/internal/cache"
	"guessthetune/internal/config"
	"guessthetune/internal/game"
	"guessthetune/internal/repository"
	"guessthetune/internal/service"
	"guessthetune/internal/transport/rest"
	"guessthetune/internal/transport/ws"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
		log.Warn().Msg("Spotify credentials not set; catalog and playback endpoints will fail")
	}

	// MongoDB: game history archive. The server runs without it.
	var historyRepo repository.HistoryRepo
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err == nil {
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err = mongoClient.Ping(pingCtx, nil)
		pingCancel()
	}
	if err != nil {
		log.Warn().Err(err).Msg("MongoDB unavailable, game history disabled")
	} else {
		defer mongoClient.Disconnect(context.Background())
		historyRepo = repository.NewHistoryRepo(mongoClient.Database("guessthetune"))
		log.Info().Msg("connected to MongoDB")
	}

	// Redis: Spotify catalog cache. Also optional.
	var catalogCache cache.CatalogCache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, catalog caching disabled")
		rdb.Close()
	} else {
		defer rdb.Close()
		catalogCache = cache.NewCatalogCache(rdb)
		log.Info().Msg("connected to Redis")
	}

	store := game.NewStore()
	manager := game.NewManager(store, game.DisconnectPolicy(cfg.HostDisconnectPolicy), cfg.WinningScore, log.Logger)

	hub := ws.NewHub(log.Logger)
	gateway := ws.NewGateway(manager, hub, historyRepo, cfg.GuessTimeout, cfg.AdvanceDelay, log.Logger)
	wsHandler := ws.NewHandler(hub, gateway, log.Logger)

	sessionSvc := service.NewSessionService(cfg.JWTSecret)
	spotifySvc := service.NewSpotifyService(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI, catalogCache, log.Logger)

	router := rest.NewRouter(&rest.Container{
		SpotifyService: spotifySvc,
		SessionService: sessionSvc,
		GameManager:    manager,
		HistoryRepo:    historyRepo,
		WSHandler:      wsHandler,
		ClientURL:      cfg.ClientURL,
		SecureCookies:  cfg.SecureCookies,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).
			Str("disconnect_policy", cfg.HostDisconnectPolicy).
			Dur("guess_timeout", cfg.GuessTimeout).
			Msg("GuessTheTune server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}

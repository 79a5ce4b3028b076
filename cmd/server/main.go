package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JamesClarke7283/StatelessChat/internal/config"
	"github.com/JamesClarke7283/StatelessChat/internal/crypto"
	"github.com/JamesClarke7283/StatelessChat/internal/handlers"
	"github.com/JamesClarke7283/StatelessChat/internal/logging"
	"github.com/JamesClarke7283/StatelessChat/internal/ratelimit"
	"github.com/JamesClarke7283/StatelessChat/internal/services"
	"github.com/JamesClarke7283/StatelessChat/internal/token"
	"github.com/JamesClarke7283/StatelessChat/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration from environment
	cfg := config.Load()
	logging.Init(cfg.Env, cfg.LogLevel)

	var deriver crypto.KeyDeriver = crypto.RawDeriver{}
	if cfg.KDF == "pbkdf2" {
		deriver = crypto.PBKDF2Deriver{Iterations: cfg.PBKDF2Iterations}
	}

	// Initialize core services
	store := services.NewRoomStore(deriver)
	tokens := token.NewService(store, cfg.TokenTTL)

	hub := websocket.NewHub(store)
	store.Subscribe(hub.Publish)
	go hub.Run()
	defer hub.Stop()

	limiter := ratelimit.New(cfg.JoinRatePerMinute, cfg.JoinRateBurst, 2*time.Minute)
	go limiter.Run(30 * time.Second)
	defer limiter.Stop()

	log.Info().Strs("origins", cfg.CorsOrigins).Str("kdf", cfg.KDF).Dur("token_ttl", cfg.TokenTTL).Bool("trust_proxy", cfg.TrustProxy).Msg("configuration loaded")

	router := handlers.NewRouter(handlers.RouterDeps{
		Store:        store,
		Tokens:       tokens,
		Hub:          hub,
		Limiter:      limiter,
		CorsOrigins:  cfg.CorsOrigins,
		CookieMaxAge: cfg.CookieMaxAge,
		TrustProxy:   cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("StatelessChat starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down, all rooms are discarded")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

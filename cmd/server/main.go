package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/edpulse/presence/internal/adapters/http"
	"github.com/edpulse/presence/internal/adapters/store"
	"github.com/edpulse/presence/internal/app"
	"github.com/edpulse/presence/internal/config"
	"github.com/edpulse/presence/internal/core"
	"github.com/edpulse/presence/internal/monitoring"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var presenceStore core.PresenceStore = core.NoopPresenceStore{}
	if cfg.Mongo.URI != "" {
		connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
		mongoStore, err := store.NewMongoPresence(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
		connectCancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect presence store")
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			_ = mongoStore.Close(closeCtx)
		}()
		presenceStore = mongoStore
		log.Info().Str("database", cfg.Mongo.Database).Msg("presence store connected")
	} else {
		log.Warn().Msg("no presence store configured, running in-memory only")
	}

	metrics := monitoring.New()
	hub := app.NewHub(presenceStore, cfg.GracePeriod, cfg.PingInterval, metrics)
	go hub.RunHeartbeat(ctx)

	r := router.SetupRouter(ctx, cfg, hub, metrics)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("presence server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	hub.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

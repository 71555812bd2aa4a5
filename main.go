package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"merchant-console/internal/config"
	"merchant-console/internal/db"
	"merchant-console/internal/gateway"
	"merchant-console/internal/logger"
	"merchant-console/internal/metrics"
	"merchant-console/internal/router"
	"merchant-console/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.LoadConfig()
	log := logger.InitLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().Str("api_url", cfg.APIURL).Msg("Console starting")

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	store, database := sessionStore(cfg, log)
	if database != nil {
		defer database.Close()
	}

	sessions := session.NewManager(store, cfg.IdleTimeout, log)
	gw := gateway.NewClient(cfg.APIURL, cfg.UpstreamTimeout, log)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(router.SetupRouter(cfg, sessions, gw, log), cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Exports can take a while to come back from the backend.
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		log.Info().Msgf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	sessions.Close()

	log.Info().Msg("Server stopped")
}

// sessionStore keeps sessions in MySQL when DB_URL is set and in memory
// otherwise.
func sessionStore(cfg config.Config, log zerolog.Logger) (session.Store, *sql.DB) {
	if cfg.DBUrl == "" {
		log.Warn().Msg("DB_URL not set, sessions are kept in memory")
		return session.NewMemoryStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	database, err := db.InitDB(ctx, cfg.DBUrl, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	if err := db.RunMigrations(ctx, database, log); err != nil {
		log.Fatal().Err(err).Msg("Migrations failed")
	}

	store := session.NewMySQLStore(database, log)
	if n, err := store.PurgeIdle(ctx, time.Now().Add(-cfg.IdleTimeout)); err != nil {
		log.Warn().Err(err).Msg("Failed to purge stale sessions")
	} else if n > 0 {
		log.Info().Int64("purged", n).Msg("Stale sessions removed")
	}
	return store, database
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crucial707/asset-vault/internal/config"
	"github.com/crucial707/asset-vault/internal/db"
	"github.com/crucial707/asset-vault/internal/logger"
	"github.com/crucial707/asset-vault/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.New(logger.Options{})
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogFormat == "json"})

	// Connect to database FIRST
	database, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("host", cfg.DB.Host).Msg("failed to connect to database")
	}
	defer database.Close()
	log.Info().Str("host", cfg.DB.Host).Str("name", cfg.DB.Name).Msg("connected to database")

	if cfg.DB.AutoMigrate {
		if err := db.Migrate(cfg.DB.URL()); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		log.Info().Msg("migrations applied")
	}

	files, err := storage.NewLocal(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to prepare upload directory")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(database, cfg, files, log),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Bool("tls", cfg.TLSEnabled()).Str("env", cfg.Env).Msg("starting server")
		if cfg.TLSEnabled() {
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	// Start server LAST; stop on signal or listener failure.
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

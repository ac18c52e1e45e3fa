// Command server runs the commission backend HTTP API.
//
// Startup order: environment → config → logging → tracing → database →
// collaborators (object store, notifier, identity guard, guest verifier) →
// router → HTTP server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/artisan-atelier/commission-backend/internal/auth"
	"github.com/artisan-atelier/commission-backend/internal/config"
	httpapi "github.com/artisan-atelier/commission-backend/internal/http"
	"github.com/artisan-atelier/commission-backend/internal/notify"
	"github.com/artisan-atelier/commission-backend/internal/observability"
	"github.com/artisan-atelier/commission-backend/internal/repo"
	"github.com/artisan-atelier/commission-backend/internal/storage"
	"github.com/artisan-atelier/commission-backend/internal/sysutil"
	"github.com/artisan-atelier/commission-backend/internal/verify"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting commission backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrating schema")
	}

	var store storage.Store
	if cfg.Storage.Endpoint != "" {
		ms, err := storage.NewMinio(ctx, storage.MinioOptions{
			Endpoint:       cfg.Storage.Endpoint,
			AccessKey:      cfg.Storage.AccessKey,
			SecretKey:      cfg.Storage.SecretKey,
			Bucket:         cfg.Storage.Bucket,
			UseSSL:         cfg.Storage.UseSSL,
			PublicEndpoint: cfg.Storage.PublicEndpoint,
			PublicUseSSL:   cfg.Storage.PublicUseSSL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to object store")
		}
		store = ms
		log.Info().Str("bucket", cfg.Storage.Bucket).Msg("attachment storage enabled")
	} else {
		log.Warn().Msg("MINIO_ENDPOINT not set; attachment storage disabled")
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Email.ResendAPIKey != "" {
		notifier = notify.NewEmail(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.ShopEmail, cfg.Email.SiteURL)
		log.Info().Str("shop_email", cfg.Email.ShopEmail).Msg("email notifications enabled")
	} else {
		log.Warn().Msg("RESEND_API_KEY not set; email notifications disabled")
	}

	cache := auth.NewCache(cfg.Auth.CacheTTL, nil)
	cache.StartSweeper(ctx, cfg.Auth.CacheSweep)
	guard := auth.NewGuard([]byte(cfg.Auth.JWTSecret), auth.GormStore{DB: db}, cache)

	var verifier verify.Verifier
	if cfg.Auth.TurnstileKey != "" {
		verifier = &verify.Turnstile{Secret: cfg.Auth.TurnstileKey}
		log.Info().Msg("guest verification enabled")
	} else {
		log.Warn().Msg("TURNSTILE_SECRET not set; guest submissions accepted without challenge")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, guard, store, notifier, verifier, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("stopped")
}

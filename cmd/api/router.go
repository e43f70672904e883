package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/crucial707/asset-vault/internal/auth"
	"github.com/crucial707/asset-vault/internal/config"
	"github.com/crucial707/asset-vault/internal/handlers"
	"github.com/crucial707/asset-vault/internal/middleware"
	"github.com/crucial707/asset-vault/internal/repo"
	"github.com/crucial707/asset-vault/internal/storage"
)

// newRouter wires repositories, auth and handlers into the chi router.
// Collection routes are registered with and without the trailing slash.
func newRouter(db *sql.DB, cfg config.Config, files *storage.Local, log zerolog.Logger) http.Handler {
	users := repo.NewUserRepo(db)
	assets := repo.NewAssetRepo(db)
	audit := repo.NewAuditRepo(db)

	tokens := auth.NewTokenService([]byte(cfg.JWTSecret))
	gate := auth.NewGate(tokens, users)

	authHandler := &handlers.AuthHandler{
		Users:  users,
		Audit:  audit,
		Hasher: auth.NewPasswordHasher(cfg.BcryptCost),
		Tokens: tokens,
		TTL:    cfg.AccessTokenTTL,
		Log:    log,
	}
	assetHandler := &handlers.AssetHandler{Repo: assets, Audit: audit, Files: files, Log: log}
	auditHandler := &handlers.AuditHandler{Repo: audit, Log: log}
	healthHandler := &handlers.HealthHandler{DB: db}

	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Error().Err(err).Msg("ignoring TRUSTED_PROXIES; forwarding headers will not be trusted")
		trusted = nil
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(trusted))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.RequestLog(log))
	r.Use(middleware.Prometheus)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// ==========================
	// Public files and metrics
	// ==========================
	r.Handle("/metrics", promhttp.Handler())
	uploads := middleware.UploadHeaders(cfg.TLSEnabled())(http.StripPrefix(storage.URLPrefix, files.Handler()))
	r.Handle(storage.URLPrefix+"*", uploads)

	// ==========================
	// API
	// ==========================
	r.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHeaders(cfg.TLSEnabled()))

		r.Get("/", healthHandler.Root)
		r.Get("/ready", healthHandler.Ready)

		r.Get("/assets", assetHandler.ListAssets)
		r.Get("/assets/", assetHandler.ListAssets)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst))
			r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

			r.Post("/users", authHandler.Register)
			r.Post("/users/", authHandler.Register)
			r.Post("/token", authHandler.Token)
		})

		// Admin only. RequireUser must run before RequireAdmin.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(gate, log))
			r.Use(middleware.RequireAdmin(gate))

			upload := middleware.MaxBytes(cfg.MaxUploadBytes)(http.HandlerFunc(assetHandler.Upload))
			r.Method(http.MethodPost, "/upload", upload)
			r.Method(http.MethodPost, "/upload/", upload)

			r.Get("/audit", auditHandler.ListAudit)
			r.Get("/audit/", auditHandler.ListAudit)
		})
	})

	return r
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"

	"github.com/streamtrack/streamtrack/adapters/gin/handlers"
	"github.com/streamtrack/streamtrack/avatars"
	"github.com/streamtrack/streamtrack/config"
	"github.com/streamtrack/streamtrack/identity"
	"github.com/streamtrack/streamtrack/jobs"
	"github.com/streamtrack/streamtrack/keycloak"
	migrations "github.com/streamtrack/streamtrack/migrations/postgres"
	"github.com/streamtrack/streamtrack/notes"
	redislimiter "github.com/streamtrack/streamtrack/ratelimit/redis"
	"github.com/streamtrack/streamtrack/tmdb"
	"github.com/streamtrack/streamtrack/users"
	"github.com/streamtrack/streamtrack/watchlist"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration invalid")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("postgres pool setup failed")
	}
	defer pool.Close()

	if err := runMigrations(ctx, pool); err != nil {
		log.WithError(err).Fatal("migrations failed")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	// Auth chain.
	keys := keycloak.NewKeyProvider(cfg.JWKSURL, nil, log)
	if _, err := keys.Refresh(ctx); err != nil {
		// Keycloak may still be booting; the verifier retries per request.
		log.WithError(err).Warn("initial jwks fetch failed")
	}
	verifier := keycloak.NewVerifier(keys, cfg.ExpectedIssuer, cfg.ExpectedAudience, cfg.ClientID)
	admin := keycloak.NewAdminClient(cfg.KeycloakURL, cfg.Realm, cfg.AdminUsername, cfg.AdminPassword, nil, log)

	// Stores and services.
	userStore := identity.NewStore(pool)
	var resolverOpts []identity.ResolverOpt
	if cfg.ResolverFailOpen {
		resolverOpts = append(resolverOpts, identity.WithFailOpen())
	}
	resolver := identity.NewResolver(userStore, log, resolverOpts...)

	regStore := users.NewRegistrationStore(pool)
	userSvc := users.NewService(userStore, admin, regStore, log)

	noteStore := notes.NewStore(pool)
	watchStore := watchlist.NewStore(pool)

	avatarStore, err := avatars.NewStore(cfg.AvatarDir, cfg.AvatarPublicURL)
	if err != nil {
		log.WithError(err).Fatal("avatar store setup failed")
	}

	tmdbClient := tmdb.NewClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey, rdb, cfg.TMDBCacheTTL, log)

	// Background machinery.
	riverClient, err := jobs.NewRiverClient(pool)
	if err != nil {
		log.WithError(err).Fatal("job queue setup failed")
	}
	if err := riverClient.Start(ctx); err != nil {
		log.WithError(err).Fatal("job queue start failed")
	}
	auditor := jobs.NewAuditor(riverClient, log)

	sched := jobs.StartSchedules(keys, userSvc, log)

	limiter := redislimiter.New(rdb, map[string]redislimiter.Limit{
		"register": {Limit: 5, Window: time.Minute},
		"default":  {Limit: 100, Window: time.Minute},
	})

	router := handlers.Router(handlers.Deps{
		Verifier:       verifier,
		Resolver:       resolver,
		Users:          userSvc,
		Notes:          noteStore,
		Watchlist:      watchStore,
		Avatars:        avatarStore,
		TMDB:           tmdbClient,
		Audit:          auditor,
		Limiter:        limiter,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete")
	}
	<-sched.Stop().Done()
	if err := riverClient.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("job queue shutdown incomplete")
	}
	log.Info("bye")
	os.Exit(0)
}

// runMigrations applies the embedded schema migrations. Bun drives the
// migration table over a database/sql handle borrowed from the pgx pool's
// config.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	sqldb := sql.OpenDB(stdlib.GetPoolConnector(pool))
	defer sqldb.Close()

	db := bun.NewDB(sqldb, pgdialect.New())
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}
	_, err := migrator.Migrate(ctx)
	return err
}

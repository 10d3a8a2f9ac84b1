package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	gategin "github.com/swimbuddz/membership-gateway/adapters/gin"
	"github.com/swimbuddz/membership-gateway/adapters/gin/handlers"
	"github.com/swimbuddz/membership-gateway/audit"
	auditpg "github.com/swimbuddz/membership-gateway/audit/postgres"
	"github.com/swimbuddz/membership-gateway/config"
	"github.com/swimbuddz/membership-gateway/gate"
	"github.com/swimbuddz/membership-gateway/members"
	migrations "github.com/swimbuddz/membership-gateway/migrations/postgres"
	"github.com/swimbuddz/membership-gateway/ratelimit"
	memorylimiter "github.com/swimbuddz/membership-gateway/ratelimit/memory"
	redislimiter "github.com/swimbuddz/membership-gateway/ratelimit/redis"
	"github.com/swimbuddz/membership-gateway/session"
	memorystore "github.com/swimbuddz/membership-gateway/storage/memory"
	redisstore "github.com/swimbuddz/membership-gateway/storage/redis"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logrus.New()
	if cfg.Prod() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	verifier := buildVerifier(ctx, cfg, log)

	client := members.NewClient(cfg.APIBase, cfg.MemberFetchTimeout)

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("invalid REDIS_URL")
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
	}

	var cache members.ProfileCache
	switch {
	case rdb != nil:
		cache = redisstore.NewProfileCache(rdb, "", cfg.ProfileCacheTTL)
	case cfg.ProfileCacheTTL > 0:
		mc := memorystore.NewProfileCache(cfg.ProfileCacheTTL)
		defer mc.Close()
		cache = mc
	}
	src := &members.CachedSource{Client: client, Cache: cache, Log: log}

	engine := gate.New(gate.Config{AdminEmail: cfg.AdminEmail}, src)

	var limiter ratelimit.Limiter
	if rdb != nil {
		limiter = redislimiter.New(rdb, nil)
	} else {
		limiter = memorylimiter.New(nil)
	}

	var recorder audit.Recorder = audit.NopRecorder{}
	var store *auditpg.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("connect postgres")
		}
		defer pool.Close()
		store = auditpg.NewStore(pool, "")

		if err := runMigrations(ctx, cfg.DatabaseURL); err != nil {
			log.WithError(err).Fatal("apply migrations")
		}

		migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
		if err != nil {
			log.WithError(err).Fatal("river migrator")
		}
		if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
			log.WithError(err).Fatal("river migrations")
		}

		workers := river.NewWorkers()
		river.AddWorker(workers, &auditpg.RecordWorker{Store: store})
		riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
			Queues:  map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: 4}},
			Workers: workers,
		})
		if err != nil {
			log.WithError(err).Fatal("river client")
		}
		if err := riverClient.Start(ctx); err != nil {
			log.WithError(err).Fatal("river start")
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = riverClient.Stop(stopCtx)
		}()
		recorder = audit.NewQueueRecorder(riverClient)

		cr := cron.New()
		if _, err := cr.AddFunc("@daily", func() {
			cutoff := time.Now().Add(-cfg.AuditRetention)
			n, err := store.DeleteOlderThan(context.Background(), cutoff)
			if err != nil {
				log.WithError(err).Warn("audit retention sweep failed")
				return
			}
			log.WithField("deleted", n).Info("audit retention sweep")
		}); err != nil {
			log.WithError(err).Fatal("schedule retention sweep")
		}
		cr.Start()
		defer cr.Stop()
	}

	gateCfg := gategin.GateConfig{Engine: engine, Verifier: verifier, Audit: recorder, Limiter: limiter, Log: log}

	if cfg.Prod() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gategin.RequestLogger(log))

	r.GET("/healthz", handlers.HandleHealthzGET())
	r.GET("/authz/decision", handlers.HandleDecisionGET(gateCfg, limiter))
	r.GET("/authz/audit", handlers.HandleAuditRecentGET(gateCfg, store, cfg.AdminEmail, limiter))

	// Everything else goes through the gate, then either proxies to the
	// web app or answers 204 for a fronting forward-auth proxy.
	r.NoRoute(gategin.Gate(gateCfg), passHandler(cfg, log))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.WithField("port", cfg.Port).Info("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
}

// buildVerifier prefers the shared HS256 project secret; without one it
// falls back to the project's JWKS.
func buildVerifier(ctx context.Context, cfg config.Config, log *logrus.Logger) session.Verifier {
	if cfg.SupabaseJWTSecret != "" {
		v, err := session.NewHSVerifier(cfg.SupabaseJWTSecret, session.WithAudience("authenticated"))
		if err != nil {
			log.WithError(err).Fatal("session verifier")
		}
		return v
	}
	if jwksURL := cfg.JWKSURL(); jwksURL != "" {
		v, err := session.NewJWKSVerifier(ctx, jwksURL)
		if err != nil {
			log.WithError(err).Fatal("session verifier")
		}
		return v
	}
	log.Fatal("set SUPABASE_JWT_SECRET or SUPABASE_URL")
	return nil
}

// runMigrations applies the gateway's schema migrations (audit tables)
// through the bun migrator. River's queue tables are handled separately by
// rivermigrate.
func runMigrations(ctx context.Context, dsn string) error {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}
	_, err := migrator.Migrate(ctx)
	return err
}

func passHandler(cfg config.Config, log *logrus.Logger) gin.HandlerFunc {
	if cfg.UpstreamURL == "" {
		return func(c *gin.Context) { c.Status(http.StatusNoContent) }
	}
	target, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		log.WithError(err).Fatal("invalid UPSTREAM_URL")
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	return func(c *gin.Context) {
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

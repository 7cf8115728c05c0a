// Command storefront-server serves the storefront catalog and account API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/storefront/internal/config"
	"github.com/and161185/storefront/internal/limiter"
	"github.com/and161185/storefront/internal/logger"
	"github.com/and161185/storefront/internal/migrate"
	"github.com/and161185/storefront/internal/repository"
	"github.com/and161185/storefront/internal/repository/postgres"
	"github.com/and161185/storefront/internal/repository/rediscache"
	"github.com/and161185/storefront/internal/server"
	"github.com/and161185/storefront/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and serves HTTP until signalled.
func main() {
	cfg := config.MustLoad()

	// Flags override config
	addr := flag.String("addr", cfg.Server.Addr, "listen address")
	dsn := flag.String("dsn", cfg.Postgres.DSN, "PostgreSQL DSN")
	jwtKey := flag.String("jwt-key", cfg.Auth.JWTKey, "HS256 signing key (required)")
	accessTTL := flag.Duration("access-ttl", cfg.Auth.AccessTTL, "access token TTL")
	refreshTTL := flag.Duration("refresh-ttl", cfg.Auth.RefreshTTL, "refresh token TTL")
	memLimiter := flag.Bool("mem-limiter", false, "keep login attempts in memory instead of PostgreSQL")
	flag.Parse()

	log := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	defer func() { _ = log.Sync() }()
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	if *jwtKey == "" {
		log.Fatal("missing jwt signing key (--jwt-key or AUTH_JWT_KEY)")
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, *dsn); err != nil {
		log.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, *dsn)
	if err != nil {
		log.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	var products repository.ProductRepository = postgres.NewProductRepo(db)
	if cfg.Redis.Enabled {
		rdb, err := rediscache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		products = rediscache.New(products, rdb, cfg.Redis.TTL, log.Named("cache"))
	}
	users := postgres.NewUserRepo(db)

	policy := limiter.Policy{Window: cfg.Auth.Window, MaxFails: cfg.Auth.MaxFails, BlockFor: cfg.Auth.BlockFor}
	var lim limiter.Limiter = limiter.NewPG(db.Pool, policy)
	if *memLimiter {
		lim = limiter.NewMemory(policy)
	}

	// Services
	authSvc := service.NewAuthService(users, []byte(*jwtKey), *accessTTL, *refreshTTL, lim)
	productSvc := service.NewProductService(products)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           server.New(productSvc, authSvc, log.Named("http")).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	log.Info("shutdown complete")
}

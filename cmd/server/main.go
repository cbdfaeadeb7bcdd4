package main

import (
	"context"
	"database/sql"
	"errors"
	"evacuation-dashboard/internal/adapters/cache"
	"evacuation-dashboard/internal/adapters/repositories"
	"evacuation-dashboard/internal/api"
	"evacuation-dashboard/internal/config"
	"evacuation-dashboard/internal/platform/db"
	"evacuation-dashboard/internal/platform/logging"
	"evacuation-dashboard/internal/ports"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// main is the application composition root.
// It wires the configured plan store (memory, SQLite or Postgres, optionally
// fronted by Redis) behind the repository port and starts the HTTP server.
func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, flush, err := logging.Install(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer flush()

	if envErr != nil {
		log.Info("No .env file found (using environment variables)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *zap.Logger) error {
	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Seed demo data on startup for local runs; existing ids are left alone.
	if cfg.SeedPath != "" {
		n, err := repositories.SeedFromJSON(ctx, repo, cfg.SeedPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn("seed file not found, starting empty", zap.String("path", cfg.SeedPath))
		case err != nil:
			return err
		default:
			log.Info("seeded plans", zap.Int("inserted", n), zap.String("path", cfg.SeedPath))
		}
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		repo, err = cache.NewRedisPlanCache(repo, rdb, cfg.CacheTTL, log)
		if err != nil {
			return err
		}
		log.Info("plan list cache enabled", zap.String("addr", opts.Addr), zap.Duration("ttl", cfg.CacheTTL))
	}

	router := api.NewRouter(repo, api.Options{AllowedOrigins: cfg.AllowedOrigins, Logger: log})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", zap.String("addr", srv.Addr), zap.String("store", string(cfg.Store)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore returns the configured repository and a func releasing it.
func openStore(ctx context.Context, cfg config.Server, log *zap.Logger) (ports.PlanRepository, func(), error) {
	var (
		conn    *sql.DB
		dialect repositories.Dialect
		err     error
	)

	switch cfg.Store {
	case config.StoreMemory:
		return repositories.NewMemoryPlanRepository(), func() {}, nil
	case config.StorePostgres:
		conn, err = db.Open(ctx, cfg.DatabaseURL)
		dialect = repositories.DialectPostgres
	default:
		conn, err = db.OpenSQLite(ctx, cfg.DBPath)
		dialect = repositories.DialectSQLite
	}
	if err != nil {
		return nil, nil, err
	}

	if err := repositories.InitSchema(conn, dialect); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := conn.Close(); err != nil {
			log.Warn("close database", zap.Error(err))
		}
	}
	return repositories.NewSQLPlanRepository(conn, dialect), closeFn, nil
}

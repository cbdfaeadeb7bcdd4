package main

import (
	"context"
	"database/sql"
	"evacuation-dashboard/internal/adapters/repositories"
	"evacuation-dashboard/internal/config"
	"evacuation-dashboard/internal/platform/db"
	"evacuation-dashboard/internal/platform/logging"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// dbtool creates the plan tables and loads the seed file into Postgres
// (DATABASE_URL) or, with -sqlite, into the SQLite file at DB_PATH.
func main() {
	useSQLite := flag.Bool("sqlite", false, "target the SQLite file at DB_PATH instead of DATABASE_URL")
	seedPath := flag.String("seed", "", "seed file (default: SEED_PATH)")
	flag.Parse()

	envErr := godotenv.Load()

	log, flush, err := logging.Install(config.Get("LOG_LEVEL", "info"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer flush()
	if envErr != nil {
		log.Info("No .env file found (using environment variables)")
	}

	if *seedPath == "" {
		*seedPath = config.Get("SEED_PATH", config.DefaultSeedPath)
	}

	ctx := context.Background()
	conn, dialect, err := open(ctx, *useSQLite)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	if err := initAndSeed(ctx, log, conn, dialect, *seedPath); err != nil {
		log.Error("dbtool failed", zap.Error(err))
		flush()
		os.Exit(1)
	}
}

func open(ctx context.Context, useSQLite bool) (*sql.DB, repositories.Dialect, error) {
	if useSQLite {
		conn, err := db.OpenSQLite(ctx, config.Get("DB_PATH", config.DefaultDBPath))
		return conn, repositories.DialectSQLite, err
	}

	databaseURL := config.Get("DATABASE_URL", "")
	if databaseURL == "" {
		return nil, "", fmt.Errorf("DATABASE_URL is required")
	}
	conn, err := db.Open(ctx, databaseURL)
	return conn, repositories.DialectPostgres, err
}

func initAndSeed(ctx context.Context, log *zap.Logger, conn *sql.DB, dialect repositories.Dialect, seedPath string) error {
	log.Info("Initializing database schema...")
	if err := repositories.InitSchema(conn, dialect); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	log.Info("Schema ready.")

	log.Info("Seeding database...", zap.String("path", seedPath))
	n, err := repositories.SeedFromJSON(ctx, repositories.NewSQLPlanRepository(conn, dialect), seedPath)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	log.Info("Seeding complete.", zap.Int("inserted", n))

	return nil
}

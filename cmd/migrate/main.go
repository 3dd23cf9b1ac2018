// Command migrate runs the schema migrations outside the API process.
//
//	migrate up            apply all pending migrations
//	migrate down N        roll back N migrations
//	migrate force V       mark version V clean after a failed migration
//	migrate version       print the current version
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/config"
	"github.com/yourusername/dealership-api/internal/pkg/logger"
	"github.com/yourusername/dealership-api/pkg/database"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", envOr("CONFIG_PATH", "config/config.yaml"), "path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] up | down N | force V | version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Environment, cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}

	m, err := database.NewMigrator(db, cfg.Database.MigrationsPath)
	if err != nil {
		log.Fatal("failed to create migrator", zap.Error(err))
	}

	if err := run(m, flag.Args(), log); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
}

func run(m *migrate.Migrate, args []string, log *zap.Logger) error {
	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
	case "down":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		if err := m.Steps(-n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		if err := m.Force(v); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info("no migrations applied")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a numeric argument", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid argument %q", args[1])
	}
	return n, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

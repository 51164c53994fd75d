package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/config"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/env"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/logging"
)

func main() {
	env.SetupEnvFile()

	log, err := logging.New(env.IsDev())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]

	db := config.FromEnv().Database
	if !db.Configured() {
		log.Fatal("database not configured, set DB_DSN or DB_HOST and DB_NAME")
	}

	log.Info("connecting to database",
		zap.String("driver", db.Driver),
		zap.String("host", db.Host),
		zap.String("name", db.Name))

	databaseURL, err := db.MigrateURL()
	if err != nil {
		log.Fatal("invalid database configuration", zap.Error(err))
	}

	m, err := migrate.New(
		"file://migrations/"+db.Driver, // per dialect migration files
		databaseURL,
	)
	if err != nil {
		log.Fatal("failed to initialize migrations", zap.Error(err))
	}

	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Warn("failed to close migration resources", zap.NamedError("source", sourceErr), zap.NamedError("db", dbErr))
		}
	}()

	switch command {
	case "up":
		// Apply all pending migrations
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("failed to apply migrations", zap.Error(err))
		} else if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no change: database is already up to date")
		} else {
			log.Info("migrations applied")
		}

	case "down":
		// Roll back the most recent migration
		if err := m.Steps(-1); err != nil {
			log.Fatal("failed to roll back the last migration", zap.Error(err))
		}
		log.Info("rolled back the last migration")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatal("missing version number")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatal("invalid version number", zap.Error(err))
		}

		if err := m.Migrate(uint(version)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("failed to migrate", zap.Uint64("version", version), zap.Error(err))
		} else if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no change: database is already at version", zap.Uint64("version", version))
		} else {
			log.Info("migrated", zap.Uint64("version", version))
		}

	case "status":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Info("no migrations have been applied yet")
			} else {
				log.Fatal("failed to read migration version", zap.Error(err))
			}
		} else {
			log.Info("current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go [command]")
	fmt.Println("Commands:")
	fmt.Println("  up     - apply all pending migrations")
	fmt.Println("  down   - roll back the last migration")
	fmt.Println("  goto N - migrate to version N")
	fmt.Println("  status - show the current migration version")
}

// Command migrate applies the embedded database migrations.
//
//	migrate -command up|down|status|version|reset
//	migrate -command create -name add_index -dir migrations
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/subkeeper/subkeeper/internal/config"
	"github.com/subkeeper/subkeeper/migrations"
)

type migrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
}

func main() {
	var (
		command = flag.String("command", "up", "migration command (up, down, status, version, reset, create)")
		name    = flag.String("name", "", "name for new migration (used with create command)")
		dir     = flag.String("dir", "migrations", "directory new migrations are written to (used with create command)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env file", "error", err)
	}

	if err := run(context.Background(), logger, *command, *name, *dir); err != nil {
		logger.Error("migration failed", "command", *command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, command, name, dir string) error {
	if command == "create" {
		if name == "" {
			return errors.New("name is required for create command")
		}
		if err := goose.Create(nil, dir, name, "sql"); err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		logger.Info("created migration", "name", name, "dir", dir)
		return nil
	}

	var cfg migrateConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %s", config.SanitizeError(err, cfg.DatabaseURL))
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database %s: %s", config.RedactURL(cfg.DatabaseURL), config.SanitizeError(err, cfg.DatabaseURL))
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	switch command {
	case "up":
		err = goose.UpContext(ctx, db, ".")
	case "down":
		err = goose.DownContext(ctx, db, ".")
	case "reset":
		err = goose.ResetContext(ctx, db, ".")
	case "status":
		err = goose.StatusContext(ctx, db, ".")
	case "version":
		err = goose.VersionContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}

	logger.Info("migration command finished", "command", command, "database", config.RedactURL(cfg.DatabaseURL))
	return nil
}

// Command pg-migrator applies the embedded schema migrations and exits.
// GOOSE_UP_TO and GOOSE_DOWN_TO pin the target version.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"thirdcoast.systems/scout/internal/application"
	"thirdcoast.systems/scout/internal/config"
	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/logging"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	conf, err := config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	logging.Setup(conf.LogLevel, conf.LogFormat)
	slog.Info("starting schema migration")

	pool, err := application.OpenDBPoolWithRetry(ctx, *conf)
	if err != nil {
		return err
	}
	defer pool.Close()

	dbc, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := dbc.Migrate(ctx); err != nil {
		return err
	}
	slog.Info("schema migration complete", "duration", time.Since(start))
	return nil
}

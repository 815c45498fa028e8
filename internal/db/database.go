package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DatabaseConnection wraps the pool with query, transaction, and migration
// helpers. The store.go methods make it satisfy the domain ports.
type DatabaseConnection struct {
	*pgxpool.Pool
}

const pingAttempts = 15

// NewDatabaseConnection waits for the pool to answer a ping, backing off by
// the golden ratio between attempts.
func NewDatabaseConnection(ctx context.Context, pool *pgxpool.Pool) (*DatabaseConnection, error) {
	var lastErr error
	for attempt := 0; attempt < pingAttempts; attempt++ {
		if lastErr = pool.Ping(ctx); lastErr == nil {
			return &DatabaseConnection{pool}, nil
		}

		wait := time.Duration(float64(attempt)*1.61803398875) * time.Second
		slog.Warn("database ping failed", "attempt", attempt+1, "error", lastErr, "retry_in", wait)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("database unreachable after %d pings: %w", pingAttempts, lastErr)
}

func (db *DatabaseConnection) Close() {
	db.Pool.Close()
}

func (db *DatabaseConnection) Queries(ctx context.Context) *Queries {
	return New(db)
}

// InTx runs fn inside a transaction, committing only when fn succeeds.
func (db *DatabaseConnection) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(New(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

//go:embed sql/migrations/*.sql
var embedMigrations embed.FS

// Migrate applies the embedded migrations. GOOSE_DOWN_TO rolls back to a
// version; GOOSE_UP_TO stops short of the newest one.
func (db *DatabaseConnection) Migrate(ctx context.Context) error {
	migrations, err := fs.Sub(embedMigrations, "sql/migrations")
	if err != nil {
		return err
	}

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	slog.Info("schema version", "current", current, "embedded", len(provider.ListSources()))

	var results []*goose.MigrationResult
	switch {
	case os.Getenv("GOOSE_DOWN_TO") != "":
		target, err := strconv.ParseInt(os.Getenv("GOOSE_DOWN_TO"), 10, 64)
		if err != nil {
			return fmt.Errorf("parse GOOSE_DOWN_TO: %w", err)
		}
		results, err = provider.DownTo(ctx, target)
		if err != nil {
			return err
		}
	case os.Getenv("GOOSE_UP_TO") != "":
		target, err := strconv.ParseInt(os.Getenv("GOOSE_UP_TO"), 10, 64)
		if err != nil {
			return fmt.Errorf("parse GOOSE_UP_TO: %w", err)
		}
		results, err = provider.UpTo(ctx, target)
		if err != nil {
			return err
		}
	default:
		results, err = provider.Up(ctx)
		if err != nil {
			return err
		}
	}

	for _, r := range results {
		slog.Info("migration applied",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"direction", r.Direction,
			"duration", r.Duration)
	}
	return nil
}

// Package commands implements the scoutctl subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"thirdcoast.systems/scout/internal/application"
	"thirdcoast.systems/scout/internal/config"
	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/logging"
)

// AppContext holds the config, database, and shared components a command needs.
type AppContext struct {
	Config *config.Config
	DB     *db.DatabaseConnection
	Comps  *application.Components
}

func NewAppContext(ctx context.Context, cmd *cli.Command) (*AppContext, error) {
	if env := cmd.String("env"); env != "" {
		os.Setenv("ENV_FILE", env)
	}
	conf, err := config.LoadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := conf.LogLevel
	if !cmd.Bool("verbose") {
		level = "warn"
	}
	logging.Setup(level, "text")

	pool, err := application.OpenDBPoolWithRetry(ctx, *conf)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	dbc, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("database connection: %w", err)
	}
	comps, err := application.NewComponents(*conf, dbc)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &AppContext{Config: conf, DB: dbc, Comps: comps}, nil
}

func (a *AppContext) Close() {
	a.DB.Close()
}

func out(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// TenantLookup is the subset of queries resolveTenant needs.
type TenantLookup interface {
	GetTenant(ctx context.Context, id string) (*db.Tenant, error)
	GetTenantByName(ctx context.Context, name string) (*db.Tenant, error)
}

// resolveTenant accepts a tenant id or name.
func resolveTenant(ctx context.Context, q TenantLookup, ref string) (*db.Tenant, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("tenant is required")
	}
	var (
		t   *db.Tenant
		err error
	)
	if _, perr := uuid.Parse(ref); perr == nil {
		t, err = q.GetTenant(ctx, ref)
	} else {
		t, err = q.GetTenantByName(ctx, ref)
	}
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("tenant %q not found", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("look up tenant %q: %w", ref, err)
	}
	return t, nil
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.Args().First())
	if v == "" {
		return "", fmt.Errorf("%s argument is required", name)
	}
	return v, nil
}

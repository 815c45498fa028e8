package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/platform"
)

func TenantAddAction(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	platforms, err := parsePlatforms(cmd.StringSlice("require-credential"))
	if err != nil {
		return err
	}

	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	t, err := app.DB.Queries(ctx).CreateTenant(ctx, name, platforms)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("tenant %q already exists", name)
	}
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	fmt.Fprintf(out(cmd), "Created tenant %s (%s)\n", t.Name, t.ID)
	return nil
}

func TenantListAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	tenants, err := app.DB.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	fmt.Fprint(out(cmd), tenantTable(tenants))
	return nil
}

func TenantRequireCredentialAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	q := app.DB.Queries(ctx)
	t, err := resolveTenant(ctx, q, cmd.String("tenant"))
	if err != nil {
		return err
	}
	platforms, err := parsePlatforms(cmd.StringSlice("platform"))
	if err != nil {
		return err
	}
	if err := q.SetTenantCredentialPlatforms(ctx, t.ID, platforms); err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	fmt.Fprintf(out(cmd), "Tenant %s now requires credentials for: %s\n", t.Name, joinOrNone(platforms))
	return nil
}

func parsePlatforms(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			p, err := platform.Parse(part)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[p.String()]; dup {
				continue
			}
			seen[p.String()] = struct{}{}
			out = append(out, p.String())
		}
	}
	return out, nil
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func tenantTable(tenants []*db.Tenant) string {
	rows := make([][]string, 0, len(tenants))
	for _, t := range tenants {
		created := t.CreatedAt
		rows = append(rows, []string{t.ID, t.Name, joinOrNone(t.CredentialPlatforms), ago(&created)})
	}
	return renderTable([]string{"ID", "Name", "Credentials", "Created"}, rows, nil)
}

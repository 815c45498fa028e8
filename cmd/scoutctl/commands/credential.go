package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"thirdcoast.systems/scout/internal/credentials"
	"thirdcoast.systems/scout/internal/platform"
)

// CredentialSetAction seals a cookies.txt file for a tenant and platform.
// "-" reads the file from stdin.
func CredentialSetAction(ctx context.Context, cmd *cli.Command) error {
	p, err := platform.Parse(cmd.String("platform"))
	if err != nil {
		return err
	}
	cookies, err := readCookies(cmd.String("file"), cmd.Root().Reader)
	if err != nil {
		return err
	}

	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	t, err := resolveTenant(ctx, app.DB.Queries(ctx), cmd.String("tenant"))
	if err != nil {
		return err
	}
	if err := app.Comps.Vault.Put(ctx, t.ID, p.String(), credentials.Credential{Cookies: cookies}); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	fmt.Fprintf(out(cmd), "Stored %s credential for %s\n", p, t.Name)
	return nil
}

func readCookies(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read cookies: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("cookies file %q is empty", path)
	}
	return string(data), nil
}

// Command scoutctl administers tenants, jobs, graphs, and suggestions
// against the scheduler's database.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"thirdcoast.systems/scout/cmd/scoutctl/commands"
)

func tenantFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "tenant",
		Aliases:  []string{"t"},
		Usage:    "tenant id or name",
		Required: required,
	}
}

func platformFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "platform",
		Aliases: []string{"p"},
		Usage:   "youtube, tiktok, or instagram",
		Value:   value,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "scoutctl",
		Usage: "manage channel scraping, topic graphs, and channel suggestions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file path",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log at the configured level instead of warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "tenant",
				Usage: "tenant management",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "create a tenant",
						ArgsUsage: "<name>",
						Flags: []cli.Flag{
							&cli.StringSliceFlag{
								Name:  "require-credential",
								Usage: "platforms whose jobs need a stored credential",
							},
						},
						Action: commands.TenantAddAction,
					},
					{
						Name:   "list",
						Usage:  "list tenants",
						Action: commands.TenantListAction,
					},
					{
						Name:  "require-credential",
						Usage: "replace the platforms that need a stored credential",
						Flags: []cli.Flag{
							tenantFlag(true),
							&cli.StringSliceFlag{Name: "platform", Usage: "platform list; empty clears"},
						},
						Action: commands.TenantRequireCredentialAction,
					},
				},
			},
			{
				Name:  "channel",
				Usage: "tracked channels",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list a tenant's channels",
						Flags:  []cli.Flag{tenantFlag(true)},
						Action: commands.ChannelListAction,
					},
				},
			},
			{
				Name:  "job",
				Usage: "scrape jobs",
				Commands: []*cli.Command{
					{
						Name:  "enqueue",
						Usage: "queue a scrape job",
						Flags: []cli.Flag{
							tenantFlag(true),
							platformFlag("youtube"),
							&cli.StringFlag{Name: "handle", Usage: "channel handle or profile URL", Required: true},
							&cli.IntFlag{Name: "days", Usage: "lookback window; 0 uses the configured default"},
							&cli.BoolFlag{Name: "initial", Usage: "first scrape of the channel"},
						},
						Action: commands.JobEnqueueAction,
					},
					{
						Name:  "list",
						Usage: "list recent jobs",
						Flags: []cli.Flag{
							tenantFlag(false),
							&cli.IntFlag{Name: "limit", Value: 20},
							&cli.BoolFlag{Name: "orphaned", Usage: "pending or running jobs across all tenants"},
						},
						Action: commands.JobListAction,
					},
					{
						Name:      "show",
						Usage:     "show one job",
						ArgsUsage: "<job id>",
						Action:    commands.JobShowAction,
					},
				},
			},
			{
				Name:  "item",
				Usage: "content items",
				Commands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "show an item with its topics",
						ArgsUsage: "<item id>",
						Action:    commands.ItemShowAction,
					},
				},
			},
			{
				Name:  "graph",
				Usage: "topic engagement graphs",
				Commands: []*cli.Command{
					{
						Name:   "rebuild",
						Usage:  "rebuild one tenant's graph, or all",
						Flags:  []cli.Flag{tenantFlag(false)},
						Action: commands.GraphRebuildAction,
					},
					{
						Name:  "show",
						Usage: "show the top topics",
						Flags: []cli.Flag{
							tenantFlag(true),
							&cli.IntFlag{Name: "limit", Value: 15},
							&cli.BoolFlag{Name: "report", Usage: "print the markdown report"},
						},
						Action: commands.GraphShowAction,
					},
				},
			},
			{
				Name:  "suggest",
				Usage: "channel suggestions",
				Commands: []*cli.Command{
					{
						Name:  "run",
						Usage: "search for channels around the top topics",
						Flags: []cli.Flag{
							tenantFlag(true),
							platformFlag("youtube"),
							&cli.BoolFlag{Name: "rebuild", Usage: "rebuild the graph first"},
						},
						Action: commands.SuggestRunAction,
					},
					{
						Name:  "list",
						Usage: "list suggestions",
						Flags: []cli.Flag{
							tenantFlag(true),
							&cli.StringFlag{Name: "status", Usage: "pending, accepted, or dismissed"},
						},
						Action: commands.SuggestListAction,
					},
					{
						Name:      "accept",
						Usage:     "track the channel and queue its initial scrape",
						ArgsUsage: "<suggestion id>",
						Action:    commands.SuggestAcceptAction,
					},
					{
						Name:      "dismiss",
						Usage:     "dismiss a suggestion",
						ArgsUsage: "<suggestion id>",
						Action:    commands.SuggestDismissAction,
					},
				},
			},
			{
				Name:  "credential",
				Usage: "sealed platform credentials",
				Commands: []*cli.Command{
					{
						Name:  "set",
						Usage: "store a cookies.txt for a tenant",
						Flags: []cli.Flag{
							tenantFlag(true),
							platformFlag(""),
							&cli.StringFlag{Name: "file", Usage: "cookies.txt path, - for stdin", Required: true},
						},
						Action: commands.CredentialSetAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

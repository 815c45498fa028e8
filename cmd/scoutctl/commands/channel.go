package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/pkg/utils/format"
)

func ChannelListAction(ctx context.Context, cmd *cli.Command) error {
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
	channels, err := q.ListChannels(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	fmt.Fprint(out(cmd), channelTable(channels))
	return nil
}

func channelTable(channels []*db.Channel) string {
	rows := make([][]string, 0, len(channels))
	for _, c := range channels {
		active := "yes"
		if !c.IsActive {
			active = "no"
		}
		updated := c.UpdatedAt
		rows = append(rows, []string{c.Platform, c.Handle, format.Truncate(c.Title, 40), countOrDash(c.FollowerCount), active, ago(&updated)})
	}
	return renderTable(
		[]string{"Platform", "Handle", "Title", "Followers", "Active", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

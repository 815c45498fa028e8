package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/topicgraph"
)

// GraphRebuildAction rebuilds one tenant's graph, or every tenant's when
// --tenant is omitted.
func GraphRebuildAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	var targets []*db.Tenant
	if ref := cmd.String("tenant"); ref != "" {
		t, err := resolveTenant(ctx, app.DB.Queries(ctx), ref)
		if err != nil {
			return err
		}
		targets = []*db.Tenant{t}
	} else {
		targets, err = app.DB.ListTenants(ctx)
		if err != nil {
			return fmt.Errorf("list tenants: %w", err)
		}
	}

	w := out(cmd)
	for _, t := range targets {
		g, err := app.Comps.Graphs.Rebuild(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("rebuild %s: %w", t.Name, err)
		}
		fmt.Fprintf(w, "%s: %d items, %d topics, %d edges\n", t.Name, g.ItemCount, len(g.Topics), len(g.Edges))
	}
	return nil
}

func GraphShowAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	t, err := resolveTenant(ctx, app.DB.Queries(ctx), cmd.String("tenant"))
	if err != nil {
		return err
	}
	g, builtAt, err := app.DB.LoadTopicGraph(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	if g == nil {
		return fmt.Errorf("no graph built yet for %s; run `scoutctl graph rebuild --tenant %s`", t.Name, t.Name)
	}

	limit := int(cmd.Int("limit"))
	if cmd.Bool("report") {
		fmt.Fprint(out(cmd), topicgraph.Report(g, builtAt, limit))
		return nil
	}
	fmt.Fprint(out(cmd), topicTable(g, limit))
	return nil
}

func topicTable(g *topicgraph.Graph, limit int) string {
	top := topicgraph.ByMultiplier{}.Select(g, limit)
	rows := make([][]string, 0, len(top))
	for _, n := range top {
		related := make([]string, 0, 3)
		for _, e := range g.Outgoing(n.Index) {
			if len(related) == 3 {
				break
			}
			related = append(related, g.Topics[e.Target].Name)
		}
		rows = append(rows, []string{
			n.Name,
			strconv.Itoa(n.ItemCount),
			fmt.Sprintf("%.2f", n.Multiplier),
			joinOrNone(related),
		})
	}
	return renderTable(
		[]string{"Topic", "Items", "Multiplier", "Related"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	)
}

package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/pkg/utils/format"
)

// SuggestRunAction runs one suggestion pass against the stored graph,
// building it first when the tenant has none.
func SuggestRunAction(ctx context.Context, cmd *cli.Command) error {
	p, err := platform.Parse(cmd.String("platform"))
	if err != nil {
		return err
	}
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Comps.Suggest == nil {
		return errors.New("suggestions are disabled: OPENAI_API_KEY is not set")
	}
	t, err := resolveTenant(ctx, app.DB.Queries(ctx), cmd.String("tenant"))
	if err != nil {
		return err
	}

	g, _, err := app.DB.LoadTopicGraph(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	if g == nil || cmd.Bool("rebuild") {
		if g, err = app.Comps.Graphs.Rebuild(ctx, t.ID); err != nil {
			return err
		}
	}

	rep, err := app.Comps.Suggest.Run(ctx, t.ID, p, g)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "Topics: %d selected, %d already searched\nQueries: %d\nCandidates: %d\nNew suggestions: %d\n",
		rep.TopicsSelected, rep.TopicsSkipped, rep.Queries, rep.Candidates, rep.Created)
	return nil
}

func SuggestListAction(ctx context.Context, cmd *cli.Command) error {
	status := db.SuggestionStatus(cmd.String("status"))
	switch status {
	case "", db.SuggestionPending, db.SuggestionAccepted, db.SuggestionDismissed:
	default:
		return fmt.Errorf("unknown status %q", status)
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
	list, err := app.DB.ListSuggestions(ctx, t.ID, status)
	if err != nil {
		return fmt.Errorf("list suggestions: %w", err)
	}
	fmt.Fprint(out(cmd), suggestionTable(list))
	return nil
}

func SuggestAcceptAction(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "suggestion id")
	if err != nil {
		return err
	}
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	sug, job, err := app.DB.AcceptSuggestion(ctx, id, int32(app.Config.InitialLookbackDays))
	if err != nil {
		return err
	}
	w := out(cmd)
	fmt.Fprintf(w, "Now tracking %s/%s\n", sug.Platform, sug.Handle)
	if job != nil {
		fmt.Fprintf(w, "Queued initial scrape %s (%d days)\n", job.ID, job.LookbackDays)
	} else {
		fmt.Fprintln(w, "A scrape for this channel is already pending")
	}
	return nil
}

func SuggestDismissAction(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "suggestion id")
	if err != nil {
		return err
	}
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	sug, err := app.DB.DismissSuggestion(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "Dismissed %s/%s\n", sug.Platform, sug.Handle)
	return nil
}

func suggestionTable(list []*db.ChannelSuggestion) string {
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		created := s.CreatedAt
		rows = append(rows, []string{
			s.ID, s.Platform + "/" + s.Handle, format.Truncate(s.Title, 40), countOrDash(s.FollowerCount),
			s.TopicName, string(s.Status), ago(&created),
		})
	}
	return renderTable(
		[]string{"ID", "Channel", "Title", "Followers", "Topic", "Status", "Found"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	)
}

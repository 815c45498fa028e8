package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/pkg/utils/format"
)

func ItemShowAction(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "item id")
	if err != nil {
		return err
	}
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	q := app.DB.Queries(ctx)
	it, err := q.GetContentItem(ctx, id)
	if db.IsNoRows(err) {
		return fmt.Errorf("item %q not found", id)
	}
	if err != nil {
		return err
	}
	author, err := q.ListItemTopics(ctx, id, db.TopicSourceAuthor)
	if err != nil {
		return fmt.Errorf("author topics: %w", err)
	}
	ai, err := q.ListItemTopics(ctx, id, db.TopicSourceAI)
	if err != nil {
		return fmt.Errorf("ai topics: %w", err)
	}
	fmt.Fprint(out(cmd), itemDetail(it, author, ai))
	return nil
}

func itemDetail(it *db.ContentItem, author, ai []string) string {
	transcript := "-"
	if it.Transcription != nil {
		transcript = humanize.Comma(int64(len(strings.Fields(*it.Transcription)))) + " words"
	}
	synced := it.LastSyncedAt
	rows := [][]string{
		{"ID", it.ID},
		{"Title", it.Title},
		{"URL", it.URL},
		{"Published", ago(it.PublishedAt)},
		{"Views", humanize.Comma(it.Views)},
		{"Likes", humanize.Comma(it.Likes)},
		{"Comments", humanize.Comma(it.Comments)},
		{"Duration", format.DurationPtr(it.DurationSeconds)},
		{"Transcription", string(it.TranscriptionStatus)},
		{"Transcript", transcript},
		{"Author topics", joinOrNone(author)},
		{"AI topics", joinOrNone(ai)},
		{"Last synced", ago(&synced)},
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

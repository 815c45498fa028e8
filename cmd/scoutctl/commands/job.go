package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/jobs"
)

func JobEnqueueAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	t, err := resolveTenant(ctx, app.DB.Queries(ctx), cmd.String("tenant"))
	if err != nil {
		return err
	}
	job, err := jobs.Submit(ctx, app.DB, jobs.SubmitRequest{
		TenantID:     t.ID,
		Platform:     cmd.String("platform"),
		Handle:       cmd.String("handle"),
		LookbackDays: int(cmd.Int("days")),
		Initial:      cmd.Bool("initial"),
	}, app.Config.DefaultLookbackDays, app.Config.InitialLookbackDays)
	if errors.Is(err, db.ErrDuplicatePendingJob) {
		return fmt.Errorf("a job for %s/%s is already pending", cmd.String("platform"), cmd.String("handle"))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "Queued job %s: %s/%s, %d days\n", job.ID, job.Platform, job.Handle, job.LookbackDays)
	return nil
}

func JobListAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	q := app.DB.Queries(ctx)
	var list []*db.ScrapeJob
	if cmd.Bool("orphaned") {
		var now time.Time
		if now, err = q.Now(ctx); err == nil {
			list, err = q.ListOrphanedJobs(ctx, now)
		}
	} else {
		var t *db.Tenant
		t, err = resolveTenant(ctx, q, cmd.String("tenant"))
		if err != nil {
			return err
		}
		list, err = q.ListScrapeJobs(ctx, t.ID, int32(cmd.Int("limit")))
	}
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	fmt.Fprint(out(cmd), jobTable(list))
	return nil
}

func JobShowAction(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "job id")
	if err != nil {
		return err
	}
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	job, err := app.DB.GetScrapeJob(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprint(out(cmd), jobDetail(job))
	return nil
}

func jobTable(list []*db.ScrapeJob) string {
	rows := make([][]string, 0, len(list))
	for _, j := range list {
		created := j.CreatedAt
		rows = append(rows, []string{
			j.ID,
			j.Platform + "/" + j.Handle,
			string(j.Status),
			strconv.Itoa(int(j.Counters.Found)),
			strconv.Itoa(int(j.Counters.New)),
			strconv.Itoa(int(j.Counters.Updated)),
			ago(&created),
		})
	}
	return renderTable(
		[]string{"ID", "Channel", "Status", "Found", "New", "Updated", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

func jobDetail(j *db.ScrapeJob) string {
	kind := "incremental"
	if j.IsInitialScrape {
		kind = "initial"
	}
	created := j.CreatedAt
	rows := [][]string{
		{"ID", j.ID},
		{"Tenant", j.TenantID},
		{"Channel", j.Platform + "/" + j.Handle},
		{"Title", deref(j.ChannelTitle)},
		{"Kind", kind},
		{"Lookback", fmt.Sprintf("%d days", j.LookbackDays)},
		{"Status", string(j.Status)},
		{"Found", strconv.Itoa(int(j.Counters.Found))},
		{"Processed", strconv.Itoa(int(j.Counters.Processed))},
		{"New", strconv.Itoa(int(j.Counters.New))},
		{"Updated", strconv.Itoa(int(j.Counters.Updated))},
		{"Created", ago(&created)},
		{"Started", ago(j.StartedAt)},
		{"Completed", ago(j.CompletedAt)},
	}
	if j.ErrorMessage != nil {
		rows = append(rows, []string{"Error", *j.ErrorMessage})
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

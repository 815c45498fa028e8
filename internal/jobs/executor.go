package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"thirdcoast.systems/scout/internal/credentials"
	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/ingest"
	"thirdcoast.systems/scout/internal/metrics"
	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/pkg/ytdlp"
)

// Store is the job and channel persistence the scheduler needs.
type Store interface {
	ListTenants(ctx context.Context) ([]*db.Tenant, error)
	NextPendingJob(ctx context.Context, tenantID string) (*db.ScrapeJob, error)
	MarkJobRunning(ctx context.Context, id string, at time.Time) error
	MarkJobFinished(ctx context.Context, arg db.MarkJobFinishedParams) error
	FailOrphanedJobs(ctx context.Context, message string, cutoff time.Time) ([]string, error)
	Now(ctx context.Context) (time.Time, error)
	UpsertChannel(ctx context.Context, c db.Channel) (*db.Channel, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, req platform.FetchRequest) (*platform.FetchResult, error)
}

type Ingester interface {
	Ingest(ctx context.Context, b ingest.Batch) (ingest.Result, error)
}

type CredentialSource interface {
	Get(ctx context.Context, tenantID, platform string) (*credentials.Credential, error)
}

// AfterInitialScrape runs once an initial scrape completed successfully.
type AfterInitialScrape func(ctx context.Context, tenantID string, p platform.Platform)

type ExecutorConfig struct {
	DefaultLookback time.Duration
	// ConfigErr, when set, fails every job with this error.
	ConfigErr *ConfigurationError
}

// Executor runs one job from running to a terminal status.
type Executor struct {
	cfg      ExecutorConfig
	store    Store
	fetcher  Fetcher
	ingester Ingester
	creds    CredentialSource
	progress *ProgressMap
	after    AfterInitialScrape
	now      func() time.Time
}

func NewExecutor(cfg ExecutorConfig, store Store, fetcher Fetcher, ingester Ingester, creds CredentialSource, progress *ProgressMap) *Executor {
	if progress == nil {
		progress = NewProgressMap()
	}
	return &Executor{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		ingester: ingester,
		creds:    creds,
		progress: progress,
		now:      time.Now,
	}
}

// OnInitialScrape registers the follow-up for completed initial scrapes.
func (e *Executor) OnInitialScrape(fn AfterInitialScrape) {
	e.after = fn
}

// Execute marks job running, runs it, and records the outcome. The returned
// error is the job's failure, if any; it has already been recorded.
func (e *Executor) Execute(ctx context.Context, tenant *db.Tenant, job *db.ScrapeJob) error {
	start := e.now().UTC()
	if err := e.store.MarkJobRunning(ctx, job.ID, start); err != nil {
		return fmt.Errorf("mark job %s running: %w", job.ID, err)
	}
	metrics.WorkerBusy.Set(1)
	defer metrics.WorkerBusy.Set(0)
	defer e.progress.Clear(job.ID)

	slog.Info("job started",
		"job_id", job.ID,
		"tenant_id", tenant.ID,
		"platform", job.Platform,
		"handle", job.Handle,
		"initial", job.IsInitialScrape)

	result, runErr := e.safeRun(ctx, tenant, job)

	status := db.JobStatusCompleted
	var msg *string
	if runErr != nil {
		status = db.JobStatusFailed
		m := runErr.Error()
		msg = &m
		logJobFailure(job, runErr)
	}

	// The outcome is recorded even when shutdown cancelled the run.
	finishCtx := context.WithoutCancel(ctx)
	if err := e.store.MarkJobFinished(finishCtx, db.MarkJobFinishedParams{
		ID:           job.ID,
		Status:       status,
		Result:       result,
		ErrorMessage: msg,
		At:           e.now().UTC(),
	}); err != nil {
		slog.Error("failed to record job outcome", "job_id", job.ID, "status", status, "error", err)
	}

	metrics.JobsFinished.WithLabelValues(job.Platform, string(status)).Inc()
	metrics.JobDuration.WithLabelValues(job.Platform, metrics.BoolLabel(job.IsInitialScrape)).Observe(time.Since(start).Seconds())
	slog.Info("job finished",
		"job_id", job.ID,
		"status", status,
		"found", result.Counters.Found,
		"new", result.Counters.New,
		"updated", result.Counters.Updated,
		"duration", time.Since(start))

	if runErr == nil && job.IsInitialScrape && e.after != nil && ctx.Err() == nil {
		e.after(ctx, tenant.ID, platform.Platform(job.Platform))
	}
	return runErr
}

func logJobFailure(job *db.ScrapeJob, err error) {
	var (
		cfgErr  *ConfigurationError
		execErr *ytdlp.ExecError
		panicE  *PanicError
	)
	switch {
	case errors.As(err, &cfgErr):
		slog.Error("job misconfigured", "job_id", job.ID, "error", err)
	case errors.As(err, &execErr):
		slog.Error("job failed",
			"job_id", job.ID,
			"error", err,
			"exit_code", execErr.ExitCode,
			"stderr", execErr.Stderr)
	case errors.As(err, &panicE):
		slog.Error("job panicked", "job_id", job.ID, "error", err)
	default:
		slog.Error("job failed", "job_id", job.ID, "error", err)
	}
}

func (e *Executor) safeRun(ctx context.Context, tenant *db.Tenant, job *db.ScrapeJob) (result db.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return e.run(ctx, tenant, job)
}

func (e *Executor) run(ctx context.Context, tenant *db.Tenant, job *db.ScrapeJob) (db.JobResult, error) {
	var result db.JobResult

	if e.cfg.ConfigErr != nil {
		return result, e.cfg.ConfigErr
	}
	p, err := platform.Parse(job.Platform)
	if err != nil {
		return result, &ConfigurationError{Reason: err.Error()}
	}
	cookies, err := e.cookies(ctx, tenant, p)
	if err != nil {
		return result, err
	}

	lookback := time.Duration(job.LookbackDays) * 24 * time.Hour
	if lookback <= 0 {
		lookback = e.cfg.DefaultLookback
	}

	e.progress.Report(job.ID, "fetch", 0, 0)
	fetched, err := e.fetcher.Fetch(ctx, platform.FetchRequest{
		Platform: p,
		Handle:   job.Handle,
		Lookback: lookback,
		Cookies:  cookies,
	})
	if err != nil {
		return result, fmt.Errorf("fetch %s/%s: %w", p, job.Handle, err)
	}
	result.Counters.Found = int32(len(fetched.Items))

	prof := fetched.Profile
	channel, err := e.store.UpsertChannel(ctx, db.Channel{
		TenantID:      tenant.ID,
		Platform:      string(p),
		Handle:        platform.NormalizeHandle(p, job.Handle),
		ExternalID:    prof.ExternalID,
		Title:         prof.Title,
		URL:           prof.URL,
		AvatarURL:     prof.AvatarURL,
		Description:   prof.Description,
		FollowerCount: prof.FollowerCount,
		IsActive:      true,
	})
	if err != nil {
		return result, fmt.Errorf("persist channel: %w", err)
	}
	result.ChannelID = &channel.ID
	title := channel.Title
	result.ChannelTitle = &title

	res, err := e.ingester.Ingest(ctx, ingest.Batch{
		JobID:     job.ID,
		ChannelID: channel.ID,
		Platform:  p,
		Items:     fetched.Items,
		Cookies:   cookies,
	})
	result.Counters.New = int32(res.New)
	result.Counters.Updated = int32(res.Updated)
	result.Counters.Processed = int32(res.New + res.Updated + res.Failed)
	if err != nil {
		return result, fmt.Errorf("ingest: %w", err)
	}
	return result, nil
}

// cookies resolves the tenant's platform credential. A missing credential is
// an error only when the tenant requires one for the platform.
func (e *Executor) cookies(ctx context.Context, tenant *db.Tenant, p platform.Platform) (string, error) {
	required := tenant.RequiresCredential(string(p))
	if e.creds == nil {
		if required {
			return "", &ConfigurationError{Reason: fmt.Sprintf("tenant %s requires a %s credential but no credential key is configured", tenant.Name, p)}
		}
		return "", nil
	}
	cred, err := e.creds.Get(ctx, tenant.ID, string(p))
	switch {
	case errors.Is(err, credentials.ErrNotFound):
		if required {
			return "", &ConfigurationError{Reason: fmt.Sprintf("tenant %s has no %s credential", tenant.Name, p)}
		}
		return "", nil
	case err != nil:
		return "", fmt.Errorf("load %s credential: %w", p, err)
	}
	return cred.Cookies, nil
}

package db

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicatePendingJob is returned when a pending job already exists
	// for the same tenant, platform, and handle.
	ErrDuplicatePendingJob = errors.New("a pending job already exists for this channel")

	// ErrInvalidTransition is returned when a status update does not match
	// the job's current status.
	ErrInvalidTransition = errors.New("invalid job status transition")
)

const scrapeJobColumns = `id::text, tenant_id::text, platform, handle, status, lookback_days, is_initial,
	items_found, items_processed, items_new, items_updated,
	channel_id::text, channel_title, error_message, created_at, started_at, completed_at`

func scanScrapeJob(row rowScanner) (*ScrapeJob, error) {
	var j ScrapeJob
	err := row.Scan(
		&j.ID, &j.TenantID, &j.Platform, &j.Handle, &j.Status, &j.LookbackDays, &j.IsInitialScrape,
		&j.Counters.Found, &j.Counters.Processed, &j.Counters.New, &j.Counters.Updated,
		&j.ChannelID, &j.ChannelTitle, &j.ErrorMessage, &j.CreatedAt, &j.StartedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func collectScrapeJobs(q *Queries, ctx context.Context, sql string, args ...any) ([]*ScrapeJob, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ScrapeJob
	for rows.Next() {
		j, err := scanScrapeJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, j)
	}
	return items, rows.Err()
}

type EnqueueScrapeJobParams struct {
	TenantID     string
	Platform     string
	Handle       string
	LookbackDays int32
	IsInitial    bool
}

const enqueueScrapeJob = `-- name: EnqueueScrapeJob :one
INSERT INTO scrape_jobs (tenant_id, platform, handle, lookback_days, is_initial)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + scrapeJobColumns

func (q *Queries) EnqueueScrapeJob(ctx context.Context, arg EnqueueScrapeJobParams) (*ScrapeJob, error) {
	j, err := scanScrapeJob(q.db.QueryRow(ctx, enqueueScrapeJob,
		arg.TenantID, arg.Platform, arg.Handle, arg.LookbackDays, arg.IsInitial))
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicatePendingJob
		}
		return nil, err
	}
	return j, nil
}

const getScrapeJob = `-- name: GetScrapeJob :one
SELECT ` + scrapeJobColumns + ` FROM scrape_jobs WHERE id = $1`

func (q *Queries) GetScrapeJob(ctx context.Context, id string) (*ScrapeJob, error) {
	return scanScrapeJob(q.db.QueryRow(ctx, getScrapeJob, id))
}

const listScrapeJobs = `-- name: ListScrapeJobs :many
SELECT ` + scrapeJobColumns + ` FROM scrape_jobs
WHERE ($1::text = '' OR tenant_id::text = $1)
ORDER BY created_at DESC, id
LIMIT $2`

// ListScrapeJobs returns the newest jobs first. An empty tenantID lists all tenants.
func (q *Queries) ListScrapeJobs(ctx context.Context, tenantID string, limit int32) ([]*ScrapeJob, error) {
	return collectScrapeJobs(q, ctx, listScrapeJobs, tenantID, limit)
}

const nextPendingJob = `-- name: NextPendingJob :one
SELECT ` + scrapeJobColumns + ` FROM scrape_jobs
WHERE tenant_id = $1 AND status = 'pending'
ORDER BY created_at, id
LIMIT 1`

func (q *Queries) NextPendingJob(ctx context.Context, tenantID string) (*ScrapeJob, error) {
	return scanScrapeJob(q.db.QueryRow(ctx, nextPendingJob, tenantID))
}

const markJobRunning = `-- name: MarkJobRunning :execrows
UPDATE scrape_jobs
SET status = 'running', started_at = $2
WHERE id = $1 AND status = 'pending'`

func (q *Queries) MarkJobRunning(ctx context.Context, id string, at time.Time) error {
	tag, err := q.db.Exec(ctx, markJobRunning, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

type MarkJobFinishedParams struct {
	ID           string
	Status       JobStatus
	Result       JobResult
	ErrorMessage *string
	At           time.Time
}

const markJobFinished = `-- name: MarkJobFinished :execrows
UPDATE scrape_jobs
SET status = $2,
    items_found = $3,
    items_processed = $4,
    items_new = $5,
    items_updated = $6,
    channel_id = COALESCE($7::uuid, channel_id),
    channel_title = COALESCE($8, channel_title),
    error_message = $9,
    completed_at = $10
WHERE id = $1 AND status = 'running'`

func (q *Queries) MarkJobFinished(ctx context.Context, arg MarkJobFinishedParams) error {
	if arg.Status != JobStatusCompleted && arg.Status != JobStatusFailed {
		return ErrInvalidTransition
	}
	c := arg.Result.Counters
	tag, err := q.db.Exec(ctx, markJobFinished,
		arg.ID, arg.Status, c.Found, c.Processed, c.New, c.Updated,
		arg.Result.ChannelID, arg.Result.ChannelTitle, arg.ErrorMessage, arg.At)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

const dbNow = `-- name: Now :one
SELECT now()`

func (q *Queries) Now(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := q.db.QueryRow(ctx, dbNow).Scan(&t)
	return t, err
}

const listOrphanedJobs = `-- name: ListOrphanedJobs :many
SELECT ` + scrapeJobColumns + ` FROM scrape_jobs
WHERE status IN ('pending', 'running') AND created_at < $1
ORDER BY created_at, id`

// ListOrphanedJobs returns unfinished jobs created before cutoff.
func (q *Queries) ListOrphanedJobs(ctx context.Context, cutoff time.Time) ([]*ScrapeJob, error) {
	return collectScrapeJobs(q, ctx, listOrphanedJobs, cutoff)
}

const failOrphanedJobs = `-- name: FailOrphanedJobs :many
UPDATE scrape_jobs
SET status = 'failed', error_message = $1, completed_at = now()
WHERE status IN ('pending', 'running') AND created_at < $2
RETURNING id::text`

// FailOrphanedJobs fails unfinished jobs created before cutoff, which must be
// on the database clock.
func (q *Queries) FailOrphanedJobs(ctx context.Context, message string, cutoff time.Time) ([]string, error) {
	rows, err := q.db.Query(ctx, failOrphanedJobs, message, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const enqueueScrapeJobIfAbsent = `-- name: EnqueueScrapeJobIfAbsent :one
INSERT INTO scrape_jobs (tenant_id, platform, handle, lookback_days, is_initial)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tenant_id, platform, handle) WHERE status = 'pending' DO NOTHING
RETURNING ` + scrapeJobColumns

// EnqueueScrapeJobIfAbsent is safe inside a transaction: it returns
// pgx.ErrNoRows instead of a unique violation when a pending job exists.
func (q *Queries) EnqueueScrapeJobIfAbsent(ctx context.Context, arg EnqueueScrapeJobParams) (*ScrapeJob, error) {
	return scanScrapeJob(q.db.QueryRow(ctx, enqueueScrapeJobIfAbsent,
		arg.TenantID, arg.Platform, arg.Handle, arg.LookbackDays, arg.IsInitial))
}

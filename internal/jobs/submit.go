package jobs

import (
	"context"
	"errors"
	"fmt"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/platform"
)

type Enqueuer interface {
	EnqueueScrapeJob(ctx context.Context, arg db.EnqueueScrapeJobParams) (*db.ScrapeJob, error)
}

type SubmitRequest struct {
	TenantID     string `json:"tenantId" validate:"required,uuid"`
	Platform     string `json:"platform" validate:"required,oneof=youtube tiktok instagram"`
	Handle       string `json:"handle" validate:"required,max=200"`
	LookbackDays int    `json:"lookbackDays" validate:"gte=0,lte=3650"`
	Initial      bool   `json:"initial"`
}

// Submit validates and enqueues a scrape job. A zero lookback takes the
// default for the job kind.
func Submit(ctx context.Context, q Enqueuer, req SubmitRequest, defaultDays, initialDays int) (*db.ScrapeJob, error) {
	p, err := platform.Parse(req.Platform)
	if err != nil {
		return nil, err
	}
	handle := platform.NormalizeHandle(p, req.Handle)
	if handle == "" {
		return nil, errors.New("handle is empty")
	}
	days := req.LookbackDays
	if days <= 0 {
		days = defaultDays
		if req.Initial {
			days = initialDays
		}
	}
	job, err := q.EnqueueScrapeJob(ctx, db.EnqueueScrapeJobParams{
		TenantID:     req.TenantID,
		Platform:     string(p),
		Handle:       handle,
		LookbackDays: int32(days),
		IsInitial:    req.Initial,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s/%s: %w", p, handle, err)
	}
	return job, nil
}

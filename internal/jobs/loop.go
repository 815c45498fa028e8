package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"thirdcoast.systems/scout/internal/metrics"
)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Status is the loop's single slot: idle, or running exactly one job.
type Status struct {
	State State  `json:"state"`
	JobID string `json:"job_id,omitempty"`
}

type LoopConfig struct {
	PollInterval time.Duration
	FailureDelay time.Duration
}

// Loop pulls pending jobs one at a time across all tenants. It implements
// suture.Service.
type Loop struct {
	cfg       LoopConfig
	store     Store
	exec      *Executor
	wake      <-chan struct{}
	// startedAt keeps its monotonic reading; see Recover.
	startedAt time.Time

	mu        sync.RWMutex
	status    Status
	recovered bool
}

func NewLoop(cfg LoopConfig, store Store, exec *Executor) *Loop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.FailureDelay < 0 {
		cfg.FailureDelay = 0
	}
	return &Loop{
		cfg:       cfg,
		store:     store,
		exec:      exec,
		startedAt: time.Now(),
		status:    Status{State: StateIdle},
	}
}

// WithWake makes the idle wait also return on a signal from ch. Polling
// remains authoritative.
func (l *Loop) WithWake(ch <-chan struct{}) *Loop {
	l.wake = ch
	return l
}

func (l *Loop) String() string { return "scrape-job-loop" }

// Status returns a snapshot of the worker slot.
func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

func (l *Loop) setStatus(s Status) {
	l.mu.Lock()
	l.status = s
	l.mu.Unlock()
}

// Recover fails every job left pending or running by a previous process.
// It runs once per Loop; supervisor restarts do not repeat it.
//
// The cutoff is this process's start expressed on the database clock, so
// jobs submitted since startup survive regardless of skew with the host.
func (l *Loop) Recover(ctx context.Context) error {
	l.mu.Lock()
	done := l.recovered
	l.mu.Unlock()
	if done {
		return nil
	}
	dbNow, err := l.store.Now(ctx)
	if err != nil {
		return fmt.Errorf("read database clock: %w", err)
	}
	cutoff := dbNow.Add(-time.Since(l.startedAt))
	ids, err := l.store.FailOrphanedJobs(ctx, InterruptedMessage, cutoff)
	if err != nil {
		return fmt.Errorf("recover orphaned jobs: %w", err)
	}
	if len(ids) > 0 {
		metrics.JobsRecovered.Add(float64(len(ids)))
		slog.Warn("failed orphaned jobs", "count", len(ids), "job_ids", ids)
	}
	l.mu.Lock()
	l.recovered = true
	l.mu.Unlock()
	return nil
}

// TryRunNext runs the oldest pending job of the first tenant that has one.
// It reports whether a job ran; a job failure is not returned as an error.
func (l *Loop) TryRunNext(ctx context.Context) (bool, error) {
	tenants, err := l.store.ListTenants(ctx)
	if err != nil {
		return false, fmt.Errorf("list tenants: %w", err)
	}
	for _, t := range tenants {
		job, err := l.store.NextPendingJob(ctx, t.ID)
		if err != nil {
			return false, fmt.Errorf("next pending job for tenant %s: %w", t.ID, err)
		}
		if job == nil {
			continue
		}

		l.setStatus(Status{State: StateRunning, JobID: job.ID})
		jobErr := l.exec.Execute(ctx, t, job)
		l.setStatus(Status{State: StateIdle})

		if jobErr != nil && l.cfg.FailureDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(l.cfg.FailureDelay):
			}
		}
		return true, nil
	}
	return false, nil
}

func (l *Loop) Serve(ctx context.Context) error {
	if err := l.Recover(ctx); err != nil {
		return err
	}
	slog.Info("scrape job loop started", "poll_interval", l.cfg.PollInterval)

	for {
		ran, err := l.TryRunNext(ctx)
		if err != nil {
			slog.Error("scan for pending jobs failed", "error", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ran {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-time.After(l.cfg.PollInterval):
		}
	}
}

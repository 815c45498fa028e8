package topicgraph

import (
	"context"
	"log/slog"
	"time"
)

// TenantLister enumerates tenants in their fixed scan order.
type TenantLister interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
}

// Refresher periodically rebuilds every tenant's graph. It implements
// suture.Service.
type Refresher struct {
	svc      *Service
	tenants  TenantLister
	interval time.Duration
}

func NewRefresher(svc *Service, tenants TenantLister, interval time.Duration) *Refresher {
	return &Refresher{svc: svc, tenants: tenants, interval: interval}
}

func (r *Refresher) String() string { return "topic-graph-refresher" }

func (r *Refresher) Serve(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		r.RefreshAll(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// RefreshAll rebuilds every tenant; one tenant's failure does not stop the rest.
func (r *Refresher) RefreshAll(ctx context.Context) {
	ids, err := r.tenants.ListTenantIDs(ctx)
	if err != nil {
		slog.Error("list tenants for graph refresh", "error", err)
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.svc.Rebuild(ctx, id); err != nil {
			slog.Warn("graph refresh failed", "tenant_id", id, "error", err)
		}
	}
}

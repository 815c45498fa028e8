package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/metrics"
	"thirdcoast.systems/scout/internal/platform"
)

// Batch is one channel's fetched items.
type Batch struct {
	JobID     string
	ChannelID string
	Platform  platform.Platform
	Items     []platform.Item
	// Cookies is passed through to media downloads.
	Cookies string
}

type Orchestrator struct {
	store    Store
	pipeline *Pipeline
	progress Progress
	now      func() time.Time
}

func NewOrchestrator(store Store, pipeline *Pipeline, progress Progress) *Orchestrator {
	if progress == nil {
		progress = noProgress{}
	}
	return &Orchestrator{store: store, pipeline: pipeline, progress: progress, now: time.Now}
}

// Dedupe collapses repeated ids. The last occurrence's data wins; the
// position of the first occurrence is kept.
func Dedupe(items []platform.Item) []platform.Item {
	out := make([]platform.Item, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if i, ok := index[it.ID]; ok {
			out[i] = it
			continue
		}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}

// Partition splits items by membership in existing. Every item lands in
// exactly one of the two slices.
func Partition(items []platform.Item, existing map[string]struct{}) (fresh, known []platform.Item) {
	for _, it := range items {
		if _, ok := existing[it.ID]; ok {
			known = append(known, it)
		} else {
			fresh = append(fresh, it)
		}
	}
	return fresh, known
}

// Ingest routes new items to enrichment and known items to a metrics refresh.
// Per-item enrichment failures are absorbed; store failures on the batch
// paths are returned.
func (o *Orchestrator) Ingest(ctx context.Context, b Batch) (Result, error) {
	var res Result
	items := Dedupe(b.Items)
	if len(items) == 0 {
		return res, nil
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	existing, err := o.store.ExistingItemIDs(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("existing item lookup: %w", err)
	}
	fresh, known := Partition(items, existing)

	slog.Info("ingesting batch",
		"job_id", b.JobID,
		"channel_id", b.ChannelID,
		"items", len(items),
		"new", len(fresh),
		"existing", len(known))

	if err := o.refresh(ctx, b, known); err != nil {
		return res, err
	}
	res.Updated = len(known)

	linked := make([]string, 0, len(fresh))
	for i, it := range fresh {
		o.progress.Report(b.JobID, "enrich", i, len(fresh))
		if err := o.pipeline.Process(ctx, it, b.Cookies); err != nil {
			slog.Error("item not persisted", "job_id", b.JobID, "item_id", it.ID, "error", err)
			res.Failed++
			continue
		}
		linked = append(linked, it.ID)
		res.New++
	}
	o.progress.Report(b.JobID, "enrich", len(fresh), len(fresh))

	if b.ChannelID != "" {
		if err := o.store.LinkChannelItems(ctx, b.ChannelID, linked); err != nil {
			return res, fmt.Errorf("link new items: %w", err)
		}
	}
	metrics.ItemsIngested.WithLabelValues(string(b.Platform), "new").Add(float64(res.New))
	return res, nil
}

// refresh updates only engagement counters and the sync time of known items.
func (o *Orchestrator) refresh(ctx context.Context, b Batch, known []platform.Item) error {
	if len(known) == 0 {
		return nil
	}
	o.progress.Report(b.JobID, "refresh", 0, len(known))

	now := o.now().UTC()
	updates := make([]db.MetricsUpdate, len(known))
	ids := make([]string, len(known))
	for i, it := range known {
		updates[i] = db.MetricsUpdate{
			ID:       it.ID,
			Views:    it.Metrics.Views,
			Likes:    it.Metrics.Likes,
			Comments: it.Metrics.Comments,
			SyncedAt: now,
		}
		ids[i] = it.ID
	}
	if err := o.store.UpdateItemMetrics(ctx, updates); err != nil {
		return fmt.Errorf("refresh metrics: %w", err)
	}
	if b.ChannelID != "" {
		if err := o.store.LinkChannelItems(ctx, b.ChannelID, ids); err != nil {
			return fmt.Errorf("link known items: %w", err)
		}
	}
	metrics.ItemsIngested.WithLabelValues(string(b.Platform), "existing").Add(float64(len(known)))
	o.progress.Report(b.JobID, "refresh", len(known), len(known))
	return nil
}

// Package ingest classifies fetched items as new or already known, runs new
// items through enrichment once, and refreshes metrics for known items.
package ingest

import (
	"context"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/inference"
)

// Store is the content persistence the orchestrator and pipeline need.
type Store interface {
	ExistingItemIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	UpsertContentItem(ctx context.Context, it db.ContentItem) error
	UpdateItemMetrics(ctx context.Context, updates []db.MetricsUpdate) error
	LinkChannelItems(ctx context.Context, channelID string, itemIDs []string) error
	SetItemTopics(ctx context.Context, itemID string, source db.TopicSource, names []string) error
}

// MediaSource downloads item media and display assets.
type MediaSource interface {
	DownloadMedia(ctx context.Context, url, dir, cookies string) (string, error)
	FetchThumbnail(ctx context.Context, url, dir, name string) (string, error)
}

type AudioExtractor interface {
	ExtractAudio(ctx context.Context, mediaPath, dir string) (string, error)
}

type TopicInferrer interface {
	Infer(ctx context.Context, in inference.Input) ([]string, error)
}

// Progress receives coarse progress for a job. Implementations must be safe
// for concurrent readers.
type Progress interface {
	Report(jobID, step string, current, total int)
}

type noProgress struct{}

func (noProgress) Report(string, string, int, int) {}

// Result counts items by route.
type Result struct {
	New     int
	Updated int
	// Failed counts new items that could not be persisted at all.
	Failed int
}

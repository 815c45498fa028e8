package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"thirdcoast.systems/scout/internal/credentials"
	"thirdcoast.systems/scout/internal/topicgraph"
)

// ErrNotFound is returned by the connection-level helpers when a row is absent.
var ErrNotFound = errors.New("not found")

// The methods below adapt the generated-style queries to the interfaces the
// scheduler, ingestion, graph, and suggestion packages consume. "None"
// results are reported as nil values rather than pgx.ErrNoRows.

func (db *DatabaseConnection) ListTenants(ctx context.Context) ([]*Tenant, error) {
	return db.Queries(ctx).ListTenants(ctx)
}

func (db *DatabaseConnection) ListTenantIDs(ctx context.Context) ([]string, error) {
	tenants, err := db.Queries(ctx).ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(tenants))
	for _, t := range tenants {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (db *DatabaseConnection) NextPendingJob(ctx context.Context, tenantID string) (*ScrapeJob, error) {
	j, err := db.Queries(ctx).NextPendingJob(ctx, tenantID)
	if IsNoRows(err) {
		return nil, nil
	}
	return j, err
}

func (db *DatabaseConnection) MarkJobRunning(ctx context.Context, id string, at time.Time) error {
	return db.Queries(ctx).MarkJobRunning(ctx, id, at)
}

func (db *DatabaseConnection) MarkJobFinished(ctx context.Context, arg MarkJobFinishedParams) error {
	return db.Queries(ctx).MarkJobFinished(ctx, arg)
}

func (db *DatabaseConnection) FailOrphanedJobs(ctx context.Context, message string, cutoff time.Time) ([]string, error) {
	return db.Queries(ctx).FailOrphanedJobs(ctx, message, cutoff)
}

// Now reads the database clock, which stamps every created_at.
func (db *DatabaseConnection) Now(ctx context.Context) (time.Time, error) {
	return db.Queries(ctx).Now(ctx)
}

func (db *DatabaseConnection) UpsertChannel(ctx context.Context, c Channel) (*Channel, error) {
	return db.Queries(ctx).UpsertChannel(ctx, c)
}

func (db *DatabaseConnection) ExistingItemIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	if len(ids) == 0 {
		return map[string]struct{}{}, nil
	}
	found, err := db.Queries(ctx).ExistingItemIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return toSet(found), nil
}

func (db *DatabaseConnection) UpsertContentItem(ctx context.Context, it ContentItem) error {
	return db.Queries(ctx).UpsertContentItem(ctx, it)
}

func (db *DatabaseConnection) UpdateItemMetrics(ctx context.Context, updates []MetricsUpdate) error {
	return db.Queries(ctx).UpdateItemMetrics(ctx, updates)
}

func (db *DatabaseConnection) LinkChannelItems(ctx context.Context, channelID string, itemIDs []string) error {
	return db.Queries(ctx).LinkChannelItems(ctx, channelID, itemIDs)
}

// SetItemTopics replaces the item's topic set for one source. Names are
// expected to be normalized already; duplicates keep their first position.
func (db *DatabaseConnection) SetItemTopics(ctx context.Context, itemID string, source TopicSource, names []string) error {
	return db.InTx(ctx, func(q *Queries) error {
		if err := q.DeleteItemTopics(ctx, itemID, source); err != nil {
			return fmt.Errorf("clear %s topics: %w", source, err)
		}
		seen := make(map[string]struct{}, len(names))
		var pos int32
		for _, name := range names {
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			topicID, err := q.EnsureTopic(ctx, name)
			if err != nil {
				return fmt.Errorf("ensure topic %q: %w", name, err)
			}
			if err := q.InsertItemTopic(ctx, itemID, topicID, source, pos); err != nil {
				return fmt.Errorf("associate topic %q: %w", name, err)
			}
			pos++
		}
		return nil
	})
}

func (db *DatabaseConnection) LoadGraphSnapshot(ctx context.Context, tenantID string) (*topicgraph.Snapshot, error) {
	rows, err := db.Queries(ctx).LoadGraphSnapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	snap := &topicgraph.Snapshot{Items: make([]topicgraph.SnapshotItem, 0, len(rows))}
	for _, r := range rows {
		snap.Items = append(snap.Items, topicgraph.SnapshotItem{
			ID:              r.ItemID,
			ChannelID:       r.ChannelID,
			Views:           r.Views,
			Likes:           r.Likes,
			Comments:        r.Comments,
			DurationSeconds: r.DurationSeconds,
			Topics:          r.Topics,
		})
	}
	return snap, nil
}

// SaveTopicGraph replaces the tenant's graph with a single-row upsert, so
// readers observe either the previous graph or the new one.
func (db *DatabaseConnection) SaveTopicGraph(ctx context.Context, tenantID string, g *topicgraph.Graph, builtAt time.Time) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return db.Queries(ctx).SaveTopicGraph(ctx, TopicGraphRow{
		TenantID:   tenantID,
		Graph:      doc,
		TopicCount: int32(len(g.Topics)),
		EdgeCount:  int32(len(g.Edges)),
		BuiltAt:    builtAt,
	})
}

// LoadTopicGraph returns the stored graph, or nil when none was built yet.
func (db *DatabaseConnection) LoadTopicGraph(ctx context.Context, tenantID string) (*topicgraph.Graph, time.Time, error) {
	row, err := db.Queries(ctx).GetTopicGraph(ctx, tenantID)
	if IsNoRows(err) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	var g topicgraph.Graph
	if err := json.Unmarshal(row.Graph, &g); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode graph: %w", err)
	}
	return &g, row.BuiltAt, nil
}

func (db *DatabaseConnection) GetSealedCredential(ctx context.Context, tenantID, platform string) ([]byte, error) {
	sealed, err := db.Queries(ctx).GetSealedCredential(ctx, tenantID, platform)
	if IsNoRows(err) {
		return nil, credentials.ErrNotFound
	}
	return sealed, err
}

func (db *DatabaseConnection) PutSealedCredential(ctx context.Context, tenantID, platform string, sealed []byte) error {
	return db.Queries(ctx).PutSealedCredential(ctx, tenantID, platform, sealed)
}

func (db *DatabaseConnection) IsTopicSearched(ctx context.Context, tenantID, platform, topic string) (bool, error) {
	return db.Queries(ctx).IsTopicSearched(ctx, tenantID, platform, topic)
}

func (db *DatabaseConnection) MarkTopicSearched(ctx context.Context, tenantID, platform, topic string) error {
	return db.Queries(ctx).MarkTopicSearched(ctx, tenantID, platform, topic)
}

// KnownHandles is the union of tracked and already-suggested handles.
func (db *DatabaseConnection) KnownHandles(ctx context.Context, tenantID, platform string) (map[string]struct{}, error) {
	q := db.Queries(ctx)
	tracked, err := q.ListTrackedHandles(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	suggested, err := q.ListSuggestedHandles(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	return toSet(append(tracked, suggested...)), nil
}

// KnownExternalIDs is the union of non-empty platform ids on tracked channels
// and suggestions. A channel tracked by id may surface in search by handle.
func (db *DatabaseConnection) KnownExternalIDs(ctx context.Context, tenantID, platform string) (map[string]struct{}, error) {
	q := db.Queries(ctx)
	tracked, err := q.ListTrackedExternalIDs(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	suggested, err := q.ListSuggestedExternalIDs(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	return toSet(append(tracked, suggested...)), nil
}

// InsertSuggestion reports false when the handle was already suggested.
func (db *DatabaseConnection) InsertSuggestion(ctx context.Context, s ChannelSuggestion) (bool, error) {
	_, err := db.Queries(ctx).InsertSuggestion(ctx, s)
	if IsNoRows(err) {
		return false, nil
	}
	return err == nil, err
}

// AcceptSuggestion marks the suggestion accepted, starts tracking its channel,
// and queues an initial scrape unless one is already pending.
func (db *DatabaseConnection) AcceptSuggestion(ctx context.Context, id string, lookbackDays int32) (*ChannelSuggestion, *ScrapeJob, error) {
	var (
		sug *ChannelSuggestion
		job *ScrapeJob
	)
	err := db.InTx(ctx, func(q *Queries) error {
		var err error
		sug, err = q.ResolveSuggestion(ctx, id, SuggestionAccepted)
		if IsNoRows(err) {
			return fmt.Errorf("suggestion %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		_, err = q.UpsertChannel(ctx, Channel{
			TenantID:      sug.TenantID,
			Platform:      sug.Platform,
			Handle:        sug.Handle,
			ExternalID:    sug.ExternalID,
			Title:         sug.Title,
			URL:           sug.URL,
			Description:   sug.Description,
			FollowerCount: sug.FollowerCount,
			IsActive:      true,
		})
		if err != nil {
			return fmt.Errorf("track channel: %w", err)
		}
		job, err = q.EnqueueScrapeJobIfAbsent(ctx, EnqueueScrapeJobParams{
			TenantID:     sug.TenantID,
			Platform:     sug.Platform,
			Handle:       sug.Handle,
			LookbackDays: lookbackDays,
			IsInitial:    true,
		})
		if IsNoRows(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return sug, job, nil
}

func (db *DatabaseConnection) DismissSuggestion(ctx context.Context, id string) (*ChannelSuggestion, error) {
	sug, err := db.Queries(ctx).ResolveSuggestion(ctx, id, SuggestionDismissed)
	if IsNoRows(err) {
		return nil, fmt.Errorf("suggestion %s: %w", id, ErrNotFound)
	}
	return sug, err
}

func (db *DatabaseConnection) EnqueueScrapeJob(ctx context.Context, arg EnqueueScrapeJobParams) (*ScrapeJob, error) {
	return db.Queries(ctx).EnqueueScrapeJob(ctx, arg)
}

func (db *DatabaseConnection) GetScrapeJob(ctx context.Context, id string) (*ScrapeJob, error) {
	j, err := db.Queries(ctx).GetScrapeJob(ctx, id)
	if IsNoRows(err) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return j, err
}

func (db *DatabaseConnection) ListScrapeJobs(ctx context.Context, tenantID string, limit int32) ([]*ScrapeJob, error) {
	return db.Queries(ctx).ListScrapeJobs(ctx, tenantID, limit)
}

func (db *DatabaseConnection) ListSuggestions(ctx context.Context, tenantID string, status SuggestionStatus) ([]*ChannelSuggestion, error) {
	return db.Queries(ctx).ListSuggestions(ctx, tenantID, status)
}

// Package suggest proposes new channels to track, found by searching the
// platform for a tenant's strongest topics.
package suggest

import (
	"context"
	"fmt"
	"log/slog"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/discovery"
	"thirdcoast.systems/scout/internal/metrics"
	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/internal/topicgraph"
)

type Store interface {
	IsTopicSearched(ctx context.Context, tenantID, platform, topic string) (bool, error)
	MarkTopicSearched(ctx context.Context, tenantID, platform, topic string) error
	KnownHandles(ctx context.Context, tenantID, platform string) (map[string]struct{}, error)
	KnownExternalIDs(ctx context.Context, tenantID, platform string) (map[string]struct{}, error)
	InsertSuggestion(ctx context.Context, s db.ChannelSuggestion) (bool, error)
}

type QueryGenerator interface {
	GenerateQueries(ctx context.Context, topic string, n int) ([]string, error)
}

type Finder interface {
	Search(ctx context.Context, p platform.Platform, query string, limit int) ([]discovery.Candidate, error)
	FetchProfile(ctx context.Context, p platform.Platform, handle string) (*platform.Profile, error)
}

// GraphRebuilder produces a fresh graph for a tenant.
type GraphRebuilder interface {
	Rebuild(ctx context.Context, tenantID string) (*topicgraph.Graph, error)
}

type Config struct {
	TopicCount      int
	QueriesPerTopic int
	ResultsPerQuery int
	Selector        topicgraph.Selector
}

func (c Config) withDefaults() Config {
	if c.TopicCount <= 0 {
		c.TopicCount = 5
	}
	if c.QueriesPerTopic <= 0 {
		c.QueriesPerTopic = 3
	}
	if c.ResultsPerQuery <= 0 {
		c.ResultsPerQuery = 5
	}
	if c.Selector == nil {
		c.Selector = topicgraph.ByItemCount{}
	}
	return c
}

// Report summarizes one run.
type Report struct {
	TopicsSelected int
	TopicsSkipped  int
	Queries        int
	Candidates     int
	Created        int
}

type Loop struct {
	cfg     Config
	store   Store
	queries QueryGenerator
	finder  Finder
}

func New(cfg Config, store Store, queries QueryGenerator, finder Finder) *Loop {
	return &Loop{cfg: cfg.withDefaults(), store: store, queries: queries, finder: finder}
}

// Run searches for channels related to the top topics of g. Topics already
// searched for this tenant and platform are skipped.
func (l *Loop) Run(ctx context.Context, tenantID string, p platform.Platform, g *topicgraph.Graph) (Report, error) {
	var rep Report

	topics := l.cfg.Selector.Select(g, l.cfg.TopicCount)
	rep.TopicsSelected = len(topics)
	if len(topics) == 0 {
		return rep, nil
	}

	handles, err := l.store.KnownHandles(ctx, tenantID, string(p))
	if err != nil {
		return rep, fmt.Errorf("load known handles: %w", err)
	}
	ids, err := l.store.KnownExternalIDs(ctx, tenantID, string(p))
	if err != nil {
		return rep, fmt.Errorf("load known channel ids: %w", err)
	}
	known := newKnownSet(handles, ids)

	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		searched, err := l.store.IsTopicSearched(ctx, tenantID, string(p), topic.Name)
		if err != nil {
			return rep, fmt.Errorf("check topic %q: %w", topic.Name, err)
		}
		if searched {
			rep.TopicsSkipped++
			continue
		}
		if err := l.runTopic(ctx, tenantID, p, topic.Name, known, &rep); err != nil {
			slog.Warn("suggestion topic abandoned", "tenant_id", tenantID, "topic", topic.Name, "error", err)
			continue
		}
		if err := l.store.MarkTopicSearched(ctx, tenantID, string(p), topic.Name); err != nil {
			return rep, fmt.Errorf("mark topic %q searched: %w", topic.Name, err)
		}
	}

	slog.Info("suggestion run finished",
		"tenant_id", tenantID,
		"platform", p,
		"topics", rep.TopicsSelected,
		"skipped", rep.TopicsSkipped,
		"queries", rep.Queries,
		"candidates", rep.Candidates,
		"created", rep.Created)
	return rep, nil
}

// knownSet holds the channels a tenant already tracks or was already offered,
// keyed both ways since search may return a handle for a channel tracked by id.
type knownSet struct {
	handles map[string]struct{}
	ids     map[string]struct{}
}

func newKnownSet(handles, ids map[string]struct{}) *knownSet {
	k := &knownSet{
		handles: make(map[string]struct{}, len(handles)),
		ids:     make(map[string]struct{}, len(ids)),
	}
	for h := range handles {
		k.handles[h] = struct{}{}
	}
	for id := range ids {
		k.ids[id] = struct{}{}
	}
	return k
}

func (k *knownSet) hasID(id string) bool {
	if id == "" {
		return false
	}
	_, ok := k.ids[id]
	return ok
}

func (k *knownSet) addID(id string) {
	if id == "" {
		return
	}
	k.ids[id] = struct{}{}
}

// runTopic attempts every generated query for one topic. The topic fails when
// queries cannot be generated or when every search fails; a search failure
// with at least one success, and any profile failure, is only logged.
func (l *Loop) runTopic(ctx context.Context, tenantID string, p platform.Platform, topic string, known *knownSet, rep *Report) error {
	queries, err := l.queries.GenerateQueries(ctx, topic, l.cfg.QueriesPerTopic)
	if err != nil {
		return fmt.Errorf("generate queries: %w", err)
	}

	var (
		succeeded int
		lastErr   error
	)
	for _, q := range queries {
		rep.Queries++
		candidates, err := l.finder.Search(ctx, p, q, l.cfg.ResultsPerQuery)
		if err != nil {
			slog.Warn("discovery search failed", "topic", topic, "query", q, "error", err)
			lastErr = err
			continue
		}
		succeeded++
		for _, c := range candidates {
			if _, dup := known.handles[c.Handle]; dup {
				continue
			}
			known.handles[c.Handle] = struct{}{}
			rep.Candidates++

			prof, err := l.finder.FetchProfile(ctx, p, c.Handle)
			if err != nil {
				slog.Warn("candidate profile unavailable", "handle", c.Handle, "error", err)
				continue
			}
			if known.hasID(prof.ExternalID) {
				slog.Debug("candidate already known by id", "handle", c.Handle, "external_id", prof.ExternalID)
				continue
			}
			url := prof.URL
			if url == "" {
				url = c.URL
			}
			created, err := l.store.InsertSuggestion(ctx, db.ChannelSuggestion{
				TenantID:      tenantID,
				Platform:      string(p),
				Handle:        c.Handle,
				ExternalID:    prof.ExternalID,
				Title:         prof.Title,
				URL:           url,
				Description:   prof.Description,
				FollowerCount: prof.FollowerCount,
				TopicName:     topic,
				SearchTerm:    q,
				Status:        db.SuggestionPending,
			})
			if err != nil {
				slog.Warn("failed to save suggestion", "handle", c.Handle, "error", err)
				continue
			}
			known.addID(prof.ExternalID)
			if created {
				rep.Created++
				metrics.SuggestionsCreated.WithLabelValues(string(p)).Inc()
			}
		}
	}
	if succeeded == 0 && lastErr != nil {
		return fmt.Errorf("all %d searches failed: %w", len(queries), lastErr)
	}
	return nil
}

// AfterInitialScrape rebuilds the tenant's graph and runs a suggestion pass
// on it. Errors are logged; the scrape job is already complete.
func (l *Loop) AfterInitialScrape(graphs GraphRebuilder) func(ctx context.Context, tenantID string, p platform.Platform) {
	return func(ctx context.Context, tenantID string, p platform.Platform) {
		g, err := graphs.Rebuild(ctx, tenantID)
		if err != nil {
			slog.Error("graph rebuild after initial scrape failed", "tenant_id", tenantID, "error", err)
			return
		}
		if _, err := l.Run(ctx, tenantID, p, g); err != nil {
			slog.Error("suggestion run after initial scrape failed", "tenant_id", tenantID, "error", err)
		}
	}
}

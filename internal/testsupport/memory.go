// Package testsupport provides an in-memory store for package tests.
package testsupport

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"thirdcoast.systems/scout/internal/credentials"
	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/topicgraph"
)

type topicKey struct {
	item   string
	source db.TopicSource
}

type searchKey struct {
	tenant, platform, topic string
}

// MemoryStore mirrors the Postgres store semantics closely enough for the
// scheduler, ingestion, graph, and suggestion packages.
type MemoryStore struct {
	mu sync.Mutex

	tenants     []*db.Tenant
	jobs        map[string]*db.ScrapeJob
	channels    map[string]*db.Channel
	items       map[string]db.ContentItem
	links       map[string]map[string]struct{}
	topics      map[topicKey][]string
	graphs      map[string]*topicgraph.Graph
	builtAt     map[string]time.Time
	searched    map[searchKey]struct{}
	suggestions []*db.ChannelSuggestion
	sealed      map[string][]byte

	// Upserts counts UpsertContentItem calls per id.
	Upserts map[string]int
	// Clock stamps created_at values; each call advances it by a millisecond.
	Clock func() time.Time
	// Fail, when set, is consulted before each method by name.
	Fail func(method string) error
}

func NewMemoryStore() *MemoryStore {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	return &MemoryStore{
		jobs:     map[string]*db.ScrapeJob{},
		channels: map[string]*db.Channel{},
		items:    map[string]db.ContentItem{},
		links:    map[string]map[string]struct{}{},
		topics:   map[topicKey][]string{},
		graphs:   map[string]*topicgraph.Graph{},
		builtAt:  map[string]time.Time{},
		searched: map[searchKey]struct{}{},
		sealed:   map[string][]byte{},
		Upserts:  map[string]int{},
		Clock: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Millisecond)
		},
	}
}

func (m *MemoryStore) fail(method string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(method)
}

// Tenants

func (m *MemoryStore) AddTenant(name string, credentialPlatforms ...string) *db.Tenant {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &db.Tenant{ID: uuid.NewString(), Name: name, CredentialPlatforms: credentialPlatforms, CreatedAt: m.Clock()}
	m.tenants = append(m.tenants, t)
	return t
}

func (m *MemoryStore) ListTenants(ctx context.Context) ([]*db.Tenant, error) {
	if err := m.fail("ListTenants"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*db.Tenant, len(m.tenants))
	copy(out, m.tenants)
	return out, nil
}

func (m *MemoryStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	ts, err := m.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids, nil
}

// Jobs

func (m *MemoryStore) Enqueue(arg db.EnqueueScrapeJobParams) (*db.ScrapeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.Status == db.JobStatusPending && j.TenantID == arg.TenantID && j.Platform == arg.Platform && j.Handle == arg.Handle {
			return nil, db.ErrDuplicatePendingJob
		}
	}
	j := &db.ScrapeJob{
		ID:              uuid.NewString(),
		TenantID:        arg.TenantID,
		Platform:        arg.Platform,
		Handle:          arg.Handle,
		Status:          db.JobStatusPending,
		LookbackDays:    arg.LookbackDays,
		IsInitialScrape: arg.IsInitial,
		CreatedAt:       m.Clock(),
	}
	m.jobs[j.ID] = j
	cp := *j
	return &cp, nil
}

func (m *MemoryStore) EnqueueScrapeJob(ctx context.Context, arg db.EnqueueScrapeJobParams) (*db.ScrapeJob, error) {
	if err := m.fail("EnqueueScrapeJob"); err != nil {
		return nil, err
	}
	return m.Enqueue(arg)
}

func (m *MemoryStore) GetScrapeJob(ctx context.Context, id string) (*db.ScrapeJob, error) {
	if err := m.fail("GetScrapeJob"); err != nil {
		return nil, err
	}
	j := m.Job(id)
	if j == nil {
		return nil, fmt.Errorf("job %s: %w", id, db.ErrNotFound)
	}
	return j, nil
}

func (m *MemoryStore) ListScrapeJobs(ctx context.Context, tenantID string, limit int32) ([]*db.ScrapeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*db.ScrapeJob
	for _, j := range m.jobs {
		if tenantID == "" || j.TenantID == tenantID {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

// SetJobStatus forces a status, bypassing transition rules (test setup).
func (m *MemoryStore) SetJobStatus(id string, status db.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = status
}

func (m *MemoryStore) Job(id string) *db.ScrapeJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

func (m *MemoryStore) NextPendingJob(ctx context.Context, tenantID string) (*db.ScrapeJob, error) {
	if err := m.fail("NextPendingJob"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *db.ScrapeJob
	for _, j := range m.jobs {
		if j.TenantID != tenantID || j.Status != db.JobStatusPending {
			continue
		}
		if best == nil || j.CreatedAt.Before(best.CreatedAt) || (j.CreatedAt.Equal(best.CreatedAt) && j.ID < best.ID) {
			best = j
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (m *MemoryStore) MarkJobRunning(ctx context.Context, id string, at time.Time) error {
	if err := m.fail("MarkJobRunning"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != db.JobStatusPending {
		return db.ErrInvalidTransition
	}
	j.Status = db.JobStatusRunning
	j.StartedAt = &at
	return nil
}

func (m *MemoryStore) MarkJobFinished(ctx context.Context, arg db.MarkJobFinishedParams) error {
	if err := m.fail("MarkJobFinished"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[arg.ID]
	if !ok || j.Status != db.JobStatusRunning {
		return db.ErrInvalidTransition
	}
	if arg.Status != db.JobStatusCompleted && arg.Status != db.JobStatusFailed {
		return db.ErrInvalidTransition
	}
	at := arg.At
	j.Status = arg.Status
	j.Counters = arg.Result.Counters
	if arg.Result.ChannelID != nil {
		j.ChannelID = arg.Result.ChannelID
	}
	if arg.Result.ChannelTitle != nil {
		j.ChannelTitle = arg.Result.ChannelTitle
	}
	j.ErrorMessage = arg.ErrorMessage
	j.CompletedAt = &at
	return nil
}

// Now reads the same clock that stamps created_at.
func (m *MemoryStore) Now(ctx context.Context) (time.Time, error) {
	if err := m.fail("Now"); err != nil {
		return time.Time{}, err
	}
	return m.Clock(), nil
}

func (m *MemoryStore) FailOrphanedJobs(ctx context.Context, message string, cutoff time.Time) ([]string, error) {
	if err := m.fail("FailOrphanedJobs"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, j := range m.jobs {
		if (j.Status == db.JobStatusPending || j.Status == db.JobStatusRunning) && j.CreatedAt.Before(cutoff) {
			msg := message
			at := m.Clock()
			j.Status = db.JobStatusFailed
			j.ErrorMessage = &msg
			j.CompletedAt = &at
			ids = append(ids, j.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Channels

func (m *MemoryStore) UpsertChannel(ctx context.Context, c db.Channel) (*db.Channel, error) {
	if err := m.fail("UpsertChannel"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.channels {
		if existing.TenantID == c.TenantID && existing.Platform == c.Platform && existing.Handle == c.Handle {
			if c.ExternalID != "" {
				existing.ExternalID = c.ExternalID
			}
			if c.Title != "" {
				existing.Title = c.Title
			}
			if c.FollowerCount != nil {
				existing.FollowerCount = c.FollowerCount
			}
			existing.IsActive = existing.IsActive || c.IsActive
			cp := *existing
			return &cp, nil
		}
	}
	c.ID = uuid.NewString()
	c.CreatedAt = m.Clock()
	c.UpdatedAt = c.CreatedAt
	m.channels[c.ID] = &c
	cp := c
	return &cp, nil
}

// AddChannel tracks a channel directly (test setup).
func (m *MemoryStore) AddChannel(tenantID, platform, handle string) *db.Channel {
	c, _ := m.UpsertChannel(context.Background(), db.Channel{TenantID: tenantID, Platform: platform, Handle: handle, IsActive: true})
	return c
}

// Content

func (m *MemoryStore) ExistingItemIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	if err := m.fail("ExistingItemIDs"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := m.items[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (m *MemoryStore) UpsertContentItem(ctx context.Context, it db.ContentItem) error {
	if err := m.fail("UpsertContentItem"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
	m.Upserts[it.ID]++
	return nil
}

// PutItem stores an item without counting it as an enrichment (test setup).
func (m *MemoryStore) PutItem(it db.ContentItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
}

func (m *MemoryStore) Item(id string) (db.ContentItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return it, ok
}

func (m *MemoryStore) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *MemoryStore) UpdateItemMetrics(ctx context.Context, updates []db.MetricsUpdate) error {
	if err := m.fail("UpdateItemMetrics"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updates {
		it, ok := m.items[u.ID]
		if !ok {
			continue
		}
		it.Views, it.Likes, it.Comments = u.Views, u.Likes, u.Comments
		it.LastSyncedAt = u.SyncedAt
		m.items[u.ID] = it
	}
	return nil
}

func (m *MemoryStore) LinkChannelItems(ctx context.Context, channelID string, itemIDs []string) error {
	if err := m.fail("LinkChannelItems"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.links[channelID]
	if !ok {
		set = map[string]struct{}{}
		m.links[channelID] = set
	}
	for _, id := range itemIDs {
		if _, ok := m.items[id]; !ok {
			return fmt.Errorf("link %s: item does not exist", id)
		}
		set[id] = struct{}{}
	}
	return nil
}

func (m *MemoryStore) SetItemTopics(ctx context.Context, itemID string, source db.TopicSource, names []string) error {
	if err := m.fail("SetItemTopics"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics[topicKey{itemID, source}] = append([]string(nil), names...)
	return nil
}

func (m *MemoryStore) Topics(itemID string, source db.TopicSource) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.topics[topicKey{itemID, source}]
}

// Graph

func (m *MemoryStore) LoadGraphSnapshot(ctx context.Context, tenantID string) (*topicgraph.Snapshot, error) {
	if err := m.fail("LoadGraphSnapshot"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	owner := map[string]string{}
	for chID, set := range m.links {
		ch, ok := m.channels[chID]
		if !ok || ch.TenantID != tenantID {
			continue
		}
		for id := range set {
			if cur, ok := owner[id]; !ok || chID < cur {
				owner[id] = chID
			}
		}
	}

	snap := &topicgraph.Snapshot{}
	for id, chID := range owner {
		it := m.items[id]
		seen := map[string]struct{}{}
		var names []string
		for _, src := range []db.TopicSource{db.TopicSourceAuthor, db.TopicSourceAI} {
			for _, n := range m.topics[topicKey{id, src}] {
				if _, ok := seen[n]; !ok {
					seen[n] = struct{}{}
					names = append(names, n)
				}
			}
		}
		sort.Strings(names)
		snap.Items = append(snap.Items, topicgraph.SnapshotItem{
			ID: id, ChannelID: chID,
			Views: it.Views, Likes: it.Likes, Comments: it.Comments,
			DurationSeconds: it.DurationSeconds,
			Topics:          names,
		})
	}
	sort.Slice(snap.Items, func(i, j int) bool { return snap.Items[i].ID < snap.Items[j].ID })
	return snap, nil
}

func (m *MemoryStore) SaveTopicGraph(ctx context.Context, tenantID string, g *topicgraph.Graph, builtAt time.Time) error {
	if err := m.fail("SaveTopicGraph"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs[tenantID] = g
	m.builtAt[tenantID] = builtAt
	return nil
}

func (m *MemoryStore) LoadTopicGraph(ctx context.Context, tenantID string) (*topicgraph.Graph, time.Time, error) {
	if err := m.fail("LoadTopicGraph"); err != nil {
		return nil, time.Time{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graphs[tenantID], m.builtAt[tenantID], nil
}

func (m *MemoryStore) Graph(tenantID string) *topicgraph.Graph {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graphs[tenantID]
}

// Suggestions

func (m *MemoryStore) IsTopicSearched(ctx context.Context, tenantID, platform, topic string) (bool, error) {
	if err := m.fail("IsTopicSearched"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.searched[searchKey{tenantID, platform, topic}]
	return ok, nil
}

func (m *MemoryStore) MarkTopicSearched(ctx context.Context, tenantID, platform, topic string) error {
	if err := m.fail("MarkTopicSearched"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searched[searchKey{tenantID, platform, topic}] = struct{}{}
	return nil
}

func (m *MemoryStore) KnownHandles(ctx context.Context, tenantID, platform string) (map[string]struct{}, error) {
	if err := m.fail("KnownHandles"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]struct{}{}
	for _, c := range m.channels {
		if c.TenantID == tenantID && c.Platform == platform {
			out[c.Handle] = struct{}{}
		}
	}
	for _, s := range m.suggestions {
		if s.TenantID == tenantID && s.Platform == platform {
			out[s.Handle] = struct{}{}
		}
	}
	return out, nil
}

func (m *MemoryStore) KnownExternalIDs(ctx context.Context, tenantID, platform string) (map[string]struct{}, error) {
	if err := m.fail("KnownExternalIDs"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]struct{}{}
	for _, c := range m.channels {
		if c.TenantID == tenantID && c.Platform == platform && c.ExternalID != "" {
			out[c.ExternalID] = struct{}{}
		}
	}
	for _, s := range m.suggestions {
		if s.TenantID == tenantID && s.Platform == platform && s.ExternalID != "" {
			out[s.ExternalID] = struct{}{}
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertSuggestion(ctx context.Context, s db.ChannelSuggestion) (bool, error) {
	if err := m.fail("InsertSuggestion"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.suggestions {
		if existing.TenantID == s.TenantID && existing.Platform == s.Platform && existing.Handle == s.Handle {
			return false, nil
		}
	}
	s.ID = uuid.NewString()
	s.Status = db.SuggestionPending
	s.CreatedAt = m.Clock()
	m.suggestions = append(m.suggestions, &s)
	return true, nil
}

func (m *MemoryStore) ListSuggestions(ctx context.Context, tenantID string, status db.SuggestionStatus) ([]*db.ChannelSuggestion, error) {
	if err := m.fail("ListSuggestions"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*db.ChannelSuggestion
	for _, s := range m.suggestions {
		if s.TenantID == tenantID && (status == "" || s.Status == status) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) Suggestions() []db.ChannelSuggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.ChannelSuggestion, len(m.suggestions))
	for i, s := range m.suggestions {
		out[i] = *s
	}
	return out
}

// Credentials

func (m *MemoryStore) GetSealedCredential(ctx context.Context, tenantID, platform string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.sealed[tenantID+"|"+platform]
	if !ok {
		return nil, credentials.ErrNotFound
	}
	return b, nil
}

func (m *MemoryStore) PutSealedCredential(ctx context.Context, tenantID, platform string, sealed []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sealed[tenantID+"|"+platform] = append([]byte(nil), sealed...)
	return nil
}

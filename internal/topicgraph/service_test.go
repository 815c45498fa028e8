package topicgraph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu    sync.Mutex
	snap  *Snapshot
	saved map[string]*Graph
	fail  map[string]bool
}

func (f *fakeStore) LoadGraphSnapshot(ctx context.Context, tenantID string) (*Snapshot, error) {
	if f.fail[tenantID] {
		return nil, errors.New("db down")
	}
	return f.snap, nil
}

func (f *fakeStore) SaveTopicGraph(ctx context.Context, tenantID string, g *Graph, builtAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string]*Graph{}
	}
	f.saved[tenantID] = g
	return nil
}

func (f *fakeStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type staticTenants []string

func (s staticTenants) ListTenantIDs(ctx context.Context) ([]string, error) { return s, nil }

func TestService_RebuildSavesAndNotifies(t *testing.T) {
	store := &fakeStore{snap: &Snapshot{Items: []SnapshotItem{
		item("a", "c", 1, "x"), item("b", "c", 2, "x"), item("c", "c", 3, "x"),
	}}}
	svc := NewService(store, DefaultParams())

	var notified string
	svc.OnBuilt = func(ctx context.Context, tenantID string) { notified = tenantID }

	g, err := svc.Rebuild(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, g.Topics, 1)
	require.Same(t, g, store.saved["t1"])
	require.Equal(t, "t1", notified)
}

func TestRefresher_ContinuesPastFailures(t *testing.T) {
	store := &fakeStore{snap: &Snapshot{}, fail: map[string]bool{"bad": true}}
	r := NewRefresher(NewService(store, DefaultParams()), staticTenants{"bad", "good"}, time.Hour)

	r.RefreshAll(context.Background())
	require.Contains(t, store.saved, "good")
	require.NotContains(t, store.saved, "bad")
}

func TestRefresher_ServeStopsOnCancel(t *testing.T) {
	store := &fakeStore{snap: &Snapshot{}}
	r := NewRefresher(NewService(store, DefaultParams()), staticTenants{"t"}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	require.Eventually(t, func() bool { return store.savedCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestReport(t *testing.T) {
	s := Snapshot{Items: []SnapshotItem{
		item("youtube:1", "c", 10, "bread", "vegan"),
		item("youtube:2", "c", 20, "bread", "vegan"),
		item("youtube:3", "c", 30, "bread"),
	}}
	g := Build(s, viewsOnly(2, 1))

	md := Report(g, time.Now().Add(-time.Hour), 10)
	require.Contains(t, md, "| bread | 3 |")
	require.Contains(t, md, "## vegan")
	require.Contains(t, md, "- bread (100%)")
	require.Contains(t, md, "`youtube:3`")

	empty := Report(&Graph{}, time.Time{}, 10)
	require.True(t, strings.Contains(empty, "No topic"))
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/scout/internal/credentials"
	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/ingest"
	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/internal/testsupport"
)

type fakeFetcher struct {
	mu      sync.Mutex
	items   []platform.Item
	err     error
	panic   bool
	calls   int
	cookies []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, req platform.FetchRequest) (*platform.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.cookies = append(f.cookies, req.Cookies)
	if f.panic {
		panic("fetcher blew up")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &platform.FetchResult{
		Profile: platform.Profile{
			Platform: req.Platform,
			Handle:   req.Handle,
			Title:    "Bea Bakes",
			URL:      platform.ProfileURL(req.Platform, req.Handle),
		},
		Items: f.items,
	}, nil
}

type fakeCreds map[string]string

func (f fakeCreds) Get(ctx context.Context, tenantID, p string) (*credentials.Credential, error) {
	c, ok := f[tenantID+"/"+p]
	if !ok {
		return nil, credentials.ErrNotFound
	}
	return &credentials.Credential{Cookies: c}, nil
}

func videos(prefix string, n int) []platform.Item {
	out := make([]platform.Item, n)
	for i := range out {
		native := fmt.Sprintf("%s%d", prefix, i)
		out[i] = platform.Item{
			ID:       platform.ItemID(platform.YouTube, native),
			NativeID: native,
			Platform: platform.YouTube,
			Title:    "Loaf " + native + " #sourdough",
			URL:      "https://www.youtube.com/watch?v=" + native,
			Metrics:  platform.Metrics{Views: 500, Likes: 40, Comments: 4},
		}
	}
	return out
}

type fixture struct {
	store   *testsupport.MemoryStore
	fetcher *fakeFetcher
	exec    *Executor
	loop    *Loop
	tenant  *db.Tenant
}

func newFixture(t *testing.T, creds CredentialSource) *fixture {
	t.Helper()
	store := testsupport.NewMemoryStore()
	pipe := ingest.NewPipeline(ingest.PipelineConfig{SpoolDir: t.TempDir()}, store, nil, nil, nil, nil)
	orch := ingest.NewOrchestrator(store, pipe, nil)
	f := &fixture{
		store:   store,
		fetcher: &fakeFetcher{},
		tenant:  store.AddTenant("acme"),
	}
	f.exec = NewExecutor(ExecutorConfig{DefaultLookback: 7 * 24 * time.Hour}, store, f.fetcher, orch, creds, nil)
	f.loop = NewLoop(LoopConfig{PollInterval: 10 * time.Millisecond}, store, f.exec)
	// Jobs created by the test belong to this process, not a previous one.
	f.loop.startedAt = time.Time{}
	return f
}

func (f *fixture) enqueue(t *testing.T, tenantID, handle string, initial bool) *db.ScrapeJob {
	t.Helper()
	j, err := f.store.Enqueue(db.EnqueueScrapeJobParams{
		TenantID:     tenantID,
		Platform:     "youtube",
		Handle:       handle,
		LookbackDays: 7,
		IsInitial:    initial,
	})
	require.NoError(t, err)
	return j
}

func TestTryRunNext_NothingPending(t *testing.T) {
	f := newFixture(t, nil)
	ran, err := f.loop.TryRunNext(context.Background())
	require.NoError(t, err)
	require.False(t, ran)
	require.Equal(t, StateIdle, f.loop.Status().State)
}

func TestTryRunNext_EndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	existing := videos("old", 3)
	for _, it := range existing {
		f.store.PutItem(db.ContentItem{ID: it.ID, Platform: "youtube", Title: it.Title, LastSyncedAt: time.Unix(0, 0).UTC()})
	}
	f.fetcher.items = append(videos("new", 10), existing...)
	job := f.enqueue(t, f.tenant.ID, "@BeaBakes", false)

	before := time.Now().UTC()
	ran, err := f.loop.TryRunNext(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	got := f.store.Job(job.ID)
	require.Equal(t, db.JobStatusCompleted, got.Status)
	require.Nil(t, got.ErrorMessage)
	require.Equal(t, int32(13), got.Counters.Found)
	require.Equal(t, int32(10), got.Counters.New)
	require.Equal(t, int32(3), got.Counters.Updated)
	require.Equal(t, int32(13), got.Counters.Processed)
	require.NotNil(t, got.ChannelID)
	require.Equal(t, "Bea Bakes", *got.ChannelTitle)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)

	require.Equal(t, 13, f.store.ItemCount())
	for _, it := range f.fetcher.items {
		rec, ok := f.store.Item(it.ID)
		require.True(t, ok)
		require.False(t, rec.LastSyncedAt.Before(before), it.ID)
	}
	for _, it := range existing {
		require.Zero(t, f.store.Upserts[it.ID], "known item re-enriched")
	}
	for _, it := range f.fetcher.items[:10] {
		require.Equal(t, 1, f.store.Upserts[it.ID])
	}
}

func TestTryRunNext_TenantOrder(t *testing.T) {
	f := newFixture(t, nil)
	second := f.store.AddTenant("zeta")

	late := f.enqueue(t, second.ID, "first-created", false)
	early := f.enqueue(t, f.tenant.ID, "second-created", false)

	ran, err := f.loop.TryRunNext(context.Background())
	require.NoError(t, err)
	require.True(t, ran)

	require.Equal(t, db.JobStatusCompleted, f.store.Job(early.ID).Status)
	require.Equal(t, db.JobStatusPending, f.store.Job(late.ID).Status)
}

func TestTryRunNext_OldestJobFirst(t *testing.T) {
	f := newFixture(t, nil)
	a := f.enqueue(t, f.tenant.ID, "alpha", false)
	b := f.enqueue(t, f.tenant.ID, "bravo", false)

	_, err := f.loop.TryRunNext(context.Background())
	require.NoError(t, err)
	require.Equal(t, db.JobStatusCompleted, f.store.Job(a.ID).Status)
	require.Equal(t, db.JobStatusPending, f.store.Job(b.ID).Status)
}

func TestExecute_FailureRecordsMessage(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fakeFetcher)
		wantMsg string
	}{
		{
			name:    "fetch error",
			setup:   func(f *fakeFetcher) { f.err = errors.New("channel not found") },
			wantMsg: "fetch youtube/alpha: channel not found",
		},
		{
			name:    "panic",
			setup:   func(f *fakeFetcher) { f.panic = true },
			wantMsg: "panic: fetcher blew up",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			tt.setup(f.fetcher)
			job := f.enqueue(t, f.tenant.ID, "alpha", false)

			ran, err := f.loop.TryRunNext(context.Background())
			require.NoError(t, err)
			require.True(t, ran)

			got := f.store.Job(job.ID)
			require.Equal(t, db.JobStatusFailed, got.Status)
			require.NotNil(t, got.ErrorMessage)
			require.Equal(t, tt.wantMsg, *got.ErrorMessage)
			require.Equal(t, StateIdle, f.loop.Status().State)
		})
	}
}

func TestExecute_MissingRequiredCredential(t *testing.T) {
	f := newFixture(t, fakeCreds{})
	locked := f.store.AddTenant("locked", "youtube")
	job := f.enqueue(t, locked.ID, "alpha", false)

	err := f.exec.Execute(context.Background(), locked, job)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Zero(t, f.fetcher.calls, "fetch attempted without credential")

	got := f.store.Job(job.ID)
	require.Equal(t, db.JobStatusFailed, got.Status)
	require.Contains(t, *got.ErrorMessage, "configuration error")
}

func TestExecute_CredentialCookiesPassed(t *testing.T) {
	f := newFixture(t, nil)
	f.exec.creds = fakeCreds{f.tenant.ID + "/youtube": "cookie-jar"}
	job := f.enqueue(t, f.tenant.ID, "alpha", false)

	require.NoError(t, f.exec.Execute(context.Background(), f.tenant, job))
	require.Equal(t, []string{"cookie-jar"}, f.fetcher.cookies)
}

func TestExecute_ConfigErrFailsEveryJob(t *testing.T) {
	f := newFixture(t, nil)
	f.exec.cfg.ConfigErr = &ConfigurationError{Reason: "OPENAI_API_KEY is required when TRANSCRIBER=openai"}
	job := f.enqueue(t, f.tenant.ID, "alpha", false)

	err := f.exec.Execute(context.Background(), f.tenant, job)
	require.Error(t, err)
	require.Zero(t, f.fetcher.calls)
	require.Equal(t, "configuration error: OPENAI_API_KEY is required when TRANSCRIBER=openai", *f.store.Job(job.ID).ErrorMessage)
}

func TestExecute_AfterInitialScrape(t *testing.T) {
	f := newFixture(t, nil)
	var got []string
	f.exec.OnInitialScrape(func(ctx context.Context, tenantID string, p platform.Platform) {
		got = append(got, tenantID+"/"+string(p))
	})

	regular := f.enqueue(t, f.tenant.ID, "alpha", false)
	require.NoError(t, f.exec.Execute(context.Background(), f.tenant, regular))
	require.Empty(t, got)

	initial := f.enqueue(t, f.tenant.ID, "bravo", true)
	require.NoError(t, f.exec.Execute(context.Background(), f.tenant, initial))
	require.Equal(t, []string{f.tenant.ID + "/youtube"}, got)
}

func TestExecute_RecordsOutcomeAfterCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	f.fetcher.err = context.Canceled
	job := f.enqueue(t, f.tenant.ID, "alpha", false)
	cancel()

	require.Error(t, f.exec.Execute(ctx, f.tenant, job))
	require.Equal(t, db.JobStatusFailed, f.store.Job(job.ID).Status)
}

func TestRecover_FailsOrphanedJobsOnce(t *testing.T) {
	f := newFixture(t, nil)
	pending := f.enqueue(t, f.tenant.ID, "alpha", false)
	running := f.enqueue(t, f.tenant.ID, "bravo", false)
	f.store.SetJobStatus(running.ID, db.JobStatusRunning)
	done := f.enqueue(t, f.tenant.ID, "charlie", false)
	f.store.SetJobStatus(done.ID, db.JobStatusCompleted)

	dbNow := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	f.store.Clock = func() time.Time { return dbNow }
	f.loop.startedAt = time.Now()
	require.NoError(t, f.loop.Recover(context.Background()))

	for _, id := range []string{pending.ID, running.ID} {
		got := f.store.Job(id)
		require.Equal(t, db.JobStatusFailed, got.Status)
		require.Equal(t, InterruptedMessage, *got.ErrorMessage)
	}
	require.Equal(t, db.JobStatusCompleted, f.store.Job(done.ID).Status)

	// A supervisor restart must not fail jobs submitted since.
	fresh := f.enqueue(t, f.tenant.ID, "delta", false)
	require.NoError(t, f.loop.Recover(context.Background()))
	require.Equal(t, db.JobStatusPending, f.store.Job(fresh.ID).Status)
}

func TestRecover_CutoffUsesDatabaseClock(t *testing.T) {
	f := newFixture(t, nil)

	// The database clock runs years behind the host; only elapsed process
	// time is taken from the host.
	dbNow := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	at := dbNow.Add(-20 * time.Minute)
	f.store.Clock = func() time.Time { return at }
	previous := f.enqueue(t, f.tenant.ID, "alpha", false)
	at = dbNow.Add(-5 * time.Minute)
	current := f.enqueue(t, f.tenant.ID, "bravo", false)
	at = dbNow

	f.loop.startedAt = time.Now().Add(-10 * time.Minute)
	require.NoError(t, f.loop.Recover(context.Background()))

	require.Equal(t, db.JobStatusFailed, f.store.Job(previous.ID).Status)
	require.Equal(t, db.JobStatusPending, f.store.Job(current.ID).Status)
}

func TestRecover_ClockFailureIsReturned(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Fail = func(method string) error {
		if method == "Now" {
			return errors.New("connection refused")
		}
		return nil
	}
	require.ErrorContains(t, f.loop.Recover(context.Background()), "connection refused")
}

func TestServe_DrainsQueueAndStops(t *testing.T) {
	f := newFixture(t, nil)
	a := f.enqueue(t, f.tenant.ID, "alpha", false)
	b := f.enqueue(t, f.tenant.ID, "bravo", false)

	wake := make(chan struct{}, 1)
	f.loop.WithWake(wake)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.loop.Serve(ctx) }()

	require.Eventually(t, func() bool {
		return f.store.Job(a.ID).Status == db.JobStatusCompleted &&
			f.store.Job(b.ID).Status == db.JobStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	c := f.enqueue(t, f.tenant.ID, "charlie", false)
	wake <- struct{}{}
	require.Eventually(t, func() bool {
		return f.store.Job(c.ID).Status == db.JobStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestSubmit(t *testing.T) {
	store := testsupport.NewMemoryStore()
	tenant := store.AddTenant("acme")
	ctx := context.Background()

	job, err := Submit(ctx, store, SubmitRequest{TenantID: tenant.ID, Platform: "YouTube", Handle: "@BeaBakes"}, 7, 90)
	require.NoError(t, err)
	require.Equal(t, "youtube", job.Platform)
	require.Equal(t, platform.NormalizeHandle(platform.YouTube, "@BeaBakes"), job.Handle)
	require.Equal(t, int32(7), job.LookbackDays)

	_, err = Submit(ctx, store, SubmitRequest{TenantID: tenant.ID, Platform: "youtube", Handle: "@BeaBakes"}, 7, 90)
	require.ErrorIs(t, err, db.ErrDuplicatePendingJob)

	initial, err := Submit(ctx, store, SubmitRequest{TenantID: tenant.ID, Platform: "youtube", Handle: "other", Initial: true}, 7, 90)
	require.NoError(t, err)
	require.Equal(t, int32(90), initial.LookbackDays)
	require.True(t, initial.IsInitialScrape)

	_, err = Submit(ctx, store, SubmitRequest{TenantID: tenant.ID, Platform: "myspace", Handle: "x"}, 7, 90)
	require.Error(t, err)
}

func TestProgressMap(t *testing.T) {
	p := NewProgressMap()
	p.Report("job-1", "enrich", 3, 10)
	got, ok := p.Get("job-1")
	require.True(t, ok)
	require.Equal(t, "enrich", got.Step)
	require.Equal(t, 3, got.Current)
	require.Equal(t, 10, got.Total)

	p.Report("", "ignored", 0, 0)
	p.Clear("job-1")
	_, ok = p.Get("job-1")
	require.False(t, ok)
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/inference"
	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/internal/testsupport"
)

type fakeMedia struct {
	downloadErr error
	downloads   int
}

func (f *fakeMedia) DownloadMedia(ctx context.Context, url, dir, cookies string) (string, error) {
	f.downloads++
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	p := filepath.Join(dir, "media.m4a")
	return p, os.WriteFile(p, []byte("media"), 0o644)
}

func (f *fakeMedia) FetchThumbnail(ctx context.Context, url, dir, name string) (string, error) {
	p := filepath.Join(dir, name+".jpg")
	return p, os.WriteFile(p, []byte("jpg"), 0o644)
}

type fakeExtractor struct{}

func (fakeExtractor) ExtractAudio(ctx context.Context, mediaPath, dir string) (string, error) {
	p := filepath.Join(dir, "audio.wav")
	return p, os.WriteFile(p, []byte("wav"), 0o644)
}

type fakeTranscriber struct {
	err   error
	panic bool
}

func (f fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if f.panic {
		panic("decoder exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	return "transcript of " + filepath.Base(audioPath), nil
}

type fakeInferrer struct {
	got []inference.Input
	err error
}

func (f *fakeInferrer) Infer(ctx context.Context, in inference.Input) ([]string, error) {
	f.got = append(f.got, in)
	return []string{"sourdough", "baking"}, f.err
}

type harness struct {
	store    *testsupport.MemoryStore
	media    *fakeMedia
	inferrer *fakeInferrer
	spool    string
	orch     *Orchestrator
	channel  *db.Channel
}

func newHarness(t *testing.T, tr fakeTranscriber) *harness {
	t.Helper()
	h := &harness{
		store:    testsupport.NewMemoryStore(),
		media:    &fakeMedia{},
		inferrer: &fakeInferrer{},
		spool:    filepath.Join(t.TempDir(), "spool"),
	}
	tenant := h.store.AddTenant("acme")
	h.channel = h.store.AddChannel(tenant.ID, "youtube", "beabakes")
	p := NewPipeline(PipelineConfig{SpoolDir: h.spool, AssetDir: t.TempDir()}, h.store, h.media, fakeExtractor{}, tr, h.inferrer)
	h.orch = NewOrchestrator(h.store, p, nil)
	return h
}

func items(prefix string, n int) []platform.Item {
	out := make([]platform.Item, n)
	for i := range out {
		native := fmt.Sprintf("%s%d", prefix, i)
		out[i] = platform.Item{
			ID:       platform.ItemID(platform.YouTube, native),
			NativeID: native,
			Platform: platform.YouTube,
			Title:    "Loaf #" + native + " #Bread",
			URL:      "https://youtube.com/watch?v=" + native,
			Metrics:  platform.Metrics{Views: 100, Likes: 10, Comments: 1},
			Tags:     []string{"Baking"},
		}
	}
	return out
}

func TestDedupe_LastOccurrenceWins(t *testing.T) {
	a := platform.Item{ID: "youtube:a", Title: "first"}
	b := platform.Item{ID: "youtube:b"}
	a2 := platform.Item{ID: "youtube:a", Title: "second"}

	got := Dedupe([]platform.Item{a, b, a2})
	require.Len(t, got, 2)
	require.Equal(t, "second", got[0].Title)
	require.Equal(t, "youtube:b", got[1].ID)
}

func TestPartition_ExhaustiveAndDisjoint(t *testing.T) {
	in := items("v", 5)
	fresh, known := Partition(in, map[string]struct{}{in[1].ID: {}, in[3].ID: {}})
	require.Len(t, fresh, 3)
	require.Len(t, known, 2)
	require.Equal(t, len(in), len(fresh)+len(known))
	for _, k := range known {
		for _, f := range fresh {
			require.NotEqual(t, k.ID, f.ID)
		}
	}
}

func TestIngest_NewAndExisting(t *testing.T) {
	h := newHarness(t, fakeTranscriber{})
	old := items("old", 3)
	stale := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, it := range old {
		h.store.PutItem(db.ContentItem{ID: it.ID, Platform: "youtube", Views: 1, LastSyncedAt: stale})
	}
	batch := append(items("new", 10), old...)

	res, err := h.orch.Ingest(context.Background(), Batch{JobID: "j1", ChannelID: h.channel.ID, Platform: platform.YouTube, Items: batch})
	require.NoError(t, err)
	require.Equal(t, Result{New: 10, Updated: 3}, res)

	for _, it := range old {
		stored, ok := h.store.Item(it.ID)
		require.True(t, ok)
		require.Equal(t, int64(100), stored.Views)
		require.True(t, stored.LastSyncedAt.After(stale))
		require.Zero(t, h.store.Upserts[it.ID], "existing items are never re-enriched")
	}
	require.Equal(t, 10, h.media.downloads)
	require.Len(t, h.inferrer.got, 10)
	require.Equal(t, 13, h.store.ItemCount())
}

func TestIngest_EnrichesAtMostOnce(t *testing.T) {
	h := newHarness(t, fakeTranscriber{})
	batch := items("v", 4)
	b := Batch{JobID: "j", ChannelID: h.channel.ID, Platform: platform.YouTube, Items: batch}

	_, err := h.orch.Ingest(context.Background(), b)
	require.NoError(t, err)
	res, err := h.orch.Ingest(context.Background(), b)
	require.NoError(t, err)

	require.Equal(t, Result{New: 0, Updated: 4}, res)
	for _, it := range batch {
		require.Equal(t, 1, h.store.Upserts[it.ID])
	}
}

func TestIngest_EnrichesAtMostOnceAfterPartialFailure(t *testing.T) {
	h := newHarness(t, fakeTranscriber{})
	h.media.downloadErr = errors.New("403 forbidden")
	batch := items("v", 3)
	b := Batch{JobID: "j", ChannelID: h.channel.ID, Platform: platform.YouTube, Items: batch}

	_, err := h.orch.Ingest(context.Background(), b)
	require.NoError(t, err)
	require.Equal(t, 3, h.media.downloads)
	require.Len(t, h.inferrer.got, 3)

	h.media.downloadErr = nil
	res, err := h.orch.Ingest(context.Background(), b)
	require.NoError(t, err)
	require.Equal(t, Result{Updated: 3}, res)

	require.Equal(t, 3, h.media.downloads)
	require.Len(t, h.inferrer.got, 3)
	for _, it := range batch {
		require.Equal(t, 1, h.store.Upserts[it.ID])
		stored, _ := h.store.Item(it.ID)
		require.Nil(t, stored.Transcription)
		require.Equal(t, db.TranscriptionError, stored.TranscriptionStatus)
	}
}

func TestIngest_PartialFailureStillPersists(t *testing.T) {
	h := newHarness(t, fakeTranscriber{})
	h.media.downloadErr = errors.New("403 forbidden")

	res, err := h.orch.Ingest(context.Background(), Batch{JobID: "j", ChannelID: h.channel.ID, Platform: platform.YouTube, Items: items("v", 2)})
	require.NoError(t, err)
	require.Equal(t, 2, res.New)

	stored, ok := h.store.Item("youtube:v0")
	require.True(t, ok)
	require.Equal(t, db.TranscriptionError, stored.TranscriptionStatus)
	require.Nil(t, stored.Transcription)
	require.NotNil(t, stored.ThumbnailPath)
	require.Equal(t, []string{"sourdough", "baking"}, h.store.Topics("youtube:v0", db.TopicSourceAI))
	require.Empty(t, h.inferrer.got[0].Transcript)
}

func TestPipeline_TopicsByProvenance(t *testing.T) {
	h := newHarness(t, fakeTranscriber{})
	_, err := h.orch.Ingest(context.Background(), Batch{JobID: "j", ChannelID: h.channel.ID, Platform: platform.YouTube, Items: items("v", 1)})
	require.NoError(t, err)

	stored, _ := h.store.Item("youtube:v0")
	require.Equal(t, db.TranscriptionCompleted, stored.TranscriptionStatus)
	require.Equal(t, "transcript of audio.wav", *stored.Transcription)
	require.Equal(t, []string{"v0", "bread", "baking"}, h.store.Topics("youtube:v0", db.TopicSourceAuthor))
	require.Equal(t, []string{"sourdough", "baking"}, h.store.Topics("youtube:v0", db.TopicSourceAI))
	require.Equal(t, "transcript of audio.wav", h.inferrer.got[0].Transcript)
}

type authorTopicsFailStore struct {
	*testsupport.MemoryStore
}

func (s authorTopicsFailStore) SetItemTopics(ctx context.Context, itemID string, source db.TopicSource, names []string) error {
	if source == db.TopicSourceAuthor {
		return errors.New("deadlock detected")
	}
	return s.MemoryStore.SetItemTopics(ctx, itemID, source, names)
}

func TestPipeline_TopicStagesFailIndependently(t *testing.T) {
	store := testsupport.NewMemoryStore()
	inferrer := &fakeInferrer{}
	p := NewPipeline(PipelineConfig{SpoolDir: t.TempDir()}, authorTopicsFailStore{store}, nil, nil, nil, inferrer)

	require.NoError(t, p.Process(context.Background(), items("v", 1)[0], ""))
	require.Empty(t, store.Topics("youtube:v0", db.TopicSourceAuthor))
	require.Equal(t, []string{"sourdough", "baking"}, store.Topics("youtube:v0", db.TopicSourceAI))
}

func TestPipeline_WorkspaceRemovedOnPanic(t *testing.T) {
	h := newHarness(t, fakeTranscriber{panic: true})
	_, err := h.orch.Ingest(context.Background(), Batch{JobID: "j", ChannelID: h.channel.ID, Platform: platform.YouTube, Items: items("v", 3)})
	require.NoError(t, err)

	entries, err := os.ReadDir(h.spool)
	require.NoError(t, err)
	require.Empty(t, entries)

	stored, _ := h.store.Item("youtube:v2")
	require.Equal(t, db.TranscriptionError, stored.TranscriptionStatus)
}

func TestPipeline_WorkspaceRemovedOnSuccess(t *testing.T) {
	h := newHarness(t, fakeTranscriber{})
	_, err := h.orch.Ingest(context.Background(), Batch{JobID: "j", ChannelID: h.channel.ID, Platform: platform.YouTube, Items: items("v", 2)})
	require.NoError(t, err)

	entries, err := os.ReadDir(h.spool)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestIngest_LookupFailureFailsBatch(t *testing.T) {
	h := newHarness(t, fakeTranscriber{})
	h.store.Fail = func(method string) error {
		if method == "ExistingItemIDs" {
			return errors.New("connection reset")
		}
		return nil
	}
	_, err := h.orch.Ingest(context.Background(), Batch{ChannelID: h.channel.ID, Platform: platform.YouTube, Items: items("v", 1)})
	require.ErrorContains(t, err, "connection reset")
}

func TestIngest_PersistFailureCountsAsFailed(t *testing.T) {
	h := newHarness(t, fakeTranscriber{})
	h.store.Fail = func(method string) error {
		if method == "UpsertContentItem" {
			return errors.New("disk full")
		}
		return nil
	}
	res, err := h.orch.Ingest(context.Background(), Batch{ChannelID: h.channel.ID, Platform: platform.YouTube, Items: items("v", 2)})
	require.NoError(t, err)
	require.Equal(t, Result{Failed: 2}, res)
}

func TestPipeline_NoTranscriberSkipsMedia(t *testing.T) {
	store := testsupport.NewMemoryStore()
	media := &fakeMedia{}
	p := NewPipeline(PipelineConfig{SpoolDir: t.TempDir()}, store, media, fakeExtractor{}, nil, nil)

	require.NoError(t, p.Process(context.Background(), items("v", 1)[0], ""))
	require.Zero(t, media.downloads)
	stored, _ := store.Item("youtube:v0")
	require.Equal(t, db.TranscriptionPending, stored.TranscriptionStatus)
}

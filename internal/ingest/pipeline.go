package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/inference"
	"thirdcoast.systems/scout/internal/metrics"
	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/internal/topics"
	"thirdcoast.systems/scout/internal/transcribe"
	"thirdcoast.systems/scout/pkg/utils/filename"
)

// Enrichment stages, used in logs and the stage failure metric.
const (
	StageThumbnail    = "thumbnail"
	StageDownload     = "download"
	StageAudio        = "audio"
	StageTranscribe   = "transcribe"
	StageInfer        = "infer"
	StageAuthorTopics = "author_topics"
	StageAITopics     = "ai_topics"
	StagePersist      = "persist"
)

type PipelineConfig struct {
	// SpoolDir holds per-item workspaces that are removed after each item.
	SpoolDir string
	// AssetDir holds thumbnails, which are kept.
	AssetDir string
}

// Pipeline enriches one new item at a time. Collaborators other than the
// store may be nil, which skips their stages.
type Pipeline struct {
	cfg         PipelineConfig
	store       Store
	media       MediaSource
	extractor   AudioExtractor
	transcriber transcribe.Transcriber
	inferrer    TopicInferrer
	now         func() time.Time
}

func NewPipeline(cfg PipelineConfig, store Store, media MediaSource, extractor AudioExtractor, transcriber transcribe.Transcriber, inferrer TopicInferrer) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		store:       store,
		media:       media,
		extractor:   extractor,
		transcriber: transcriber,
		inferrer:    inferrer,
		now:         time.Now,
	}
}

// runStage converts a panic inside fn into an error and counts failures.
func runStage(itemID, stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", stage, r)
		}
		if err != nil {
			metrics.EnrichmentFailures.WithLabelValues(stage).Inc()
			slog.Warn("enrichment stage failed", "item_id", itemID, "stage", stage, "error", err)
		}
	}()
	return fn()
}

// Process enriches and persists one item. Stage failures leave their fields
// empty; only a failure to store the item is returned. Everything written
// under the item's workspace is removed before Process returns.
func (p *Pipeline) Process(ctx context.Context, item platform.Item, cookies string) error {
	rec := db.ContentItem{
		ID:                  item.ID,
		Platform:            string(item.Platform),
		PublishedAt:         item.PublishedAt,
		Title:               item.Title,
		Description:         item.Description,
		URL:                 item.URL,
		Views:               item.Metrics.Views,
		Likes:               item.Metrics.Likes,
		Comments:            item.Metrics.Comments,
		DurationSeconds:     item.DurationSeconds,
		TranscriptionStatus: db.TranscriptionPending,
	}
	if err := item.Payload.Validate(); err != nil {
		slog.Warn("payload does not match platform", "item_id", item.ID, "error", err)
	}
	if raw, err := item.Payload.Marshal(); err == nil {
		rec.Raw = raw
	}

	mediaURL := item.MediaURL
	if mediaURL == "" {
		mediaURL = item.URL
	}
	if mediaURL != "" {
		rec.MediaURL = &mediaURL
	}

	p.fetchThumbnail(ctx, item, &rec)

	if p.transcriber != nil && p.media != nil && p.extractor != nil && mediaURL != "" {
		p.transcribeItem(ctx, item.ID, mediaURL, cookies, &rec)
	}

	var inferred []string
	if p.inferrer != nil {
		_ = runStage(item.ID, StageInfer, func() error {
			in := inference.Input{
				Title:       item.Title,
				Description: item.Description,
				Platform:    string(item.Platform),
			}
			if rec.Transcription != nil {
				in.Transcript = *rec.Transcription
			}
			var err error
			inferred, err = p.inferrer.Infer(ctx, in)
			return err
		})
	}

	rec.LastSyncedAt = p.now().UTC()
	if err := runStage(item.ID, StagePersist, func() error {
		return p.store.UpsertContentItem(ctx, rec)
	}); err != nil {
		return fmt.Errorf("persist %s: %w", item.ID, err)
	}

	author := topics.AuthorTopics(item.Title, item.Description, item.Tags)
	_ = runStage(item.ID, StageAuthorTopics, func() error {
		return p.store.SetItemTopics(ctx, item.ID, db.TopicSourceAuthor, author)
	})
	_ = runStage(item.ID, StageAITopics, func() error {
		return p.store.SetItemTopics(ctx, item.ID, db.TopicSourceAI, inferred)
	})

	slog.Info("item enriched",
		"item_id", item.ID,
		"transcription_status", rec.TranscriptionStatus,
		"author_topics", len(author),
		"ai_topics", len(inferred))
	return nil
}

func (p *Pipeline) fetchThumbnail(ctx context.Context, item platform.Item, rec *db.ContentItem) {
	if p.media == nil || p.cfg.AssetDir == "" || item.URL == "" {
		return
	}
	_ = runStage(item.ID, StageThumbnail, func() error {
		dir := filepath.Join(p.cfg.AssetDir, string(item.Platform))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		name := filename.SanitizeOr(item.NativeID, item.ID)
		path, err := p.media.FetchThumbnail(ctx, item.URL, dir, name)
		if err != nil {
			return err
		}
		rec.ThumbnailPath = &path
		return nil
	})
}

// transcribeItem runs download, audio extraction, and transcription inside a
// workspace that is always removed.
func (p *Pipeline) transcribeItem(ctx context.Context, itemID, mediaURL, cookies string, rec *db.ContentItem) {
	if err := os.MkdirAll(p.cfg.SpoolDir, 0o755); err != nil {
		slog.Warn("spool dir unavailable", "dir", p.cfg.SpoolDir, "error", err)
		rec.TranscriptionStatus = db.TranscriptionError
		return
	}
	work, err := os.MkdirTemp(p.cfg.SpoolDir, "item-*")
	if err != nil {
		slog.Warn("create item workspace", "error", err)
		rec.TranscriptionStatus = db.TranscriptionError
		return
	}
	defer func() {
		if err := os.RemoveAll(work); err != nil {
			slog.Warn("remove item workspace", "dir", work, "error", err)
		}
	}()

	var mediaPath, audioPath string
	if err := runStage(itemID, StageDownload, func() error {
		var err error
		mediaPath, err = p.media.DownloadMedia(ctx, mediaURL, work, cookies)
		if err == nil {
			if fi, statErr := os.Stat(mediaPath); statErr == nil {
				slog.Debug("media downloaded", "item_id", itemID, "size", humanize.Bytes(uint64(fi.Size())))
			}
		}
		return err
	}); err != nil {
		rec.TranscriptionStatus = db.TranscriptionError
		return
	}

	if err := runStage(itemID, StageAudio, func() error {
		var err error
		audioPath, err = p.extractor.ExtractAudio(ctx, mediaPath, work)
		return err
	}); err != nil {
		rec.TranscriptionStatus = db.TranscriptionError
		return
	}
	rec.TranscriptionStatus = db.TranscriptionAudioReady

	if err := runStage(itemID, StageTranscribe, func() error {
		text, err := p.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			return err
		}
		rec.Transcription = &text
		return nil
	}); err != nil {
		rec.TranscriptionStatus = db.TranscriptionError
		return
	}
	rec.TranscriptionStatus = db.TranscriptionCompleted
}

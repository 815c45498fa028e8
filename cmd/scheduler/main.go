package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"thirdcoast.systems/scout/cmd/scheduler/internal/status"
	"thirdcoast.systems/scout/internal/application"
	"thirdcoast.systems/scout/internal/config"
	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/ingest"
	"thirdcoast.systems/scout/internal/jobs"
	"thirdcoast.systems/scout/internal/logging"
	"thirdcoast.systems/scout/internal/platform/ytdl"
	"thirdcoast.systems/scout/internal/topicgraph"
	"thirdcoast.systems/scout/internal/transcribe"
	"thirdcoast.systems/scout/pkg/ffmpeg"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(conf.LogLevel, conf.LogFormat)

	slog.Info("Starting scheduler service")

	lock, err := acquireSpoolLock(conf.SpoolDir)
	if err != nil {
		slog.Error("failed to lock spool dir", "dir", conf.SpoolDir, "error", err)
		os.Exit(1)
	}
	defer lock.Unlock()

	workDir := filepath.Join(conf.SpoolDir, "work")
	for _, dir := range []string{workDir, conf.AssetDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	pool, err := application.OpenDBPoolWithRetry(ctx, *conf)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	dbc, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		slog.Error("failed to create database connection", "error", err)
		os.Exit(1)
	}
	defer dbc.Close()

	comps, err := application.NewComponents(*conf, dbc)
	if err != nil {
		slog.Error("failed to initialize components", "error", err)
		os.Exit(1)
	}

	updateCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	if err := comps.YtDlp.Update(updateCtx); err != nil {
		slog.Warn("failed to update yt-dlp", "error", err)
	} else {
		slog.Info("yt-dlp updated successfully")
	}
	cancel()

	if w, ok := comps.Transcriber.(*transcribe.Whisper); ok {
		w.LogStartupInfo()
	}

	progress := jobs.NewProgressMap()

	var inferrer ingest.TopicInferrer
	if comps.Inference != nil {
		inferrer = comps.Inference
	}
	pipeline := ingest.NewPipeline(
		ingest.PipelineConfig{SpoolDir: workDir, AssetDir: conf.AssetDir},
		dbc,
		ytdl.NewMedia(comps.YtDlp),
		ffmpeg.NewExtractor(conf.FFmpegPath),
		comps.Transcriber,
		inferrer,
	)
	orchestrator := ingest.NewOrchestrator(dbc, pipeline, progress)

	executor := jobs.NewExecutor(jobs.ExecutorConfig{
		DefaultLookback: time.Duration(conf.DefaultLookbackDays) * 24 * time.Hour,
		ConfigErr:       comps.ConfigErr,
	}, dbc, comps.Registry, orchestrator, comps.Vault, progress)
	executor.OnInitialScrape(comps.InitialScrapeHook())

	wake := make(chan struct{}, 1)
	loop := jobs.NewLoop(jobs.LoopConfig{
		PollInterval: time.Duration(conf.PollIntervalSeconds) * time.Second,
		FailureDelay: time.Duration(conf.FailureDelaySeconds) * time.Second,
	}, dbc, executor).WithWake(wake)

	graphCache := db.NewGraphCache(dbc)
	server := status.NewServer(status.Options{
		DefaultLookbackDays: conf.DefaultLookbackDays,
		InitialLookbackDays: conf.InitialLookbackDays,
	}, dbc, dbc, graphCache, progress, loop)

	root := suture.New("scout-scheduler", suture.Spec{
		EventHook: (&sutureslog.Handler{Logger: logger}).MustHook(),
		Timeout:   10 * time.Second,
	})
	root.Add(loop)
	root.Add(&listener{dsn: conf.DatabaseDSN, channel: db.ChannelScrapeJobs, onNotify: signalOn(wake)})
	root.Add(&listener{dsn: conf.DatabaseDSN, channel: db.ChannelTopicGraphs, onNotify: func(ctx context.Context, tenantID string) {
		if err := graphCache.Reload(ctx, tenantID); err != nil {
			slog.Warn("graph cache reload failed", "tenant_id", tenantID, "error", err)
		}
	}})
	if conf.GraphRefreshMinutes > 0 {
		root.Add(topicgraph.NewRefresher(comps.Graphs, dbc, time.Duration(conf.GraphRefreshMinutes)*time.Minute))
	}
	if conf.StatusPort > 0 {
		root.Add(status.NewService(server, conf.StatusPort))
	}

	if err := root.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("scheduler stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("Scheduler service stopping")
}

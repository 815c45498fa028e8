package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"thirdcoast.systems/scout/internal/config"
	"thirdcoast.systems/scout/internal/credentials"
	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/discovery"
	"thirdcoast.systems/scout/internal/inference"
	"thirdcoast.systems/scout/internal/jobs"
	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/internal/platform/ytdl"
	"thirdcoast.systems/scout/internal/suggest"
	"thirdcoast.systems/scout/internal/topicgraph"
	"thirdcoast.systems/scout/internal/transcribe"
	"thirdcoast.systems/scout/pkg/ytdlp"
)

// Components are the collaborators shared by the scheduler and scoutctl.
// Optional services are nil when their configuration is absent.
type Components struct {
	DB       *db.DatabaseConnection
	Vault    *credentials.Vault
	YtDlp    *ytdlp.Client
	Fetcher  *ytdl.Fetcher
	Registry platform.Registry
	Graphs   *topicgraph.Service

	Inference   *inference.Client
	Transcriber transcribe.Transcriber
	Suggest     *suggest.Loop

	// ConfigErr is set when the configuration cannot run jobs at all.
	ConfigErr *jobs.ConfigurationError
}

func NewComponents(conf config.Config, dbc *db.DatabaseConnection) (*Components, error) {
	sealer, err := InitCredentialSealer(conf)
	if err != nil {
		return nil, err
	}
	if sealer == nil {
		slog.Warn("CREDENTIALS_KEY not set; stored platform credentials are unavailable")
	}

	client := ytdlp.New()
	if conf.YtDlpPath != "" {
		client.Path = conf.YtDlpPath
	}
	fetcher := ytdl.NewFetcher(client, 0)

	c := &Components{
		DB:      dbc,
		Vault:   credentials.NewVault(dbc, sealer),
		YtDlp:   client,
		Fetcher: fetcher,
		Registry: platform.Registry{
			platform.YouTube:   fetcher,
			platform.TikTok:    fetcher,
			platform.Instagram: fetcher,
		},
		Graphs: topicgraph.NewService(dbc, GraphParams(conf)),
	}

	c.Transcriber, err = transcribe.FromConfig(conf)
	switch {
	case errors.Is(err, transcribe.ErrAPIKeyNotSet):
		c.ConfigErr = &jobs.ConfigurationError{Reason: "OPENAI_API_KEY is required when TRANSCRIBER=openai"}
		slog.Error("transcription misconfigured; jobs will fail", "error", err)
	case err != nil:
		return nil, fmt.Errorf("transcriber: %w", err)
	}

	chat, err := inference.NewOpenAIChat(conf.OpenAIAPIKey, conf.OpenAIModel)
	switch {
	case errors.Is(err, inference.ErrAPIKeyNotSet):
		slog.Warn("OPENAI_API_KEY not set; topic inference and channel suggestions are disabled")
	case err != nil:
		return nil, fmt.Errorf("inference: %w", err)
	default:
		c.Inference = inference.New(chat.Complete, inference.NewTokenBudget(conf.InferenceMaxTokens))
	}

	if c.Inference != nil {
		scfg, err := SuggestConfig(conf)
		if err != nil {
			return nil, err
		}
		finder := discovery.New(fetcher, conf.DiscoveryRatePerMin)
		c.Suggest = suggest.New(scfg, dbc, c.Inference, finder)
	}
	return c, nil
}

// InitialScrapeHook rebuilds the tenant's graph when an initial scrape
// completes, then runs a suggestion pass if suggestions are enabled.
func (c *Components) InitialScrapeHook() jobs.AfterInitialScrape {
	if c.Suggest != nil {
		return c.Suggest.AfterInitialScrape(c.Graphs)
	}
	return func(ctx context.Context, tenantID string, p platform.Platform) {
		if _, err := c.Graphs.Rebuild(ctx, tenantID); err != nil {
			slog.Error("graph rebuild after initial scrape failed", "tenant_id", tenantID, "error", err)
		}
	}
}

func GraphParams(conf config.Config) topicgraph.Params {
	p := topicgraph.DefaultParams()
	g := conf.Graph
	if g.MinimumSampleSize > 0 {
		p.MinimumSampleSize = g.MinimumSampleSize
	}
	p.RegularizationWeight = g.RegularizationWeight
	p.WeightViews = g.WeightViews
	p.WeightLikes = g.WeightLikes
	p.WeightComments = g.WeightComments
	p.WeightDuration = g.WeightDuration
	return p
}

func SuggestConfig(conf config.Config) (suggest.Config, error) {
	sel, err := topicgraph.SelectorByName(conf.Suggest.Selector)
	if err != nil {
		return suggest.Config{}, err
	}
	return suggest.Config{
		TopicCount:      conf.Suggest.TopicCount,
		QueriesPerTopic: conf.Suggest.QueriesPerTopic,
		ResultsPerQuery: conf.Suggest.ResultsPerQuery,
		Selector:        sel,
	}, nil
}

// Package ytdl implements the platform collaborators on top of yt-dlp:
// channel listing, media download, and thumbnail capture.
package ytdl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/pkg/ytdlp"
)

// Fetcher lists a channel's recent uploads with yt-dlp. One Fetcher serves
// every platform yt-dlp has a user-page extractor for.
type Fetcher struct {
	client *ytdlp.Client
	// MaxItems caps a single listing. Zero means no cap.
	MaxItems int
	now      func() time.Time
}

func NewFetcher(client *ytdlp.Client, maxItems int) *Fetcher {
	return &Fetcher{client: client, MaxItems: maxItems, now: time.Now}
}

func (f *Fetcher) Fetch(ctx context.Context, req platform.FetchRequest) (*platform.FetchResult, error) {
	if req.Handle == "" {
		return nil, fmt.Errorf("fetch: handle is required")
	}

	client := f.client
	if req.Cookies != "" {
		client = client.WithCookies(req.Cookies)
	}

	var since time.Time
	if req.Lookback > 0 {
		since = f.now().Add(-req.Lookback)
	}

	listURL := platform.ListingURL(req.Platform, req.Handle)
	info, err := client.ListChannel(ctx, listURL, ytdlp.ListOptions{Since: since, Limit: f.MaxItems})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", listURL, err)
	}

	res := &platform.FetchResult{Profile: profileFromInfo(req.Platform, req.Handle, info)}
	skipped := 0
	for _, entry := range info.DecodeEntries() {
		item, ok := itemFromInfo(req.Platform, entry)
		if !ok {
			skipped++
			continue
		}
		if !since.IsZero() && item.PublishedAt != nil && item.PublishedAt.Before(since.Truncate(24*time.Hour)) {
			continue
		}
		res.Items = append(res.Items, item)
	}

	slog.Info("fetched channel listing",
		"platform", req.Platform,
		"handle", req.Handle,
		"items", len(res.Items),
		"skipped", skipped)
	return res, nil
}

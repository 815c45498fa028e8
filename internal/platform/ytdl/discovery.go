package ytdl

import (
	"context"
	"fmt"

	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/pkg/ytdlp"
)

// searchPrefixes maps platforms to yt-dlp search extractors.
var searchPrefixes = map[platform.Platform]string{
	platform.YouTube: "ytsearch",
}

// Profile fetches channel metadata without listing uploads.
func (f *Fetcher) Profile(ctx context.Context, p platform.Platform, handle string) (*platform.Profile, error) {
	if handle == "" {
		return nil, fmt.Errorf("profile: handle is required")
	}
	url := platform.ProfileURL(p, handle)
	info, err := f.client.Profile(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", url, err)
	}
	prof := profileFromInfo(p, handle, info)
	return &prof, nil
}

// Search returns the author profile URLs of the top content results for query,
// in result order. Results without an author URL are dropped.
func (f *Fetcher) Search(ctx context.Context, p platform.Platform, query string, limit int) ([]string, error) {
	prefix, ok := searchPrefixes[p]
	if !ok {
		return nil, fmt.Errorf("search is not supported for %s", p)
	}
	entries, err := f.client.Search(ctx, prefix, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if u := authorURL(e); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func authorURL(e *ytdlp.Info) string {
	if e.UploaderURL != "" {
		return e.UploaderURL
	}
	if e.ChannelURL != "" {
		return e.ChannelURL
	}
	if e.ChannelID != "" {
		return "https://youtube.com/channel/" + e.ChannelID
	}
	return ""
}

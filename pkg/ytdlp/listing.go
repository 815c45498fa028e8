package ytdlp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ListOptions bounds a channel listing.
type ListOptions struct {
	// Since drops entries uploaded before this day. Zero means no bound.
	Since time.Time
	// Limit caps the number of entries considered. Zero means no cap.
	Limit int
}

// ListChannel resolves a channel or profile URL and returns the channel
// document with fully extracted entries. Listing stops at the first entry
// older than opts.Since since channel feeds are ordered newest first.
func (c *Client) ListChannel(ctx context.Context, url string, opts ListOptions) (*Info, error) {
	args := []string{"--ignore-errors", "--ignore-no-formats-error", "--lazy-playlist"}
	if !opts.Since.IsZero() {
		day := opts.Since.UTC().Format("20060102")
		args = append(args,
			"--dateafter", day,
			"--break-match-filters", "upload_date>="+day,
		)
	}
	if opts.Limit > 0 {
		args = append(args, "--playlist-items", "1:"+strconv.Itoa(opts.Limit))
	}
	return c.GetInfo(ctx, url, args...)
}

// Profile fetches channel-level metadata without enumerating uploads.
func (c *Client) Profile(ctx context.Context, url string) (*Info, error) {
	return c.GetInfo(ctx, url, "--flat-playlist", "--playlist-items", "0")
}

// Search runs a yt-dlp search prefix such as "ytsearch" and returns the
// flat result entries.
func (c *Client) Search(ctx context.Context, prefix string, query string, limit int) ([]*Info, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("ytdlp: query is required")
	}
	if limit <= 0 {
		limit = 5
	}
	if prefix == "" {
		prefix = "ytsearch"
	}
	target := fmt.Sprintf("%s%d:%s", prefix, limit, query)

	info, err := c.GetInfo(ctx, target, "--flat-playlist")
	if err != nil {
		return nil, err
	}
	return info.DecodeEntries(), nil
}

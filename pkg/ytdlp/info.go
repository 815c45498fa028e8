package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Info models the subset of yt-dlp's JSON output used for channel and
// content tracking. The full document is preserved in Raw.
type Info struct {
	ID                   string            `json:"id"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	WebpageURL           string            `json:"webpage_url"`
	URL                  string            `json:"url"`
	Extractor            string            `json:"extractor"`
	ExtractorKey         string            `json:"extractor_key"`
	Uploader             string            `json:"uploader"`
	UploaderID           string            `json:"uploader_id"`
	UploaderURL          string            `json:"uploader_url"`
	Channel              string            `json:"channel"`
	ChannelID            string            `json:"channel_id"`
	ChannelURL           string            `json:"channel_url"`
	ChannelFollowerCount *int64            `json:"channel_follower_count"`
	Timestamp            *int64            `json:"timestamp"`
	UploadDate           string            `json:"upload_date"`
	Duration             *float64          `json:"duration"`
	ViewCount            *int64            `json:"view_count"`
	LikeCount            *int64            `json:"like_count"`
	CommentCount         *int64            `json:"comment_count"`
	Tags                 []string          `json:"tags"`
	Categories           []string          `json:"categories"`
	Thumbnail            string            `json:"thumbnail"`
	Thumbnails           []Thumbnail       `json:"thumbnails"`
	Entries              []json.RawMessage `json:"entries,omitempty"`
	Raw                  json.RawMessage   `json:"-"`
}

type Thumbnail struct {
	URL    string `json:"url"`
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// PublishedAt prefers the epoch timestamp and falls back to upload_date.
func (i *Info) PublishedAt() *time.Time {
	if i.Timestamp != nil && *i.Timestamp > 0 {
		t := time.Unix(*i.Timestamp, 0).UTC()
		return &t
	}
	if len(i.UploadDate) == 8 {
		if t, err := time.Parse("20060102", i.UploadDate); err == nil {
			return &t
		}
	}
	return nil
}

// BestThumbnail returns the explicit thumbnail or the widest listed one.
func (i *Info) BestThumbnail() string {
	if strings.TrimSpace(i.Thumbnail) != "" {
		return i.Thumbnail
	}
	best := ""
	bestWidth := -1
	for _, th := range i.Thumbnails {
		if th.URL != "" && th.Width > bestWidth {
			best, bestWidth = th.URL, th.Width
		}
	}
	return best
}

// DecodeEntries parses playlist entries. Entries that fail to decode or are
// null (unavailable items) are skipped.
func (i *Info) DecodeEntries() []*Info {
	out := make([]*Info, 0, len(i.Entries))
	for _, raw := range i.Entries {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}
		entry := &Info{Raw: append([]byte(nil), raw...)}
		if err := json.Unmarshal(raw, entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func parseInfo(stdout []byte) (*Info, error) {
	raw := bytes.TrimSpace(stdout)
	// Some extractors print warnings before the document; use the last line.
	if idx := bytes.LastIndexByte(raw, '\n'); idx >= 0 && !json.Valid(raw) {
		raw = raw[idx+1:]
	}
	info := &Info{Raw: append([]byte(nil), raw...)}
	if err := json.Unmarshal(raw, info); err != nil {
		return nil, fmt.Errorf("ytdlp: parse json: %w", err)
	}
	return info, nil
}

// GetInfo runs yt-dlp in "metadata only" mode and parses its JSON output.
// It uses: --dump-single-json --skip-download
func (c *Client) GetInfo(ctx context.Context, url string, extraArgs ...string) (*Info, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("ytdlp: url is required")
	}

	args := []string{"--dump-single-json", "--skip-download", "--no-warnings"}
	args = append(args, extraArgs...)
	args = append(args, url)

	stdout, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseInfo(stdout)
}

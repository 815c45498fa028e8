// Package platform defines the platform-neutral content model shared by the
// fetchers, the enrichment pipeline, and channel discovery.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Platform string

const (
	YouTube   Platform = "youtube"
	TikTok    Platform = "tiktok"
	Instagram Platform = "instagram"
)

var All = []Platform{YouTube, TikTok, Instagram}

func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case YouTube, TikTok, Instagram:
		return p, nil
	}
	return "", fmt.Errorf("unsupported platform %q", s)
}

func (p Platform) String() string { return string(p) }

// Metrics are the engagement counters refreshed on every sighting.
type Metrics struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
}

// Item is one piece of published content as returned by a fetcher.
type Item struct {
	// ID is platform-qualified, e.g. "youtube:dQw4w9WgXcQ".
	ID              string
	NativeID        string
	Platform        Platform
	PublishedAt     *time.Time
	Title           string
	Description     string
	URL             string
	Metrics         Metrics
	DurationSeconds *int32
	MediaURL        string
	ThumbnailURL    string
	Tags            []string
	Payload         Payload
}

// Profile describes a channel as reported by the platform.
type Profile struct {
	Platform      Platform
	ExternalID    string
	Handle        string
	Title         string
	URL           string
	AvatarURL     string
	Description   string
	FollowerCount *int64
}

type FetchRequest struct {
	Platform Platform
	Handle   string
	Lookback time.Duration
	// Cookies is optional Netscape cookies.txt content.
	Cookies string
}

type FetchResult struct {
	Profile Profile
	Items   []Item
}

// Fetcher lists a channel's recent content.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}

// Registry routes fetch requests to the fetcher for their platform.
type Registry map[Platform]Fetcher

func (r Registry) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	f, ok := r[req.Platform]
	if !ok || f == nil {
		return nil, fmt.Errorf("no fetcher registered for platform %q", req.Platform)
	}
	return f.Fetch(ctx, req)
}

// Payload is the platform-specific remainder of an item, stored alongside the
// normalized fields. Exactly one of the platform members is set.
type Payload struct {
	Platform  Platform          `json:"platform"`
	YouTube   *YouTubePayload   `json:"youtube,omitempty"`
	TikTok    *TikTokPayload    `json:"tiktok,omitempty"`
	Instagram *InstagramPayload `json:"instagram,omitempty"`
}

type YouTubePayload struct {
	ChannelID  string   `json:"channel_id,omitempty"`
	Categories []string `json:"categories,omitempty"`
	LiveStatus string   `json:"live_status,omitempty"`
	IsShort    bool     `json:"is_short,omitempty"`
}

type TikTokPayload struct {
	Track       string `json:"track,omitempty"`
	Artist      string `json:"artist,omitempty"`
	RepostCount int64  `json:"repost_count,omitempty"`
}

type InstagramPayload struct {
	ProductType string `json:"product_type,omitempty"`
	Location    string `json:"location,omitempty"`
}

func (p Payload) Validate() error {
	set := 0
	if p.YouTube != nil {
		set++
		if p.Platform != YouTube {
			return fmt.Errorf("payload: youtube member on %s payload", p.Platform)
		}
	}
	if p.TikTok != nil {
		set++
		if p.Platform != TikTok {
			return fmt.Errorf("payload: tiktok member on %s payload", p.Platform)
		}
	}
	if p.Instagram != nil {
		set++
		if p.Platform != Instagram {
			return fmt.Errorf("payload: instagram member on %s payload", p.Platform)
		}
	}
	if set > 1 {
		return fmt.Errorf("payload: %d platform members set", set)
	}
	return nil
}

// Marshal encodes the payload for storage.
func (p Payload) Marshal() (json.RawMessage, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

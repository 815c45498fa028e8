package ytdl

import (
	"encoding/json"
	"strings"

	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/pkg/ytdlp"
)

// extras are fields only some extractors emit.
type extras struct {
	LiveStatus  string `json:"live_status"`
	Track       string `json:"track"`
	Artist      string `json:"artist"`
	RepostCount *int64 `json:"repost_count"`
	ProductType string `json:"product_type"`
	Location    string `json:"location"`
	Avatar      string `json:"uploader_avatar"`
}

func profileFromInfo(p platform.Platform, handle string, info *ytdlp.Info) platform.Profile {
	title := firstNonEmpty(info.Channel, info.Uploader, info.Title, handle)
	url := firstNonEmpty(info.ChannelURL, info.UploaderURL, info.WebpageURL, platform.ProfileURL(p, handle))

	var ex extras
	_ = json.Unmarshal(info.Raw, &ex)

	return platform.Profile{
		Platform:      p,
		ExternalID:    firstNonEmpty(info.ChannelID, info.UploaderID, info.ID),
		Handle:        platform.NormalizeHandle(p, handle),
		Title:         platform.CleanText(title),
		URL:           url,
		AvatarURL:     firstNonEmpty(ex.Avatar, info.BestThumbnail()),
		Description:   platform.CleanText(info.Description),
		FollowerCount: info.ChannelFollowerCount,
	}
}

func itemFromInfo(p platform.Platform, info *ytdlp.Info) (platform.Item, bool) {
	id := strings.TrimSpace(info.ID)
	if id == "" {
		return platform.Item{}, false
	}

	url := firstNonEmpty(info.WebpageURL, info.URL)
	item := platform.Item{
		ID:           platform.ItemID(p, id),
		NativeID:     id,
		Platform:     p,
		PublishedAt:  info.PublishedAt(),
		Title:        platform.CleanText(info.Title),
		Description:  platform.CleanText(info.Description),
		URL:          url,
		MediaURL:     url,
		ThumbnailURL: info.BestThumbnail(),
		Tags:         cleanTags(info.Tags),
		Metrics: platform.Metrics{
			Views:    deref(info.ViewCount),
			Likes:    deref(info.LikeCount),
			Comments: deref(info.CommentCount),
		},
	}
	if info.Duration != nil && *info.Duration > 0 {
		d := int32(*info.Duration)
		item.DurationSeconds = &d
	}

	var ex extras
	_ = json.Unmarshal(info.Raw, &ex)

	item.Payload = platform.Payload{Platform: p}
	switch p {
	case platform.YouTube:
		item.Payload.YouTube = &platform.YouTubePayload{
			ChannelID:  info.ChannelID,
			Categories: info.Categories,
			LiveStatus: ex.LiveStatus,
			IsShort:    strings.Contains(url, "/shorts/"),
		}
	case platform.TikTok:
		item.Payload.TikTok = &platform.TikTokPayload{
			Track:       ex.Track,
			Artist:      ex.Artist,
			RepostCount: deref(ex.RepostCount),
		}
	case platform.Instagram:
		item.Payload.Instagram = &platform.InstagramPayload{
			ProductType: ex.ProductType,
			Location:    ex.Location,
		}
	}
	return item, true
}

func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

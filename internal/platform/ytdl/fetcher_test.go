package ytdl

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/pkg/ytdlp"
)

const channelListing = `{
  "id": "UCabcdefghijklmnopqrstuv",
  "channel": "Bea Bakes",
  "channel_id": "UCabcdefghijklmnopqrstuv",
  "channel_url": "https://www.youtube.com/channel/UCabcdefghijklmnopqrstuv",
  "channel_follower_count": 1200,
  "description": "<p>Bread &amp; more</p>",
  "entries": [
    {"id": "new1", "title": "Focaccia #bread", "webpage_url": "https://www.youtube.com/watch?v=new1",
     "upload_date": "20240308", "duration": 125.4, "view_count": 1000, "like_count": 50, "comment_count": 7,
     "tags": ["baking", " "], "categories": ["Howto & Style"], "live_status": "not_live"},
    {"id": "old1", "title": "Old", "upload_date": "20230101", "view_count": 5},
    {"title": "missing id"}
  ]
}`

func TestFetcher_MapsListing(t *testing.T) {
	var args []string
	client := ytdlp.New().WithExec(func(ctx context.Context, name string, a ...string) ([]byte, []byte, error) {
		args = a
		return []byte(channelListing), nil, nil
	})

	f := NewFetcher(client, 100)
	f.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }

	res, err := f.Fetch(context.Background(), platform.FetchRequest{
		Platform: platform.YouTube,
		Handle:   "@BeaBakes",
		Lookback: 7 * 24 * time.Hour,
		Cookies:  "# Netscape HTTP Cookie File\n",
	})
	require.NoError(t, err)
	require.Equal(t, "https://youtube.com/@beabakes/videos", args[len(args)-1])
	require.Contains(t, strings.Join(args, " "), "--cookies")

	require.Equal(t, "Bea Bakes", res.Profile.Title)
	require.Equal(t, "beabakes", res.Profile.Handle)
	require.Equal(t, "Bread & more", res.Profile.Description)
	require.Equal(t, int64(1200), *res.Profile.FollowerCount)

	require.Len(t, res.Items, 1)
	item := res.Items[0]
	require.Equal(t, "youtube:new1", item.ID)
	require.Equal(t, platform.Metrics{Views: 1000, Likes: 50, Comments: 7}, item.Metrics)
	require.Equal(t, int32(125), *item.DurationSeconds)
	require.Equal(t, []string{"baking"}, item.Tags)
	require.Equal(t, "not_live", item.Payload.YouTube.LiveStatus)
	require.NoError(t, item.Payload.Validate())
}

func TestFetcher_TikTokPayload(t *testing.T) {
	client := ytdlp.New().WithExec(func(ctx context.Context, name string, a ...string) ([]byte, []byte, error) {
		return []byte(`{"id":"dancer","uploader":"dancer","entries":[{"id":"7001","title":"move","track":"song","artist":"band","repost_count":3,"timestamp":1710000000}]}`), nil, nil
	})

	res, err := NewFetcher(client, 0).Fetch(context.Background(), platform.FetchRequest{Platform: platform.TikTok, Handle: "dancer"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, "tiktok:7001", res.Items[0].ID)
	require.Equal(t, &platform.TikTokPayload{Track: "song", Artist: "band", RepostCount: 3}, res.Items[0].Payload.TikTok)
	require.Nil(t, res.Items[0].Payload.YouTube)
}

func TestFetcher_RequiresHandle(t *testing.T) {
	_, err := NewFetcher(ytdlp.New(), 0).Fetch(context.Background(), platform.FetchRequest{Platform: platform.YouTube})
	require.Error(t, err)
}

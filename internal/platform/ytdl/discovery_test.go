package ytdl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/pkg/ytdlp"
)

func TestFetcher_SearchCollectsAuthorURLs(t *testing.T) {
	var target string
	client := ytdlp.New().WithExec(func(ctx context.Context, name string, a ...string) ([]byte, []byte, error) {
		target = a[len(a)-1]
		return []byte(`{"entries":[
			{"id":"v1","uploader_url":"https://www.youtube.com/@SourdoughSam"},
			{"id":"v2","channel_id":"UCabcdefghijklmnopqrstuv"},
			{"id":"v3"}
		]}`), nil, nil
	})

	urls, err := NewFetcher(client, 0).Search(context.Background(), platform.YouTube, "sourdough starter", 3)
	require.NoError(t, err)
	require.Equal(t, "ytsearch3:sourdough starter", target)
	require.Equal(t, []string{
		"https://www.youtube.com/@SourdoughSam",
		"https://youtube.com/channel/UCabcdefghijklmnopqrstuv",
	}, urls)
}

func TestFetcher_SearchUnsupportedPlatform(t *testing.T) {
	_, err := NewFetcher(ytdlp.New(), 0).Search(context.Background(), platform.Instagram, "x", 3)
	require.ErrorContains(t, err, "not supported")
}

func TestFetcher_Profile(t *testing.T) {
	var target string
	client := ytdlp.New().WithExec(func(ctx context.Context, name string, a ...string) ([]byte, []byte, error) {
		target = a[len(a)-1]
		return []byte(`{"id":"UCx","channel":"Sam Bakes","channel_follower_count":42}`), nil, nil
	})

	prof, err := NewFetcher(client, 0).Profile(context.Background(), platform.YouTube, "@SourdoughSam")
	require.NoError(t, err)
	require.Equal(t, "https://youtube.com/@sourdoughsam", target)
	require.Equal(t, "Sam Bakes", prof.Title)
	require.Equal(t, "sourdoughsam", prof.Handle)
	require.Equal(t, int64(42), *prof.FollowerCount)
}

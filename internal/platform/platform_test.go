package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemID_RoundTrip(t *testing.T) {
	id := ItemID(YouTube, "dQw4w9WgXcQ")
	require.Equal(t, "youtube:dQw4w9WgXcQ", id)

	p, native, err := SplitItemID(id)
	require.NoError(t, err)
	require.Equal(t, YouTube, p)
	require.Equal(t, "dQw4w9WgXcQ", native)

	_, _, err = SplitItemID("nocolon")
	require.Error(t, err)
	_, _, err = SplitItemID("myspace:123")
	require.Error(t, err)
}

func TestNormalizeHandle(t *testing.T) {
	require.Equal(t, "bakingwithbea", NormalizeHandle(TikTok, " @BakingWithBea "))
	require.Equal(t, "UCabcdefghijklmnopqrstuv", NormalizeHandle(YouTube, "UCabcdefghijklmnopqrstuv"))
	require.Equal(t, "chef", NormalizeHandle(Instagram, "Chef/"))
}

func TestProfileURL(t *testing.T) {
	require.Equal(t, "https://youtube.com/@chef", ProfileURL(YouTube, "@Chef"))
	require.Equal(t, "https://youtube.com/channel/UCabcdefghijklmnopqrstuv", ProfileURL(YouTube, "UCabcdefghijklmnopqrstuv"))
	require.Equal(t, "https://youtube.com/@chef/videos", ListingURL(YouTube, "chef"))
	require.Equal(t, "https://tiktok.com/@chef", ListingURL(TikTok, "chef"))
	require.Equal(t, "https://instagram.com/chef", ProfileURL(Instagram, "chef"))
}

func TestParseProfileURL(t *testing.T) {
	cases := []struct {
		in       string
		platform Platform
		handle   string
	}{
		{"https://www.youtube.com/@SomeChef/videos", YouTube, "somechef"},
		{"https://m.youtube.com/channel/UCabcdefghijklmnopqrstuv", YouTube, "UCabcdefghijklmnopqrstuv"},
		{"tiktok.com/@dancer?lang=en", TikTok, "dancer"},
		{"https://www.tiktok.com/@dancer/video/123", TikTok, "dancer"},
		{"https://instagram.com/painter/", Instagram, "painter"},
	}
	for _, tc := range cases {
		p, h, err := ParseProfileURL(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.platform, p, tc.in)
		require.Equal(t, tc.handle, h, tc.in)
	}

	for _, bad := range []string{"", "https://example.com/@x", "https://instagram.com/p/abc", "https://youtube.com/watch?v=1"} {
		_, _, err := ParseProfileURL(bad)
		require.Error(t, err, bad)
	}
}

func TestPayload_Validate(t *testing.T) {
	ok := Payload{Platform: TikTok, TikTok: &TikTokPayload{Track: "song"}}
	raw, err := ok.Marshal()
	require.NoError(t, err)
	require.JSONEq(t, `{"platform":"tiktok","tiktok":{"track":"song"}}`, string(raw))

	bad := Payload{Platform: YouTube, TikTok: &TikTokPayload{}}
	require.Error(t, bad.Validate())
}

func TestCleanText(t *testing.T) {
	in := "<b>New</b> recipe &amp; tips\r\n\r\n\r\n\r\nSubscribe!  "
	require.Equal(t, "New recipe & tips\n\nSubscribe!", CleanText(in))
}

type fakeFetcher struct{ got FetchRequest }

func (f *fakeFetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	f.got = req
	return &FetchResult{Profile: Profile{Handle: req.Handle}}, nil
}

func TestRegistry_Routes(t *testing.T) {
	yt := &fakeFetcher{}
	r := Registry{YouTube: yt}

	res, err := r.Fetch(context.Background(), FetchRequest{Platform: YouTube, Handle: "chef"})
	require.NoError(t, err)
	require.Equal(t, "chef", res.Profile.Handle)

	_, err = r.Fetch(context.Background(), FetchRequest{Platform: TikTok, Handle: "chef"})
	require.Error(t, err)
}

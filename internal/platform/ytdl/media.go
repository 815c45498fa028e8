package ytdl

import (
	"context"

	"thirdcoast.systems/scout/pkg/ytdlp"
)

// Media downloads item media and thumbnails.
type Media struct {
	client *ytdlp.Client
}

func NewMedia(client *ytdlp.Client) *Media {
	return &Media{client: client}
}

// DownloadMedia fetches the audio-bearing stream of url into dir.
func (m *Media) DownloadMedia(ctx context.Context, url, dir, cookies string) (string, error) {
	client := m.client
	if cookies != "" {
		client = client.WithCookies(cookies)
	}
	return client.DownloadMedia(ctx, url, dir, "media")
}

// FetchThumbnail stores the item thumbnail as <name>.jpg in dir.
func (m *Media) FetchThumbnail(ctx context.Context, url, dir, name string) (string, error) {
	return m.client.WriteThumbnail(ctx, url, dir, name)
}

package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DownloadMedia fetches the best audio-bearing stream of url into destDir as
// <name>.<ext> and returns the produced file path.
func (c *Client) DownloadMedia(ctx context.Context, url string, destDir string, name string, extraArgs ...string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(destDir) == "" {
		return "", fmt.Errorf("ytdlp: destDir is required")
	}
	if name == "" {
		name = "media"
	}

	args := []string{
		"-o", filepath.Join(destDir, name+".%(ext)s"),
		"--no-playlist",
		"--no-colors",
		"--no-part",
		"--format", "bestaudio/best",
		"--print", "after_move:filepath",
		"--no-simulate",
	}
	args = append(args, extraArgs...)
	args = append(args, url)

	stdout, err := c.run(ctx, args)
	if err != nil {
		return "", err
	}

	if p := lastLine(stdout); p != "" {
		if _, statErr := os.Stat(p); statErr == nil {
			return p, nil
		}
	}
	return findProduced(destDir, name)
}

// WriteThumbnail downloads the thumbnail of url into destDir as <name>.jpg.
func (c *Client) WriteThumbnail(ctx context.Context, url string, destDir string, name string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(destDir) == "" {
		return "", fmt.Errorf("ytdlp: destDir is required")
	}

	args := []string{
		"--skip-download",
		"--no-playlist",
		"--write-thumbnail",
		"--convert-thumbnails", "jpg",
		"-o", filepath.Join(destDir, name+".%(ext)s"),
		url,
	}
	if _, err := c.run(ctx, args); err != nil {
		return "", err
	}
	return findProduced(destDir, name)
}

func findProduced(dir, name string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, name+".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		return m, nil
	}
	return "", fmt.Errorf("ytdlp: no output produced for %s in %s", name, dir)
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

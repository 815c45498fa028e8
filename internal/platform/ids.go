package platform

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Well-known host aliases. Key: input host. Value: canonical host.
var canonicalHosts = map[string]string{
	"youtube.com":     "youtube.com",
	"www.youtube.com": "youtube.com",
	"m.youtube.com":   "youtube.com",
	"youtu.be":        "youtube.com",

	"tiktok.com":     "tiktok.com",
	"www.tiktok.com": "tiktok.com",
	"m.tiktok.com":   "tiktok.com",

	"instagram.com":     "instagram.com",
	"www.instagram.com": "instagram.com",
	"m.instagram.com":   "instagram.com",
}

var platformByHost = map[string]Platform{
	"youtube.com":   YouTube,
	"tiktok.com":    TikTok,
	"instagram.com": Instagram,
}

// ItemID qualifies a native content id with its platform.
func ItemID(p Platform, nativeID string) string {
	return string(p) + ":" + strings.TrimSpace(nativeID)
}

// SplitItemID is the inverse of ItemID.
func SplitItemID(id string) (Platform, string, error) {
	prefix, native, ok := strings.Cut(id, ":")
	if !ok || native == "" {
		return "", "", fmt.Errorf("malformed item id %q", id)
	}
	p, err := Parse(prefix)
	if err != nil {
		return "", "", err
	}
	return p, native, nil
}

// NormalizeHandle lowercases a handle and strips a leading "@". YouTube
// channel ids (UC...) keep their case since they are case-sensitive.
func NormalizeHandle(p Platform, handle string) string {
	h := strings.TrimSpace(handle)
	h = strings.TrimPrefix(h, "@")
	h = strings.TrimSuffix(h, "/")
	if p == YouTube && strings.HasPrefix(h, "UC") && len(h) == 24 {
		return h
	}
	return strings.ToLower(h)
}

// ProfileURL builds the canonical profile URL for a handle.
func ProfileURL(p Platform, handle string) string {
	h := NormalizeHandle(p, handle)
	switch p {
	case YouTube:
		if strings.HasPrefix(h, "UC") && len(h) == 24 {
			return "https://youtube.com/channel/" + h
		}
		return "https://youtube.com/@" + h
	case TikTok:
		return "https://tiktok.com/@" + h
	case Instagram:
		return "https://instagram.com/" + h
	}
	return ""
}

// ListingURL is the URL a fetcher enumerates for recent uploads.
func ListingURL(p Platform, handle string) string {
	if p == YouTube {
		return ProfileURL(p, handle) + "/videos"
	}
	return ProfileURL(p, handle)
}

// ParseProfileURL extracts the platform and normalized handle from a profile
// URL or a content URL that embeds the author (TikTok).
func ParseProfileURL(raw string) (Platform, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("missing url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Host == "" {
		if u, err = url.Parse("https://" + raw); err != nil {
			return "", "", err
		}
	}

	host := canonicalHost(u.Host)
	p, ok := platformByHost[host]
	if !ok {
		return "", "", fmt.Errorf("unrecognized profile host %q", host)
	}

	seg := firstPathSegment(u.Path)
	switch p {
	case YouTube:
		switch {
		case strings.HasPrefix(seg, "@"):
			return p, NormalizeHandle(p, seg), nil
		case seg == "channel" || seg == "c" || seg == "user":
			rest := firstPathSegment(strings.TrimPrefix(strings.TrimPrefix(u.Path, "/"), seg))
			if rest != "" {
				return p, NormalizeHandle(p, rest), nil
			}
		}
	case TikTok:
		if strings.HasPrefix(seg, "@") {
			return p, NormalizeHandle(p, seg), nil
		}
	case Instagram:
		switch seg {
		case "", "p", "reel", "reels", "explore", "stories":
		default:
			return p, NormalizeHandle(p, seg), nil
		}
	}
	return "", "", fmt.Errorf("no handle in url %q", raw)
}

func canonicalHost(hostport string) string {
	h := normalizeHost(hostport)
	if c, ok := canonicalHosts[h]; ok {
		return c
	}
	return h
}

func normalizeHost(hostport string) string {
	h := strings.TrimSpace(strings.ToLower(hostport))
	if h == "" {
		return ""
	}
	if strings.Contains(h, ":") {
		if parsed, err := url.Parse("//" + h); err == nil && parsed.Hostname() != "" {
			h = parsed.Hostname()
		}
	}
	return strings.TrimSuffix(h, ".")
}

func firstPathSegment(p string) string {
	p = strings.TrimPrefix(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	seg, _, _ := strings.Cut(p, "/")
	return strings.TrimSpace(seg)
}

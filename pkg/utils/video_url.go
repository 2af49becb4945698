package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// ValidateVideoURL checks that raw is an absolute http(s) URL.
func ValidateVideoURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("URL has no host: %s", raw)
	}
	return u, nil
}

// IsYouTubeURL reports whether the URL points at YouTube.
func IsYouTubeURL(u *url.URL) bool {
	host := strings.ToLower(u.Host)
	return strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be")
}

// VideoSlug derives a filesystem-safe name for a downloaded video. YouTube
// URLs use the video ID; anything else uses a short hash of the URL.
func VideoSlug(u *url.URL) string {
	if IsYouTubeURL(u) {
		if strings.Contains(u.Host, "youtu.be") {
			if id := strings.Trim(u.Path, "/"); id != "" {
				return "yt-" + id
			}
		}
		if v := u.Query().Get("v"); v != "" {
			return "yt-" + v
		}
		for _, prefix := range []string{"/embed/", "/shorts/", "/v/"} {
			if id := strings.TrimPrefix(u.Path, prefix); id != u.Path && id != "" {
				return "yt-" + id
			}
		}
	}

	sum := sha1.Sum([]byte(u.String()))
	return "url-" + hex.EncodeToString(sum[:])[:12]
}

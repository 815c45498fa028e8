// Package filename turns item identifiers and titles into safe file names.
package filename

import (
	"regexp"
	"strings"
)

var (
	unsafeRun = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	sepRun    = regexp.MustCompile(`[-_]{2,}`)
)

// DefaultMaxLen bounds names when the caller passes zero.
const DefaultMaxLen = 120

// Sanitize maps name onto [A-Za-z0-9._-], collapsing runs of separators and
// trimming leading dots and separators so the result is never hidden. The
// result is at most maxLen bytes and is empty only when name has no usable
// characters.
func Sanitize(name string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	s := unsafeRun.ReplaceAllString(strings.TrimSpace(name), "_")
	s = sepRun.ReplaceAllString(s, "_")
	s = strings.Trim(s, "._-")
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "._-")
	}
	return s
}

// SanitizeOr is Sanitize with a fallback for names that sanitize to nothing.
func SanitizeOr(name, fallback string) string {
	if s := Sanitize(name, 0); s != "" {
		return s
	}
	return Sanitize(fallback, 0)
}

// Package format renders durations and long text for terminal tables.
package format

import (
	"fmt"
	"unicode/utf8"
)

// Duration converts seconds to "M:SS" or "H:MM:SS".
func Duration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// DurationPtr formats a nullable duration, returning "-" for nil.
func DurationPtr(seconds *int32) string {
	if seconds == nil {
		return "-"
	}
	return Duration(int64(*seconds))
}

// Truncate shortens s to at most max runes, ending with an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

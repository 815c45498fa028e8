// Package topics normalizes topic labels and extracts author-provided ones.
package topics

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MaxLabelLength bounds a normalized label in runes.
const MaxLabelLength = 64

var (
	folder    = cases.Fold()
	hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
)

// Normalize folds a label to its canonical lowercase form. It returns "" for
// labels with no letters or digits.
func Normalize(label string) string {
	s := norm.NFKC.String(label)
	s = folder.String(s)
	s = strings.TrimLeft(strings.TrimSpace(s), "#")

	var b strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case r == '-' || r == '+' || r == '&':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	out := strings.Trim(b.String(), "-")

	if !strings.ContainsFunc(out, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) }) {
		return ""
	}
	if rs := []rune(out); len(rs) > MaxLabelLength {
		out = strings.TrimSpace(string(rs[:MaxLabelLength]))
	}
	return out
}

// NormalizeAll normalizes labels, dropping empties and later duplicates.
func NormalizeAll(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		n := Normalize(l)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Hashtags returns the hashtag bodies found in text, in order of appearance.
func Hashtags(text string) []string {
	matches := hashtagRe.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// AuthorTopics derives the author-sourced topic set: hashtags from the title
// and description first, then platform tags.
func AuthorTopics(title, description string, tags []string) []string {
	var raw []string
	raw = append(raw, Hashtags(title)...)
	raw = append(raw, Hashtags(description)...)
	raw = append(raw, tags...)
	return NormalizeAll(raw)
}

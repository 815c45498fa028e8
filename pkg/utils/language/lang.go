// Package language validates the spoken-language hints passed to
// transcription backends.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Auto means the backend detects the language itself.
const Auto = ""

// Normalize parses a BCP 47 tag and returns the base language code whisper
// expects. Empty and "auto" map to Auto.
func Normalize(hint string) (string, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" || strings.EqualFold(hint, "auto") {
		return Auto, nil
	}
	tag, err := language.Parse(hint)
	if err != nil {
		return "", fmt.Errorf("language %q: %w", hint, err)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", fmt.Errorf("language %q has no base language", hint)
	}
	return base.String(), nil
}

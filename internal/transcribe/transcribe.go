// Package transcribe turns extracted audio into text.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"thirdcoast.systems/scout/internal/config"
	"thirdcoast.systems/scout/pkg/utils/language"
)

// Transcriber converts a mono 16 kHz WAV file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// ErrEmptyTranscript is returned when the backend produced no text.
var ErrEmptyTranscript = errors.New("empty transcript")

// FromConfig builds the configured backend. It returns (nil, nil) when
// transcription is disabled.
func FromConfig(conf config.Config) (Transcriber, error) {
	switch strings.ToLower(conf.Transcriber) {
	case "", "none":
		return nil, nil
	case "whisper":
		lang, err := language.Normalize(conf.WhisperLanguage)
		if err != nil {
			return nil, fmt.Errorf("WHISPER_LANGUAGE: %w", err)
		}
		return NewWhisper(WhisperOptions{
			Cmd:      conf.WhisperCmd,
			Model:    conf.WhisperModel,
			Language: lang,
			Device:   conf.WhisperDevice,
		}), nil
	case "openai":
		o, err := NewOpenAI(conf.OpenAIAPIKey, conf.OpenAITranscribeModel)
		if err != nil {
			return nil, err
		}
		return o, nil
	}
	return nil, fmt.Errorf("unknown transcriber %q", conf.Transcriber)
}

package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/scout/internal/config"
)

func TestWhisper_ReadsTranscript(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.wav")

	var gotArgs []string
	w := NewWhisper(WhisperOptions{Language: "en"}).WithRunner(func(ctx context.Context, name string, args []string) ([]byte, error) {
		require.Equal(t, "whisper", name)
		gotArgs = args
		return nil, os.WriteFile(filepath.Join(dir, "audio.txt"), []byte("  hello world \n"), 0o644)
	})

	text, err := w.Transcribe(context.Background(), audio)
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
	require.Equal(t, audio, gotArgs[0])
	require.Contains(t, gotArgs, "--language")
	require.Contains(t, gotArgs, "small")
}

func TestWhisper_AutoLanguageOmitsFlag(t *testing.T) {
	w := NewWhisper(WhisperOptions{Language: "auto"})
	require.NotContains(t, w.args("a.wav", "/tmp"), "--language")
}

func TestWhisper_CommandFailure(t *testing.T) {
	w := NewWhisper(WhisperOptions{}).WithRunner(func(ctx context.Context, name string, args []string) ([]byte, error) {
		return []byte("CUDA out of memory"), errors.New("exit status 1")
	})
	_, err := w.Transcribe(context.Background(), filepath.Join(t.TempDir(), "audio.wav"))
	require.ErrorContains(t, err, "CUDA out of memory")
}

func TestWhisper_EmptyTranscript(t *testing.T) {
	dir := t.TempDir()
	w := NewWhisper(WhisperOptions{}).WithRunner(func(ctx context.Context, name string, args []string) ([]byte, error) {
		return nil, os.WriteFile(filepath.Join(dir, "audio.txt"), []byte("\n"), 0o644)
	})
	_, err := w.Transcribe(context.Background(), filepath.Join(dir, "audio.wav"))
	require.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestFromConfig(t *testing.T) {
	tr, err := FromConfig(config.Config{Transcriber: "none"})
	require.NoError(t, err)
	require.Nil(t, tr)

	tr, err = FromConfig(config.Config{Transcriber: "whisper"})
	require.NoError(t, err)
	require.IsType(t, &Whisper{}, tr)

	tr, err = FromConfig(config.Config{Transcriber: "whisper", WhisperLanguage: "en-GB"})
	require.NoError(t, err)
	require.Equal(t, "en", tr.(*Whisper).opts.Language)

	_, err = FromConfig(config.Config{Transcriber: "whisper", WhisperLanguage: "not a language"})
	require.ErrorContains(t, err, "WHISPER_LANGUAGE")

	_, err = FromConfig(config.Config{Transcriber: "openai"})
	require.ErrorIs(t, err, ErrAPIKeyNotSet)
}

// Package ffmpeg provides a composable API for building and executing ffmpeg commands.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Command represents an ffmpeg command being built.
type Command struct {
	input        string
	output       string
	preInput     []string // args before -i
	postInput    []string // args after -i
	audioFilters []string // collected -af filters
}

// Option modifies a Command. Options are composable and order-independent.
type Option interface {
	Apply(cmd *Command)
}

// OptionFunc is a function that implements Option.
type OptionFunc func(cmd *Command)

// Apply implements Option.
func (f OptionFunc) Apply(cmd *Command) { f(cmd) }

// NewCommand creates a command with input/output and applies options.
func NewCommand(input, output string, opts ...Option) *Command {
	cmd := &Command{input: input, output: output}
	for _, opt := range opts {
		opt.Apply(cmd)
	}
	return cmd
}

// Build returns the complete ffmpeg argument list.
func (c *Command) Build() []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	args = append(args, c.preInput...)
	args = append(args, "-i", c.input)
	args = append(args, c.postInput...)
	if len(c.audioFilters) > 0 {
		args = append(args, "-af", strings.Join(c.audioFilters, ","))
	}
	return append(args, c.output)
}

// NoVideo drops every video stream.
func NoVideo() Option {
	return OptionFunc(func(c *Command) { c.postInput = append(c.postInput, "-vn") })
}

// AudioChannels sets the output channel count.
func AudioChannels(n int) Option {
	return OptionFunc(func(c *Command) { c.postInput = append(c.postInput, "-ac", strconv.Itoa(n)) })
}

// AudioSampleRate sets the output sample rate in Hz.
func AudioSampleRate(hz int) Option {
	return OptionFunc(func(c *Command) { c.postInput = append(c.postInput, "-ar", strconv.Itoa(hz)) })
}

// AudioCodec sets the output audio codec.
func AudioCodec(codec string) Option {
	return OptionFunc(func(c *Command) { c.postInput = append(c.postInput, "-c:a", codec) })
}

// AudioFilter appends an -af filter.
func AudioFilter(f string) Option {
	return OptionFunc(func(c *Command) { c.audioFilters = append(c.audioFilters, f) })
}

// LogLevel sets -loglevel before the input.
func LogLevel(level string) Option {
	return OptionFunc(func(c *Command) { c.preInput = append(c.preInput, "-loglevel", level) })
}

// Transcription-friendly audio: mono 16 kHz PCM.
const (
	SpeechSampleRate = 16000
	SpeechChannels   = 1
)

// Extractor converts downloaded media into speech-ready WAV files.
type Extractor struct {
	// Bin is the ffmpeg executable. Defaults to "ffmpeg".
	Bin string
	run RunFunc
}

func NewExtractor(bin string) *Extractor {
	return &Extractor{Bin: bin}
}

// WithRunner returns a copy of e that executes commands through fn.
func (e *Extractor) WithRunner(fn RunFunc) *Extractor {
	cp := *e
	cp.run = fn
	return &cp
}

// ExtractAudio writes a mono 16 kHz WAV of mediaPath into dir and returns its path.
func (e *Extractor) ExtractAudio(ctx context.Context, mediaPath, dir string) (string, error) {
	if strings.TrimSpace(mediaPath) == "" {
		return "", fmt.Errorf("ffmpeg: media path is required")
	}
	out := filepath.Join(dir, "audio.wav")
	cmd := NewCommand(mediaPath, out,
		LogLevel("error"),
		NoVideo(),
		AudioChannels(SpeechChannels),
		AudioSampleRate(SpeechSampleRate),
		AudioCodec("pcm_s16le"),
	)

	run := e.run
	if run == nil {
		run = execRun
	}
	if err := runCommand(ctx, run, e.Bin, cmd.Build()); err != nil {
		return "", err
	}

	st, err := os.Stat(out)
	if err != nil {
		return "", fmt.Errorf("ffmpeg: audio output missing: %w", err)
	}
	if st.Size() == 0 {
		return "", fmt.Errorf("ffmpeg: audio output is empty")
	}
	return out, nil
}

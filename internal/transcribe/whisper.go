package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type WhisperOptions struct {
	Cmd      string
	Model    string
	Language string
	Device   string
}

// RunFunc runs the whisper command and returns its combined output.
type RunFunc func(ctx context.Context, name string, args []string) ([]byte, error)

func execRun(ctx context.Context, name string, args []string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("whisper: command not found: %w", err)
	}
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err = cmd.Run()
	return buf.Bytes(), err
}

// Whisper shells out to the openai-whisper CLI.
type Whisper struct {
	opts WhisperOptions
	run  RunFunc
}

func NewWhisper(opts WhisperOptions) *Whisper {
	if strings.TrimSpace(opts.Cmd) == "" {
		opts.Cmd = "whisper"
	}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = "small"
	}
	if strings.TrimSpace(opts.Device) == "" {
		opts.Device = "cpu"
	}
	return &Whisper{opts: opts, run: execRun}
}

// WithRunner replaces the command runner (tests).
func (w *Whisper) WithRunner(fn RunFunc) *Whisper {
	w.run = fn
	return w
}

// LogStartupInfo reports the resolved command and model.
func (w *Whisper) LogStartupInfo() {
	path, err := exec.LookPath(w.opts.Cmd)
	if err != nil {
		slog.Warn("whisper command not found", "cmd", w.opts.Cmd, "error", err)
		return
	}
	slog.Info("whisper config", "cmd", path, "model", w.opts.Model, "device", w.opts.Device, "language", w.opts.Language)
}

func (w *Whisper) args(audioPath, outputDir string) []string {
	args := []string{
		audioPath,
		"--model", w.opts.Model,
		"--output_format", "txt",
		"--output_dir", outputDir,
		"--device", w.opts.Device,
		"--task", "transcribe",
		"--verbose", "False",
	}
	if lang := strings.TrimSpace(w.opts.Language); lang != "" && !strings.EqualFold(lang, "auto") {
		args = append(args, "--language", lang)
	}
	return args
}

// Transcribe writes the transcript next to the audio file and returns its text.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	outputDir := filepath.Dir(audioPath)
	out, err := w.run(ctx, w.opts.Cmd, w.args(audioPath, outputDir))
	if err != nil {
		return "", fmt.Errorf("whisper failed: %w (output=%s)", err, strings.TrimSpace(string(out)))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	cand := filepath.Join(outputDir, base+".txt")
	if _, err := os.Stat(cand); err != nil {
		matches, _ := filepath.Glob(filepath.Join(outputDir, base+"*.txt"))
		if len(matches) == 0 {
			return "", fmt.Errorf("whisper output not found in %s", outputDir)
		}
		cand = matches[0]
	}

	b, err := os.ReadFile(cand)
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

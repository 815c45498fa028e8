package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// RunFunc executes ffmpeg with args and returns its captured stderr.
type RunFunc func(ctx context.Context, bin string, args []string) (stderr string, err error)

func execRun(ctx context.Context, bin string, args []string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

func runCommand(ctx context.Context, run RunFunc, bin string, args []string) error {
	if strings.TrimSpace(bin) == "" {
		bin = "ffmpeg"
	}
	if stderr, err := run(ctx, bin, args); err != nil {
		return &Error{Bin: bin, Args: args, Stderr: stderr, Err: err}
	}
	return nil
}

// stderrTail is how many trailing stderr lines an Error message keeps.
const stderrTail = 3

// Error is a failed ffmpeg run with its full stderr.
type Error struct {
	Bin    string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	if len(lines) > stderrTail {
		lines = lines[len(lines)-stderrTail:]
	}
	tail := strings.TrimSpace(strings.Join(lines, "\n"))
	if tail == "" {
		return fmt.Sprintf("ffmpeg: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg: %v: %s", e.Err, tail)
}

func (e *Error) Unwrap() error { return e.Err }

// Command is the command line that failed.
func (e *Error) Command() string {
	return strings.Join(append([]string{e.Bin}, e.Args...), " ")
}

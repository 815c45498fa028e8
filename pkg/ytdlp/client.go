// Package ytdlp drives the yt-dlp executable for metadata, listings, search
// and media downloads.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

const defaultBinary = "yt-dlp"

// ExecError carries the captured output of a failed yt-dlp run.
type ExecError struct {
	Cmd      string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Cause    error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("ytdlp: %s exited", e.Cmd)
	if e.ExitCode != 0 {
		msg = fmt.Sprintf("ytdlp: %s exited with status %d", e.Cmd, e.ExitCode)
	}
	if reason := e.Reason(); reason != "" {
		return msg + ": " + reason
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Cause }

// Reason is the last "ERROR:" line yt-dlp printed, or the last stderr line.
func (e *ExecError) Reason() string {
	var last string
	sc := bufio.NewScanner(strings.NewReader(e.Stderr))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
		last = line
	}
	return last
}

// ExecFunc runs a command and returns its captured output.
type ExecFunc func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

// Client is immutable once built; the With* methods return copies, so one
// Client can be shared across jobs with different cookies.
type Client struct {
	// Path to the executable. Empty means "yt-dlp" on PATH.
	Path string

	// Cookies is Netscape cookies.txt content written to a temp file per call.
	Cookies string

	// ExtraArgs precede every call's own arguments.
	ExtraArgs []string

	execFn ExecFunc
}

func New() *Client {
	return &Client{Path: defaultBinary}
}

func (c *Client) WithExec(fn ExecFunc) *Client {
	cp := *c
	cp.execFn = fn
	return &cp
}

func (c *Client) WithCookies(cookies string) *Client {
	cp := *c
	cp.Cookies = cookies
	return &cp
}

func (c *Client) PathOrDefault() string {
	if p := strings.TrimSpace(c.Path); p != "" {
		return p
	}
	return defaultBinary
}

func (c *Client) run(ctx context.Context, args []string) ([]byte, error) {
	argv := make([]string, 0, len(c.ExtraArgs)+len(args)+2)
	argv = append(argv, c.ExtraArgs...)

	if strings.TrimSpace(c.Cookies) != "" {
		path, err := writeCookiesFile(c.Cookies)
		if err != nil {
			return nil, fmt.Errorf("ytdlp: write cookies: %w", err)
		}
		defer os.Remove(path)
		argv = append(argv, "--cookies", path)
	}
	argv = append(argv, args...)

	name := c.PathOrDefault()
	exe := c.execFn
	if exe == nil {
		exe = runProcess
	}
	stdout, stderr, err := exe(ctx, name, argv...)
	if err != nil {
		return nil, wrapExecError(name, args, stdout, stderr, err)
	}
	logWarnings(stderr)
	return stdout, nil
}

func runProcess(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	slog.Debug("running yt-dlp", "cmd", name, "args", args)
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// logWarnings surfaces yt-dlp "WARNING:" lines from a successful run.
func logWarnings(stderr []byte) {
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); strings.HasPrefix(line, "WARNING:") {
			slog.Warn("yt-dlp warning", "message", strings.TrimSpace(strings.TrimPrefix(line, "WARNING:")))
		}
	}
}

func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, []string{"--version"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Update self-updates the binary. Package-managed installs refuse; callers
// treat failure as a warning.
func (c *Client) Update(ctx context.Context) error {
	_, err := c.run(ctx, []string{"-U"})
	return err
}

func wrapExecError(cmd string, args []string, stdout, stderr []byte, cause error) error {
	e := &ExecError{
		Cmd:    cmd,
		Args:   args,
		Stdout: strings.TrimSpace(string(stdout)),
		Stderr: strings.TrimSpace(string(stderr)),
		Cause:  cause,
	}
	var exitErr *exec.ExitError
	if errors.As(cause, &exitErr) {
		e.ExitCode = exitErr.ExitCode()
	}
	return e
}

func writeCookiesFile(content string) (string, error) {
	f, err := os.CreateTemp("", "scout-cookies-*.txt")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

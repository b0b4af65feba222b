// Package trim invokes the external transcoder to cut a clip out of a
// source file. The transcoder is run as an independent OS process per run
// under a wall-clock timeout; its diagnostics are classified best-effort
// into the failure kinds callers report to users.
package trim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"clipd/internal/logging"
)

var (
	// ErrTimeout reports a transcode that exceeded the wall-clock bound;
	// the subprocess has been terminated.
	ErrTimeout = errors.New("transcode timed out")

	// ErrInvalidMedia reports corrupt or unsupported input.
	ErrInvalidMedia = errors.New("invalid or unsupported media data")

	// ErrInputNotFound reports a missing transcode input file.
	ErrInputNotFound = errors.New("transcode input not found")

	// ErrPermissionDenied reports a filesystem permission failure.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTranscodeFailed reports any other non-zero transcoder exit; the
	// wrapped message carries the diagnostic tail.
	ErrTranscodeFailed = errors.New("transcode failed")

	// ErrEmptyOutput reports a zero exit that produced no usable output.
	ErrEmptyOutput = errors.New("transcode output missing or empty")
)

// Request describes one cut: seek to Start, copy Duration seconds.
type Request struct {
	InputPath  string
	OutputPath string
	Start      float64
	Duration   float64
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (stderr string, err error)
}

// Option configures the cutter.
type Option func(*Cutter)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Cutter) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger for invocation tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cutter) {
		if logger != nil {
			c.logger = logging.WithComponent(logger, "trim")
		}
	}
}

// Cutter wraps transcoder CLI interactions.
type Cutter struct {
	binary  string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
}

// DefaultTimeout bounds one transcoder invocation when no timeout is configured.
const DefaultTimeout = 300 * time.Second

// New constructs a cutter for the given transcoder binary.
func New(binary string, timeout time.Duration, opts ...Option) (*Cutter, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("transcoder binary required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cutter := &Cutter{
		binary:  binary,
		timeout: timeout,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cutter)
	}
	return cutter, nil
}

// Cut runs the transcoder once. No retry: an expensive transcode re-run on
// an ambiguous failure risks masking resource exhaustion, so transient
// tool failures surface to the caller instead.
func (c *Cutter) Cut(ctx context.Context, req Request) error {
	if req.InputPath == "" || req.OutputPath == "" {
		return errors.New("input and output paths required")
	}
	if req.Duration <= 0 {
		return fmt.Errorf("%w: non-positive duration %v", ErrTranscodeFailed, req.Duration)
	}

	args := []string{
		"-i", req.InputPath,
		"-ss", formatSeconds(req.Start),
		"-t", formatSeconds(req.Duration),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		"-y",
		req.OutputPath,
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Info("running transcoder",
		logging.String("binary", c.binary),
		logging.String("args", strings.Join(args, " ")),
	)

	stderr, err := c.exec.Run(runCtx, c.binary, args)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		return classify(stderr, err)
	}

	info, statErr := os.Stat(req.OutputPath)
	if statErr != nil || info.Size() == 0 {
		return ErrEmptyOutput
	}
	return nil
}

// classify maps transcoder diagnostics onto the failure taxonomy. Unmatched
// diagnostics stay a generic transcode failure carrying the raw tail; the
// matcher is deliberately not an exhaustive parser.
func classify(stderr string, err error) error {
	lowered := strings.ToLower(stderr)
	switch {
	case strings.Contains(lowered, "invalid data found"):
		return fmt.Errorf("%w: %s", ErrInvalidMedia, tail(stderr))
	case strings.Contains(lowered, "no such file or directory"):
		return fmt.Errorf("%w: %s", ErrInputNotFound, tail(stderr))
	case strings.Contains(lowered, "permission denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, tail(stderr))
	}
	if diag := tail(stderr); diag != "" {
		return fmt.Errorf("%w: %s", ErrTranscodeFailed, diag)
	}
	return fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
}

const maxDiagnostic = 512

// tail keeps diagnostics bounded; the interesting ffmpeg line is last.
func tail(stderr string) string {
	trimmed := strings.TrimSpace(stderr)
	if len(trimmed) <= maxDiagnostic {
		return trimmed
	}
	return "..." + trimmed[len(trimmed)-maxDiagnostic:]
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

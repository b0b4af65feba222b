// Package workspace manages the scoped temporary directories backing one
// pipeline run each. A workspace is exclusively owned by its run and is
// released on every exit path; release failures are logged, never escalated.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"clipd/internal/logging"
)

const dirPrefix = "trim-"

// Workspace is a uniquely named filesystem scope holding the input and
// output file of one trim run.
type Workspace struct {
	Dir        string
	InputPath  string
	OutputPath string
}

// New allocates a workspace directory under stagingDir.
func New(stagingDir string) (*Workspace, error) {
	if stagingDir == "" {
		return nil, errors.New("staging directory not configured")
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure staging directory: %w", err)
	}

	dir := filepath.Join(stagingDir, dirPrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return &Workspace{
		Dir:        dir,
		InputPath:  filepath.Join(dir, "input.mp4"),
		OutputPath: filepath.Join(dir, "output.mp4"),
	}, nil
}

// Release removes the workspace files and, once empty, the directory.
// Errors are logged and swallowed so cleanup never propagates past its
// own boundary.
func (w *Workspace) Release(logger *slog.Logger) {
	if w == nil {
		return
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	for _, path := range []string{w.InputPath, w.OutputPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove temp file",
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}

	if err := os.Remove(w.Dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove workspace directory",
			logging.String("path", w.Dir),
			logging.Error(err),
		)
		return
	}
	logger.Debug("workspace released", logging.String("path", w.Dir))
}

// Exists reports whether the workspace directory is still on disk.
func (w *Workspace) Exists() bool {
	if w == nil {
		return false
	}
	_, err := os.Stat(w.Dir)
	return err == nil
}

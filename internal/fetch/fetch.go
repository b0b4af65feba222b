// Package fetch retrieves the original media object from the message
// source into a workspace file.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"clipd/internal/logging"
	"clipd/internal/media"
	"clipd/internal/progress"
)

// ErrEmptyDownload reports a download that produced no usable file.
var ErrEmptyDownload = errors.New("downloaded file missing or empty")

// Source is the message-source collaborator: it resolves a stored message
// reference and streams the media bytes to a destination path, reporting
// raw transfer progress.
type Source interface {
	Download(ctx context.Context, ref media.SourceRef, destPath string, onProgress progress.Func) error
}

// StatusFunc receives coarse progress percentages for a status surface.
// Implementations own their failure policy; a status update that cannot be
// delivered must never abort the transfer.
type StatusFunc func(percent float64)

// Fetcher streams source media into workspace files.
type Fetcher struct {
	source Source
	logger *slog.Logger
}

// New constructs a fetcher over the given source.
func New(source Source, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		source: source,
		logger: logging.WithComponent(logger, "fetch"),
	}
}

// Fetch downloads the referenced media to destPath in a single attempt,
// reporting progress at 10% boundaries. The destination must exist and be
// non-empty afterwards, else the fetch fails with ErrEmptyDownload.
func (f *Fetcher) Fetch(ctx context.Context, ref media.SourceRef, destPath string, status StatusFunc) error {
	gated := progress.Gate(10, func(percent float64) {
		if status != nil {
			status(percent)
		}
	})

	if err := f.source.Download(ctx, ref, destPath, gated); err != nil {
		return fmt.Errorf("download media: %w", err)
	}

	info, err := os.Stat(destPath)
	if err != nil || info.Size() == 0 {
		return ErrEmptyDownload
	}

	f.logger.Info("media downloaded",
		logging.String("path", destPath),
		logging.Int64("bytes", info.Size()),
	)
	return nil
}

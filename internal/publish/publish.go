// Package publish streams a trimmed clip back to the requesting
// conversation.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"clipd/internal/logging"
	"clipd/internal/progress"
	"clipd/internal/timespec"
)

// ErrPublishFailed reports a failed upload; publishes are not retried.
var ErrPublishFailed = errors.New("publish failed")

// Sink is the media-sink collaborator: it sends a local file to a target
// conversation as a playable video with a caption, reporting raw transfer
// progress.
type Sink interface {
	SendVideo(ctx context.Context, chatID int64, path, caption string, onProgress progress.Func) error
}

// StatusFunc mirrors fetch.StatusFunc for upload progress.
type StatusFunc func(percent float64)

// Summary describes a finished trim for the caption.
type Summary struct {
	FileName    string
	Start       float64
	End         float64
	Duration    float64
	OutputBytes int64
}

// Caption renders the trim summary shown under the published video.
func (s Summary) Caption() string {
	var b strings.Builder
	b.WriteString("✅ Video trimmed successfully!\n\n")
	fmt.Fprintf(&b, "🎞 File: %s\n", s.FileName)
	fmt.Fprintf(&b, "⏱ Trim: %s → %s\n", timespec.Format(s.Start), timespec.Format(s.End))
	fmt.Fprintf(&b, "📏 Duration: %s\n", timespec.Format(s.Duration))
	fmt.Fprintf(&b, "📦 Size: %s\n\n", humanize.Bytes(uint64(s.OutputBytes)))
	b.WriteString("Send another video to trim more!")
	return b.String()
}

// Publisher sends trimmed clips to conversations.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
}

// New constructs a publisher over the given sink.
func New(sink Sink, logger *slog.Logger) *Publisher {
	return &Publisher{
		sink:   sink,
		logger: logging.WithComponent(logger, "publish"),
	}
}

// Publish uploads the clip as a playable video, regardless of how the
// original was delivered, reporting progress at 10% boundaries. A failed
// upload surfaces as ErrPublishFailed and is not retried.
func (p *Publisher) Publish(ctx context.Context, chatID int64, path string, summary Summary, status StatusFunc) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	summary.OutputBytes = info.Size()

	gated := progress.Gate(10, func(percent float64) {
		if status != nil {
			status(percent)
		}
	})

	if err := p.sink.SendVideo(ctx, chatID, path, summary.Caption(), gated); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	p.logger.Info("clip published",
		logging.Int64("chat_id", chatID),
		logging.Int64("bytes", summary.OutputBytes),
	)
	return nil
}

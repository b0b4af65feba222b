// Package pipeline runs one complete trim job: stage a workspace, fetch the
// source media, cut it with ffmpeg, and publish the result back to the chat.
// Whatever happens, the workspace is removed and the session is released.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"clipd/internal/fetch"
	"clipd/internal/history"
	"clipd/internal/logging"
	"clipd/internal/media"
	"clipd/internal/publish"
	"clipd/internal/session"
	"clipd/internal/trim"
	"clipd/internal/workspace"
)

// Fetcher downloads source media into the workspace.
type Fetcher interface {
	Fetch(ctx context.Context, ref media.SourceRef, destPath string, status fetch.StatusFunc) error
}

// Trimmer cuts the staged input into the staged output.
type Trimmer interface {
	Cut(ctx context.Context, req trim.Request) error
}

// Publisher uploads the finished clip to the chat.
type Publisher interface {
	Publish(ctx context.Context, chatID int64, path string, summary publish.Summary, status publish.StatusFunc) error
}

// Messenger drives the progress message shown while a job runs.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Request carries everything Run needs for one job.
type Request struct {
	UserID    int64
	ChatID    int64
	SessionID string
	Source    media.SourceRef
	FileName  string
	Start     float64
	End       float64
}

// Duration returns the clip length in seconds.
func (r Request) Duration() float64 {
	return r.End - r.Start
}

// Runner executes trim jobs.
type Runner struct {
	sessions   *session.Store
	fetcher    Fetcher
	trimmer    Trimmer
	publisher  Publisher
	messenger  Messenger
	journal    *history.Store
	stagingDir string
	logger     *slog.Logger
}

// New constructs a Runner. The journal may be nil; everything else is required.
func New(
	sessions *session.Store,
	fetcher Fetcher,
	trimmer Trimmer,
	publisher Publisher,
	messenger Messenger,
	journal *history.Store,
	stagingDir string,
	logger *slog.Logger,
) (*Runner, error) {
	if sessions == nil || fetcher == nil || trimmer == nil || publisher == nil || messenger == nil {
		return nil, errors.New("pipeline: missing collaborator")
	}
	if stagingDir == "" {
		return nil, errors.New("pipeline: staging dir is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		sessions:   sessions,
		fetcher:    fetcher,
		trimmer:    trimmer,
		publisher:  publisher,
		messenger:  messenger,
		journal:    journal,
		stagingDir: stagingDir,
		logger:     logging.WithComponent(logger, "pipeline"),
	}, nil
}

// Run performs one job end to end. On any failure it sends the user a message
// matching the failure kind. The session entry and the workspace never outlive
// the call.
func (r *Runner) Run(ctx context.Context, req Request) error {
	started := time.Now()
	logger := r.logger.With(
		logging.Int64("user_id", req.UserID),
		logging.String("file", req.FileName),
	)
	logger.Info("trim job started",
		logging.Float64("start", req.Start),
		logging.Float64("end", req.End),
	)

	var outputBytes int64
	err := r.execute(ctx, req, &outputBytes)

	r.sessions.Release(req.UserID, req.SessionID)
	r.record(req, outputBytes, started, err)

	if err != nil {
		logger.Error("trim job failed", logging.Error(err))
		if _, sendErr := r.messenger.SendMessage(ctx, req.ChatID, UserMessage(err)); sendErr != nil {
			logger.Warn("failed to notify user", logging.Error(sendErr))
		}
		return err
	}

	logger.Info("trim job completed",
		logging.Duration("elapsed", time.Since(started)),
		logging.Int64("output_bytes", outputBytes),
	)
	return nil
}

func (r *Runner) execute(ctx context.Context, req Request, outputBytes *int64) error {
	if req.Duration() <= 0 {
		return session.ErrInvalidRange
	}

	ws, err := workspace.New(r.stagingDir)
	if err != nil {
		return fmt.Errorf("allocate workspace: %w", err)
	}
	defer ws.Release(r.logger)

	status := newStatusMessage(r.messenger, req.ChatID)
	defer status.discard(ctx)

	status.set(ctx, "⬇️ Downloading… 0%")
	err = r.fetcher.Fetch(ctx, req.Source, ws.InputPath, func(percent float64) {
		status.set(ctx, fmt.Sprintf("⬇️ Downloading… %.0f%%", percent))
	})
	if err != nil {
		return err
	}

	status.set(ctx, "✂️ Trimming…")
	err = r.trimmer.Cut(ctx, trim.Request{
		InputPath:  ws.InputPath,
		OutputPath: ws.OutputPath,
		Start:      req.Start,
		Duration:   req.Duration(),
	})
	if err != nil {
		return err
	}

	status.set(ctx, "⬆️ Uploading… 0%")
	summary := publish.Summary{
		FileName: req.FileName,
		Start:    req.Start,
		End:      req.End,
		Duration: req.Duration(),
	}
	err = r.publisher.Publish(ctx, req.ChatID, ws.OutputPath, summary, func(percent float64) {
		status.set(ctx, fmt.Sprintf("⬆️ Uploading… %.0f%%", percent))
	})
	if err != nil {
		return err
	}

	*outputBytes = outputSize(ws.OutputPath)
	return nil
}

func (r *Runner) record(req Request, outputBytes int64, started time.Time, runErr error) {
	if r.journal == nil {
		return
	}
	rec := history.Record{
		UserID:      req.UserID,
		ChatID:      req.ChatID,
		FileName:    req.FileName,
		Start:       req.Start,
		End:         req.End,
		Duration:    req.Duration(),
		OutputBytes: outputBytes,
		Outcome:     history.OutcomeCompleted,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}
	if runErr != nil {
		rec.Outcome = history.OutcomeFailed
		rec.FailureKind = FailureKind(runErr)
		rec.Detail = runErr.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.journal.Append(ctx, rec); err != nil {
		r.logger.Warn("failed to journal trim run", logging.Error(err))
	}
}

// statusMessage is the single chat message edited in place as the job moves
// through its stages. All operations are best effort.
type statusMessage struct {
	messenger Messenger
	chatID    int64
	messageID int
	sent      bool
}

func newStatusMessage(messenger Messenger, chatID int64) *statusMessage {
	return &statusMessage{messenger: messenger, chatID: chatID}
}

func (m *statusMessage) set(ctx context.Context, text string) {
	if !m.sent {
		id, err := m.messenger.SendMessage(ctx, m.chatID, text)
		if err != nil {
			return
		}
		m.messageID = id
		m.sent = true
		return
	}
	_ = m.messenger.EditMessage(ctx, m.chatID, m.messageID, text)
}

func (m *statusMessage) discard(ctx context.Context) {
	if !m.sent {
		return
	}
	_ = m.messenger.DeleteMessage(ctx, m.chatID, m.messageID)
	m.sent = false
}

// UserMessage maps a pipeline failure to the reply shown to the user.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidRange):
		return "⚠️ End time must be greater than start time. Please start over by sending the video again."
	case errors.Is(err, fetch.ErrEmptyDownload):
		return "⚠️ The download came back empty. Please send the video again."
	case errors.Is(err, trim.ErrTimeout):
		return "⏱ Trimming took too long and was cancelled. Try a shorter clip."
	case errors.Is(err, trim.ErrInvalidMedia):
		return "⚠️ That file doesn't look like valid video data. Please send a different file."
	case errors.Is(err, trim.ErrInputNotFound):
		return "⚠️ Something went wrong reading the downloaded file. Please try again."
	case errors.Is(err, trim.ErrPermissionDenied):
		return "⚠️ The server couldn't access its working files. Please try again later."
	case errors.Is(err, trim.ErrEmptyOutput):
		return "⚠️ Trimming produced an empty file. Try different start and end times."
	case errors.Is(err, trim.ErrTranscodeFailed):
		return "❌ Trimming failed. Please check your times and try again."
	case errors.Is(err, publish.ErrPublishFailed):
		return "⚠️ Couldn't upload the trimmed clip. Please try again."
	default:
		return "❌ An unexpected error occurred. Please try again."
	}
}

// FailureKind names a failure for the journal.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, fetch.ErrEmptyDownload):
		return "empty_download"
	case errors.Is(err, trim.ErrTimeout):
		return "trim_timeout"
	case errors.Is(err, trim.ErrInvalidMedia):
		return "invalid_media"
	case errors.Is(err, trim.ErrInputNotFound):
		return "input_not_found"
	case errors.Is(err, trim.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, trim.ErrEmptyOutput):
		return "empty_output"
	case errors.Is(err, trim.ErrTranscodeFailed):
		return "transcode_failed"
	case errors.Is(err, publish.ErrPublishFailed):
		return "publish_failed"
	default:
		return "internal"
	}
}

func outputSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

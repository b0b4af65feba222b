// Package dialogue routes chat events through the per-user trim conversation:
// a video opens a session, two time replies fill it in, and the completed
// session is handed to the pipeline.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"clipd/internal/logging"
	"clipd/internal/media"
	"clipd/internal/pipeline"
	"clipd/internal/session"
	"clipd/internal/timespec"
)

var (
	errNegativeTime = errors.New("time must not be negative")
	errClipTooLong  = errors.New("clip exceeds the configured maximum length")
)

// Runner executes a completed trim job.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) error
}

// Replier sends plain replies to a chat.
type Replier interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
}

// Router drives the conversation state machine.
type Router struct {
	sessions       *session.Store
	runner         Runner
	replier        Replier
	maxFileSize    int64
	maxClipSeconds float64
	logger         *slog.Logger
}

// New constructs a Router. maxFileSize and maxClipSeconds of zero disable the
// respective limits.
func New(sessions *session.Store, runner Runner, replier Replier, maxFileSize int64, maxClipSeconds float64, logger *slog.Logger) (*Router, error) {
	if sessions == nil || runner == nil || replier == nil {
		return nil, errors.New("dialogue: missing collaborator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Router{
		sessions:       sessions,
		runner:         runner,
		replier:        replier,
		maxFileSize:    maxFileSize,
		maxClipSeconds: maxClipSeconds,
		logger:         logging.WithComponent(logger, "dialogue"),
	}, nil
}

// HandleCommand processes a slash command.
func (r *Router) HandleCommand(ctx context.Context, userID, chatID int64, command string) error {
	switch normalizeCommand(command) {
	case "/start":
		r.reply(ctx, chatID, "👋 Hi! Send me a video and I'll trim it for you.\n\nUse /cancel at any time to start over.")
	case "/cancel":
		if r.sessions.Cancel(userID) {
			r.logger.Info("session cancelled", logging.Int64("user_id", userID))
			r.reply(ctx, chatID, "🗑 Cancelled. Send me a video whenever you're ready.")
		} else {
			r.reply(ctx, chatID, "Nothing to cancel. Send me a video to get started.")
		}
	default:
		r.reply(ctx, chatID, "🤔 I don't know that command. Send me a video, or use /cancel to start over.")
	}
	return nil
}

// HandleMedia processes an incoming video or document attachment.
func (r *Router) HandleMedia(ctx context.Context, userID, chatID int64, info media.Info) error {
	if err := media.Qualify(info, r.maxFileSize); err != nil {
		switch {
		case errors.Is(err, media.ErrUnsupportedMediaType):
			r.reply(ctx, chatID, "⚠️ That doesn't look like a video. Please send a video file.")
		case errors.Is(err, media.ErrFileTooLarge):
			r.reply(ctx, chatID, fmt.Sprintf("⚠️ File too large. The limit is %s.", humanize.Bytes(uint64(r.maxFileSize))))
		}
		return err
	}

	if _, err := r.sessions.Begin(userID, info); err != nil {
		if errors.Is(err, session.ErrProcessing) {
			r.reply(ctx, chatID, "⏳ I'm still working on your previous clip. Please wait for it to finish.")
		}
		return err
	}

	r.logger.Info("session opened",
		logging.Int64("user_id", userID),
		logging.String("file", media.DisplayName(info)),
		logging.Int64("size", info.Size),
	)
	r.reply(ctx, chatID, "🎬 Got it! Now send the start time (e.g. 0:30 or 90).")
	return nil
}

// HandleText processes a plain text message. Command-prefixed text is routed
// to HandleCommand and never parsed as a time.
func (r *Router) HandleText(ctx context.Context, userID, chatID int64, text string) error {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "/") {
		return r.HandleCommand(ctx, userID, chatID, trimmed)
	}

	var ready bool
	sess, err := r.sessions.Update(userID, func(s *session.Session) error {
		switch s.State {
		case session.StateAwaitingStart:
			seconds, parseErr := timespec.Parse(trimmed)
			if parseErr != nil {
				return parseErr
			}
			if seconds < 0 {
				return errNegativeTime
			}
			s.StartTime = seconds
			s.State = session.StateAwaitingEnd
			return nil
		case session.StateAwaitingEnd:
			seconds, parseErr := timespec.Parse(trimmed)
			if parseErr != nil {
				return parseErr
			}
			if seconds < 0 {
				return errNegativeTime
			}
			if seconds <= s.StartTime {
				return session.ErrInvalidRange
			}
			if r.maxClipSeconds > 0 && seconds-s.StartTime > r.maxClipSeconds {
				return errClipTooLong
			}
			s.EndTime = seconds
			s.State = session.StateProcessing
			return nil
		default:
			return session.ErrProcessing
		}
	})
	if err != nil {
		r.replyForTextError(ctx, chatID, sess, err)
		return err
	}

	switch sess.State {
	case session.StateAwaitingEnd:
		r.reply(ctx, chatID, fmt.Sprintf("✅ Start time set to %s. Now send the end time.", timespec.Format(sess.StartTime)))
	case session.StateProcessing:
		ready = true
	}

	if !ready {
		return nil
	}

	return r.runner.Run(ctx, pipeline.Request{
		UserID:    userID,
		ChatID:    chatID,
		SessionID: sess.ID,
		Source:    sess.Source,
		FileName:  sess.FileName,
		Start:     sess.StartTime,
		End:       sess.EndTime,
	})
}

func (r *Router) replyForTextError(ctx context.Context, chatID int64, sess session.Session, err error) {
	switch {
	case errors.Is(err, session.ErrNoSession):
		r.reply(ctx, chatID, "🤔 There's no video in progress. Send me a video to get started.")
	case errors.Is(err, session.ErrProcessing):
		r.reply(ctx, chatID, "⏳ I'm busy trimming your clip. Please wait.")
	case errors.Is(err, timespec.ErrInvalidFormat):
		r.reply(ctx, chatID, "⚠️ Invalid time format. Use minutes:seconds (e.g. 1:30) or plain seconds (e.g. 90).")
	case errors.Is(err, errNegativeTime):
		r.reply(ctx, chatID, "⚠️ Times can't be negative. Please try again.")
	case errors.Is(err, session.ErrInvalidRange):
		r.reply(ctx, chatID, fmt.Sprintf("⚠️ End time must be greater than the start time (%s). Please send the end time again.", timespec.Format(sess.StartTime)))
	case errors.Is(err, errClipTooLong):
		r.reply(ctx, chatID, fmt.Sprintf("⚠️ Clips longer than %s aren't allowed. Please pick a closer end time.", timespec.Format(r.maxClipSeconds)))
	default:
		r.reply(ctx, chatID, "❌ An unexpected error occurred. Please try again.")
	}
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if _, err := r.replier.SendMessage(ctx, chatID, text); err != nil {
		r.logger.Warn("failed to send reply", logging.Error(err))
	}
}

func normalizeCommand(command string) string {
	command = strings.TrimSpace(command)
	if idx := strings.IndexAny(command, " \t"); idx >= 0 {
		command = command[:idx]
	}
	// Commands may arrive addressed to the bot, e.g. /cancel@clipbot.
	if idx := strings.Index(command, "@"); idx >= 0 {
		command = command[:idx]
	}
	return strings.ToLower(command)
}

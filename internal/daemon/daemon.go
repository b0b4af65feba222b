// Package daemon runs the bot: it enforces single-instance execution,
// sweeps stale workspaces, and pumps Telegram updates into the dialogue
// router.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipd/internal/config"
	"clipd/internal/dialogue"
	"clipd/internal/logging"
	"clipd/internal/telegram"
	"clipd/internal/workspace"
)

const pollErrorBackoff = 3 * time.Second

// UpdateSource produces batches of chat updates.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, pollTimeout time.Duration) ([]telegram.Update, error)
}

// Daemon owns the update pump and the daemon lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	source UpdateSource
	router *dialogue.Router

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, source UpdateSource, router *dialogue.Router, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || source == nil || router == nil {
		return nil, errors.New("daemon requires config, update source, and router")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "clipd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		source:   source,
		router:   router,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, sweeps stale workspaces, and launches the
// update pump.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipd instance is already running")
	}

	result := workspace.CleanStale(d.cfg.Paths.StagingDir, d.cfg.WorkspaceStaleAge(), d.logger)
	if len(result.Removed) > 0 {
		d.logger.Info("removed stale workspaces", logging.Int("count", len(result.Removed)))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.pump(runCtx)
	}()

	d.logger.Info("clipd daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the update pump, waits for in-flight handlers, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("clipd daemon stopped")
}

// Running reports whether the pump is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the daemon lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

func (d *Daemon) pump(ctx context.Context) {
	pollTimeout := time.Duration(d.cfg.Telegram.PollTimeout) * time.Second
	var offset int64

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := d.source.GetUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Warn("failed to poll updates", logging.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollErrorBackoff):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			d.dispatch(ctx, update)
		}
	}
}

// dispatch routes one update on its own goroutine so a long trim job never
// stalls the poll loop.
func (d *Daemon) dispatch(ctx context.Context, update telegram.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if info, ok := telegram.Attachment(msg); ok {
			if err := d.router.HandleMedia(ctx, userID, chatID, info); err != nil {
				d.logger.Debug("media event rejected",
					logging.Int64("user_id", userID),
					logging.Error(err),
				)
			}
			return
		}
		if msg.Text != "" {
			if err := d.router.HandleText(ctx, userID, chatID, msg.Text); err != nil {
				d.logger.Debug("text event rejected",
					logging.Int64("user_id", userID),
					logging.Error(err),
				)
			}
		}
	}()
}

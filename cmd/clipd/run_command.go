package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clipd/internal/daemon"
	"clipd/internal/deps"
	"clipd/internal/dialogue"
	"clipd/internal/fetch"
	"clipd/internal/history"
	"clipd/internal/logging"
	"clipd/internal/pipeline"
	"clipd/internal/publish"
	"clipd/internal/session"
	"clipd/internal/telegram"
	"clipd/internal/trim"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			logPath := filepath.Join(cfg.Paths.LogDir, "clipd.log")
			logger, err := logging.New(logging.Options{
				Level:            cfg.Logging.Level,
				Format:           cfg.Logging.Format,
				OutputPaths:      []string{"stdout", logPath},
				ErrorOutputPaths: []string{"stderr", logPath},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			if err := deps.Verify(deps.Requirements(cfg.Trim.FFmpegBinary)); err != nil {
				return fmt.Errorf("verify external tools: %w", err)
			}

			journal, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history journal: %w", err)
			}
			defer journal.Close()

			client, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.BaseURL, logger)
			if err != nil {
				return fmt.Errorf("init telegram client: %w", err)
			}
			bot, err := client.GetMe(signalCtx)
			if err != nil {
				return fmt.Errorf("verify bot token: %w", err)
			}

			sessions := session.NewStore()
			fetcher := fetch.New(client, logger)
			cutter, err := trim.New(cfg.Trim.FFmpegBinary, cfg.TrimTimeout(), trim.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("init trimmer: %w", err)
			}
			publisher := publish.New(client, logger)

			runner, err := pipeline.New(sessions, fetcher, cutter, publisher, client, journal, cfg.Paths.StagingDir, logger)
			if err != nil {
				return fmt.Errorf("init pipeline: %w", err)
			}
			router, err := dialogue.New(sessions, runner, client,
				cfg.MaxFileSizeBytes(), float64(cfg.Limits.MaxClipSeconds), logger)
			if err != nil {
				return fmt.Errorf("init dialogue: %w", err)
			}

			d, err := daemon.New(cfg, client, router, logger)
			if err != nil {
				return fmt.Errorf("init daemon: %w", err)
			}
			if err := d.Start(signalCtx); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}

			logger.Info("clipd ready",
				logging.String("bot", bot.Username),
				logging.String("max_file_size", humanize.Bytes(uint64(cfg.MaxFileSizeBytes()))),
				logging.String("staging_dir", cfg.Paths.StagingDir),
			)

			<-signalCtx.Done()
			d.Stop()
			return nil
		},
	}
}

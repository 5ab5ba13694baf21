package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/config"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/watcher"
)

func watcherConfig(cfg *config.WatchConfig) *watcher.Config {
	return &watcher.Config{
		PollInterval: cfg.Interval,
		Prefix:       cfg.Prefix,
		BatchSize:    cfg.BatchSize,
		MaxAttempts:  cfg.MaxAttempts,
		SkipExisting: cfg.SkipExisting,
	}
}

func newWatchCmd(opts *options) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process new files from the configured store as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := opts.newLogger(cmd.ErrOrStderr(), &cfg.Logging)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.store.Close(cmd.Context())

			w := watcher.New(a.store, a.store, a.handler, watcherConfig(&cfg.Watch), logger)
			if once {
				n, err := w.Poll(ctx)
				logger.Info("poll finished", "attempted", n)
				return err
			}

			go a.tracker.RunCleanup(ctx, time.Minute)
			w.Start(ctx)
			<-ctx.Done()
			w.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "poll once and exit")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/server"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/watcher"
)

func newServeCmd(opts *options) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			logger := opts.newLogger(cmd.ErrOrStderr(), &cfg.Logging)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			go a.tracker.RunCleanup(ctx, time.Minute)

			w := watcher.New(a.store, a.store, a.handler, watcherConfig(&cfg.Watch), logger)
			if cfg.Watch.Interval > 0 {
				w.Start(ctx)
			}

			srv := server.New(cfg, a.store, a.handler, a.registry, logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(fmt.Sprintf(":%d", cfg.Server.Port))
			}()

			select {
			case err := <-errCh:
				w.Stop()
				a.store.Close(context.Background())
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			w.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides configuration)")
	return cmd
}

package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage"
)

func newProcessCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "process <key>...",
		Short: "Process bank files from the configured store",
		Long: `Process reads each file from the configured store, decodes it by its
extension and delivers the result. Every file is attempted; the command fails
when any of them failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := opts.newLogger(cmd.ErrOrStderr(), &cfg.Logging)

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.store.Close(ctx)

			var errs []error
			results := make([]*storage.Result, 0, len(args))
			for _, key := range args {
				result, err := a.handler.Process(ctx, key)
				results = append(results, result)
				errs = append(errs, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}
}

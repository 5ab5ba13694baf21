package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/config"
)

type options struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "pankkilinkki",
		Short: "Decode bank files and deliver them to the registry",
		Long: `pankkilinkki decodes files delivered by the bank: fixed-width transaction
ledgers (TL), e-invoice receiver info streams (RI) and bank messages (INFO).
Payments and recipient changes are posted to the registry API, bank messages
and failures to Slack.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to the configuration file (default: environment)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newProcessCmd(opts),
		newLedgerCmd(opts),
		newStreamCmd(opts),
		newServeCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.configFile == "" {
		return config.FromEnv()
	}
	return config.Load(o.configFile)
}

// newLogger builds the process logger. A nil cfg logs text at info level.
func (o *options) newLogger(w io.Writer, cfg *config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	format := "text"
	if cfg != nil {
		level = parseLevel(cfg.Level)
		format = strings.ToLower(cfg.Format)
	}
	if o.verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

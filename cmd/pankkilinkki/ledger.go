package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/report"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/compression"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/ledger"
)

func newLedgerCmd(opts *options) *cobra.Command {
	var (
		xlsxPath string
		timezone string
	)

	cmd := &cobra.Command{
		Use:   "ledger <file>",
		Short: "Decode a transaction ledger file",
		Long: `Ledger decodes a local TL file and prints it as JSON, or writes it as a
spreadsheet with --xlsx.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone: %w", err)
			}

			data, err := readLocal(args[0])
			if err != nil {
				return err
			}

			file, err := ledger.ParseReader(bytes.NewReader(data), ledger.WithLocation(loc))
			if err != nil {
				return err
			}

			if xlsxPath == "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(file)
			}

			out, err := os.Create(xlsxPath)
			if err != nil {
				return err
			}
			if err := report.WriteLedgerXLSX(out, file); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}

			opts.newLogger(cmd.ErrOrStderr(), nil).Info("spreadsheet written",
				"path", xlsxPath, "rows", len(file.Rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write a spreadsheet to this path instead of JSON")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "time zone of ledger dates")
	return cmd
}

// readLocal reads a file, decompressing gzip content
func readLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return compression.NewCompressor().MaybeDecompress(data)
}

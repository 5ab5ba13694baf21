package main

import (
	"bytes"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/oikeuttaelaimille/pankkilinkki/pkg/document"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/envelope"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/stream"
)

type streamDocument struct {
	Root     string             `json:"root"`
	Envelope *envelope.Envelope `json:"envelope,omitempty"`
	Document *document.Node     `json:"document,omitempty"`
}

func newStreamCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stream <file>",
		Short: "Decode a bank XML stream",
		Long: `Stream splits a local XML stream (RI or XI file) into its documents and
prints each with its envelope as JSON. E-invoices are listed without their
content.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readLocal(args[0])
			if err != nil {
				return err
			}

			logger := opts.newLogger(cmd.ErrOrStderr(), nil)
			docs, err := stream.ReadAll(bytes.NewReader(data), stream.WithLogger(logger))
			if err != nil {
				return err
			}

			out := make([]streamDocument, 0, len(docs))
			for _, doc := range docs {
				out = append(out, streamDocument{
					Root:     doc.Name(),
					Envelope: doc.Envelope,
					Document: doc.Tree,
				})
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(out)
		},
	}
}

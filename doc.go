// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package pankkilinkki decodes the files a Finnish bank delivers over its file
transfer link and forwards their contents to a membership registry.

# Overview

The bank delivers three kinds of files:

  - TL: a fixed-width ledger of settled reference payments
  - RI and XI: XML streams of e-invoice documents, each optionally preceded by
    an ebXML transport envelope
  - INFO: free-form service messages

Payments and e-invoice receiver changes are posted to the registry API. Bank
messages and processing failures are posted to Slack.

# Package Structure

	github.com/oikeuttaelaimille/pankkilinkki/pkg/fields       - Fixed-width field decoders
	github.com/oikeuttaelaimille/pankkilinkki/pkg/ledger       - Transaction ledger parser
	github.com/oikeuttaelaimille/pankkilinkki/pkg/stream       - Multi-document XML stream splitter
	github.com/oikeuttaelaimille/pankkilinkki/pkg/envelope     - ebXML transport envelope parser
	github.com/oikeuttaelaimille/pankkilinkki/pkg/document     - XML element to ordered tree conversion
	github.com/oikeuttaelaimille/pankkilinkki/pkg/receiverinfo - E-invoice receiver info messages
	github.com/oikeuttaelaimille/pankkilinkki/pkg/transport    - HTTPS JSON client
	github.com/oikeuttaelaimille/pankkilinkki/pkg/compression  - Gzip handling of delivered files
	github.com/oikeuttaelaimille/pankkilinkki/pkg/reliability  - Retries and duplicate detection

# Quick Start

Decoding a ledger:

	file, err := ledger.Parse(text, ledger.WithLocation(helsinki))
	if err != nil {
		return err
	}
	for _, row := range file.Rows {
		fmt.Println(row.ReferenceNumber, row.Amount, row.Status)
	}

Splitting an XML stream:

	for doc, err := range stream.Parse(data) {
		if err != nil {
			return err
		}
		fmt.Println(doc.Name(), doc.Envelope.MessageID)
	}

# Command Line

The pankkilinkki command (cmd/pankkilinkki) processes stored files, decodes
local files for inspection and runs an HTTP server for file processing.
*/
package pankkilinkki

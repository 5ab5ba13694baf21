// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package stream splits a byte stream of concatenated XML documents into
decoded documents.

Bank receiver-info files and Finvoice deliveries are plain concatenations:
each payload document is preceded by a SOAP/ebXML transport envelope and
nothing separates one document from the next.

	<SOAP-ENV:Envelope>...</SOAP-ENV:Envelope>
	<Finvoice>...</Finvoice>
	<SOAP-ENV:Envelope>...</SOAP-ENV:Envelope>
	<FinvoiceReceiverInfo>...</FinvoiceReceiverInfo>

The splitter reads tokens incrementally and classifies every completed root
element by its local name:

  - Envelope: decoded with the envelope package and held until the next document
  - Finvoice: emitted with its raw element tree and the held envelope
  - anything else: converted with the document package and emitted with the held envelope

# Usage

	for doc, err := range stream.New(r).All() {
	    if err != nil {
	        return err
	    }
	    if doc.Envelope != nil {
	        fmt.Println(doc.Envelope.MessageID)
	    }
	}

The sequence is lazy. A document is read from the underlying reader only
when it is requested and breaking out of the loop needs no cleanup.

# Character Sets

Documents declaring a non-UTF-8 encoding such as ISO-8859-15 are
transcoded to UTF-8. The first such declaration selects the encoding for
the rest of the stream, and a later declaration naming any other encoding,
UTF-8 included, fails with ErrMalformedStream.
*/
package stream

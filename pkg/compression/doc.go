// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package compression handles GZIP-compressed bank files.

Banks and file transfer gateways deliver some files gzip-compressed and
others as plain text, with no reliable naming convention. Content is
detected by the GZIP magic bytes instead.

# Decompression

	compressor := compression.NewCompressor()
	data, err := compressor.MaybeDecompress(raw)

[Compressor.MaybeDecompress] returns plain input unchanged. Decompressed
output is capped at [DefaultMaxSize] unless configured with
[NewCompressorWithLimit].

# Compression

Compression is used when archiving decoded files:

	compressed, err := compressor.Compress(data)

# References

  - GZIP RFC 1952: https://datatracker.ietf.org/doc/html/rfc1952
*/
package compression

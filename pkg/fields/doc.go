// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package fields provides primitive decoders for fixed-width bank records.

Bank ledger exports carry every value at a fixed byte offset with no
delimiters. The decoders in this package turn one raw slice of such a line
into a typed Go value and fail loudly on anything they cannot interpret.

# Slicing

	raw, err := fields.Slice(line, 77, 87)

Slice fails with [ErrTruncatedRecord] when the line is shorter than the
requested end offset. Offsets are byte offsets, 0-indexed and end-exclusive.

# Value Decoders

  - [Int]: space-padded decimal integer
  - [Amount]: implicit 2-decimal amount, the last two characters are the cents
  - [Date], [Timestamp]: yyMMdd and yyMMddHHmm
  - [Name]: ISO-8859-15 text with the legacy 7-bit substitutions [ -> Ä and \ -> Ö
  - [StripZeros]: payment reference normalisation

# Enumerations

Coded single-character fields are decoded through an [Enum]:

	var statuses = fields.NewEnum("status", map[string]Status{"0": Success}).WithDefault("0")

A default code is used only when the trimmed field is empty. Any other
value must match a known code exactly or decoding fails with [ErrUnknownCode].
*/
package fields

package compression

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
)

const (
	// ContentTypeGzip is the standard GZIP content type
	ContentTypeGzip = "application/gzip"

	// DefaultMaxSize limits decompressed output
	DefaultMaxSize = 256 << 20
)

// ErrTooLarge is returned when decompressed data exceeds the size limit
var ErrTooLarge = errors.New("decompressed data exceeds size limit")

var gzipMagic = []byte{0x1f, 0x8b}

// IsGzip reports whether data starts with the GZIP magic bytes
func IsGzip(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}

// Compressor handles file compression
type Compressor struct {
	compressionLevel int
	maxSize          int64
}

// NewCompressor creates a new compressor with default compression level
func NewCompressor() *Compressor {
	return &Compressor{
		compressionLevel: gzip.DefaultCompression,
		maxSize:          DefaultMaxSize,
	}
}

// NewCompressorWithLimit creates a compressor that refuses to decompress
// more than maxSize bytes
func NewCompressorWithLimit(maxSize int64) *Compressor {
	c := NewCompressor()
	c.maxSize = maxSize
	return c
}

// Compress compresses data using GZIP
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	writer, err := gzip.NewWriterLevel(&buf, c.compressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses GZIP data
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(reader, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read compressed data: %w", err)
	}
	if n > c.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, c.maxSize)
	}

	return buf.Bytes(), nil
}

// MaybeDecompress decompresses data when it is GZIP-compressed and returns
// it unchanged otherwise
func (c *Compressor) MaybeDecompress(data []byte) ([]byte, error) {
	if !IsGzip(data) {
		return data, nil
	}
	return c.Decompress(data)
}

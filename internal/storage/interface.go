// Package storage provides bank file storage interfaces and implementations.
//
// # Interface Design
//
// The storage layer is organized into focused interfaces:
//
//   - [FileStore]: raw bank files addressed by key (the file name as delivered)
//   - [ResultStore]: processing outcomes used for auditing and duplicate detection
//
// The [Store] interface combines both for convenience.
//
// # Implementations
//
//   - filesystem: files in a local directory, results in memory
//   - mongodb: files in a GridFS bucket, results in a collection
//   - memory: everything in memory, for tests and one-shot CLI runs
//
// # Concurrency
//
// All store implementations must be safe for concurrent use from multiple
// goroutines.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when a file or result does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidKey is returned for keys that could escape the store
var ErrInvalidKey = errors.New("invalid key")

// Store is the main storage interface combining all sub-stores
type Store interface {
	FileStore
	ResultStore

	// Close releases storage resources
	Close(ctx context.Context) error

	// Ping checks backend connectivity
	Ping(ctx context.Context) error
}

// FileStore manages raw bank files
type FileStore interface {
	// OpenFile opens the latest revision of a file
	OpenFile(ctx context.Context, key string) (io.ReadCloser, error)

	// PutFile stores a file, replacing any earlier revision
	PutFile(ctx context.Context, key string, r io.Reader) error

	// ListFiles returns the keys starting with prefix in lexical order
	ListFiles(ctx context.Context, prefix string) ([]string, error)
}

// ResultStore manages processing outcomes
type ResultStore interface {
	// RecordResult stores the outcome for result.Key, replacing an earlier one
	RecordResult(ctx context.Context, result *Result) error

	// GetResult retrieves the outcome for a key
	GetResult(ctx context.Context, key string) (*Result, error)

	// FindByChecksum returns the latest successful outcome for content with
	// the given checksum
	FindByChecksum(ctx context.Context, checksum string) (*Result, error)

	// ListResults returns outcomes, newest first
	ListResults(ctx context.Context, filter *ResultFilter) ([]*Result, error)
}

// Result is the outcome of processing one bank file
type Result struct {
	Key         string       `bson:"_id" json:"key"`
	FileType    string       `bson:"file_type" json:"fileType"`
	Checksum    string       `bson:"checksum" json:"checksum"`
	Status      ResultStatus `bson:"status" json:"status"`
	Records     int          `bson:"records" json:"records"`
	Error       string       `bson:"error,omitempty" json:"error,omitempty"`
	RunID       string       `bson:"run_id" json:"runId"`
	ProcessedAt time.Time    `bson:"processed_at" json:"processedAt"`
}

type ResultStatus string

const (
	StatusProcessed ResultStatus = "processed" // Decoded and delivered
	StatusDuplicate ResultStatus = "duplicate" // Same content already processed
	StatusFailed    ResultStatus = "failed"    // Decoding or delivery failed
)

type ResultFilter struct {
	Status ResultStatus
	Since  *time.Time
	Limit  int
}

// Matches reports whether r passes the filter. A nil filter matches everything.
func (f *ResultFilter) Matches(r *Result) bool {
	if f == nil {
		return true
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Since != nil && r.ProcessedAt.Before(*f.Since) {
		return false
	}
	return true
}

// CleanKey validates a file key and returns it in canonical form. Keys are
// slash-separated relative paths.
func CleanKey(key string) (string, error) {
	if key == "" || strings.ContainsRune(key, 0) || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	clean := path.Clean(strings.TrimPrefix(key, "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}

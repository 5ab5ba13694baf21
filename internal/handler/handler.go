// Package handler processes bank files delivered to the file store.
//
// A file is dispatched on its extension:
//
//   - INFO: free-form bank message, forwarded to the Slack info channel
//   - TL: transaction ledger, payments are reported to the registry
//   - RI: e-invoice receiver info stream, recipient changes are reported to the registry
//   - XI: e-invoice stream, not processed yet
//
// Failures are reported to the Slack logs channel and returned to the caller.
package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/metrics"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/registry"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/compression"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/ledger"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/receiverinfo"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/reliability"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/stream"
)

// File types
const (
	TypeInfo         = "INFO"
	TypeLedger       = "TL"
	TypeReceiverInfo = "RI"
	TypeInvoice      = "XI"
)

var (
	ErrUnsupportedFileType = errors.New("file type is not recognized")
	ErrNotImplemented      = errors.New("not implemented yet")
	ErrInvalidEvent        = errors.New("invalid event")
)

// Notifier reports bank messages and failures
type Notifier interface {
	Info(ctx context.Context, data, key string) error
	Error(ctx context.Context, cause error, key string) error
}

// Registry receives decoded bank data
type Registry interface {
	PostPayments(ctx context.Context, id string, payments []registry.Payment) (int, error)
	PostReceiverInfo(ctx context.Context, id string, messages []receiverinfo.Message) error
}

// Config holds the handler dependencies
type Config struct {
	Files    storage.FileStore
	Results  storage.ResultStore
	Registry Registry
	Notifier Notifier
	// Tracker remembers recently processed content; optional
	Tracker *reliability.Tracker
	// Location of ledger dates; defaults to UTC
	Location *time.Location
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Handler processes bank files
type Handler struct {
	files      storage.FileStore
	results    storage.ResultStore
	registry   Registry
	notifier   Notifier
	tracker    *reliability.Tracker
	location   *time.Location
	compressor *compression.Compressor
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a handler
func New(cfg *Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Handler{
		files:      cfg.Files,
		results:    cfg.Results,
		registry:   cfg.Registry,
		notifier:   cfg.Notifier,
		tracker:    cfg.Tracker,
		location:   loc,
		compressor: compression.NewCompressor(),
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// FileType returns the upper-cased extension of key without the dot
func FileType(key string) string {
	return strings.ToUpper(strings.TrimPrefix(path.Ext(key), "."))
}

func supported(fileType string) bool {
	switch fileType {
	case TypeInfo, TypeLedger, TypeReceiverInfo, TypeInvoice:
		return true
	}
	return false
}

// Process reads the file stored under key and handles it by type. Content
// that was already processed successfully is reported as a duplicate and
// not delivered again. The outcome is recorded unless it is a duplicate.
func (h *Handler) Process(ctx context.Context, key string) (*storage.Result, error) {
	result := &storage.Result{
		Key:      key,
		FileType: FileType(key),
		RunID:    uuid.New().String(),
	}
	logger := h.logger.With(slog.String("key", key), slog.String("run_id", result.RunID))

	err := h.process(ctx, logger, result)
	result.ProcessedAt = time.Now().UTC()

	switch {
	case err != nil:
		result.Status = storage.StatusFailed
		result.Error = err.Error()
		h.metrics.FileProcessed(result.FileType, metrics.OutcomeFailure)
		logger.Error("processing failed", slog.String("error", err.Error()))

		if nerr := h.notifier.Error(ctx, err, key); nerr != nil {
			logger.Warn("failed to report error", slog.String("error", nerr.Error()))
		}
	case result.Status == storage.StatusDuplicate:
		h.metrics.FileProcessed(result.FileType, metrics.OutcomeDuplicate)
		logger.Info("duplicate content skipped", slog.String("checksum", result.Checksum))
	default:
		result.Status = storage.StatusProcessed
		h.metrics.FileProcessed(result.FileType, metrics.OutcomeSuccess)
		if h.tracker != nil && result.Checksum != "" {
			h.tracker.MarkProcessed(result.Checksum)
		}
		logger.Info("file processed", slog.Int("records", result.Records))
	}

	// A duplicate must not replace the outcome it duplicates
	if result.Status != storage.StatusDuplicate {
		if rerr := h.results.RecordResult(ctx, result); rerr != nil {
			logger.Warn("failed to record result", slog.String("error", rerr.Error()))
		}
	}
	return result, err
}

func (h *Handler) process(ctx context.Context, logger *slog.Logger, result *storage.Result) error {
	if !supported(result.FileType) {
		return fmt.Errorf("%q %w", result.FileType, ErrUnsupportedFileType)
	}

	data, err := h.read(ctx, result.Key)
	if err != nil {
		return err
	}
	result.Checksum = reliability.ComputeContentHash(data)

	duplicate, err := h.isDuplicate(ctx, result.Checksum)
	if err != nil {
		return err
	}
	if duplicate {
		result.Status = storage.StatusDuplicate
		return nil
	}

	logger.Info("processing file", slog.String("type", result.FileType), slog.Int("size", len(data)))

	switch result.FileType {
	case TypeInfo:
		return h.notifier.Info(ctx, string(data), result.Key)
	case TypeLedger:
		result.Records, err = h.handleLedger(ctx, result.RunID, data)
		return err
	case TypeReceiverInfo:
		result.Records, err = h.handleReceiverInfo(ctx, logger, result.RunID, data)
		return err
	default:
		return fmt.Errorf("%s: %w", result.FileType, ErrNotImplemented)
	}
}

func (h *Handler) read(ctx context.Context, key string) ([]byte, error) {
	rc, err := h.files.OpenFile(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	data, err = h.compressor.MaybeDecompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", key, err)
	}
	return data, nil
}

func (h *Handler) isDuplicate(ctx context.Context, checksum string) (bool, error) {
	if h.tracker != nil && h.tracker.IsDuplicate(checksum) {
		return true, nil
	}
	_, err := h.results.FindByChecksum(ctx, checksum)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking for duplicates: %w", err)
	}
	return true, nil
}

func (h *Handler) handleLedger(ctx context.Context, runID string, data []byte) (int, error) {
	file, err := ledger.ParseReader(bytes.NewReader(data), ledger.WithLocation(h.location))
	if err != nil {
		return 0, fmt.Errorf("parsing ledger: %w", err)
	}
	for _, row := range file.Rows {
		h.metrics.LedgerRow(row.Status.String())
	}

	return h.registry.PostPayments(ctx, runID, registry.PaymentsFromLedger(file))
}

func (h *Handler) handleReceiverInfo(ctx context.Context, logger *slog.Logger, runID string, data []byte) (int, error) {
	docs, err := stream.ReadAll(bytes.NewReader(data), stream.WithLogger(logger))
	if err != nil {
		return 0, fmt.Errorf("splitting stream: %w", err)
	}
	for _, doc := range docs {
		h.metrics.StreamDocument(doc.Name())
	}

	messages, err := receiverinfo.FromDocuments(docs)
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		logger.Warn("no receiver info documents in stream", slog.Int("documents", len(docs)))
	}

	if err := h.registry.PostReceiverInfo(ctx, runID, messages); err != nil {
		return 0, err
	}
	return len(messages), nil
}

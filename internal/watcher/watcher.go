// Package watcher processes new bank files in the background.
//
// The Watcher polls the file store for keys under a prefix and hands every
// key without a successful outcome to the processor.
//
// # Retry Policy
//
// A file that fails is retried on later polls with exponential backoff.
// After MaxAttempts failures the file is left alone until the process
// restarts or the file is processed through another surface.
//
// # Existing Files
//
// Processing outcomes of the filesystem store are kept in memory. With
// SkipExisting the first poll only records the keys already present, so a
// restart does not deliver old files again.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage"
)

// Processor handles one stored file
type Processor interface {
	Process(ctx context.Context, key string) (*storage.Result, error)
}

// Config holds watcher configuration
type Config struct {
	PollInterval    time.Duration
	Prefix          string
	BatchSize       int
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
	SkipExisting    bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		PollInterval:    30 * time.Second,
		BatchSize:       50,
		MaxAttempts:     5,
		InitialBackoff:  time.Minute,
		MaxBackoff:      time.Hour,
		BackoffMultiple: 2.0,
	}
}

type fileState struct {
	attempts  int
	nextRetry time.Time
	done      bool
}

// Watcher polls the store for new files
type Watcher struct {
	files     storage.FileStore
	results   storage.ResultStore
	processor Processor
	logger    *slog.Logger
	config    Config
	now       func() time.Time

	mu     sync.Mutex
	state  map[string]*fileState
	primed bool

	// Control
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher. Zero fields of cfg take their default values.
func New(files storage.FileStore, results storage.ResultStore, p Processor, cfg *Config, logger *slog.Logger) *Watcher {
	c := *DefaultConfig()
	if cfg != nil {
		c.Prefix = cfg.Prefix
		c.SkipExisting = cfg.SkipExisting
		if cfg.PollInterval > 0 {
			c.PollInterval = cfg.PollInterval
		}
		if cfg.BatchSize > 0 {
			c.BatchSize = cfg.BatchSize
		}
		if cfg.MaxAttempts > 0 {
			c.MaxAttempts = cfg.MaxAttempts
		}
		if cfg.InitialBackoff > 0 {
			c.InitialBackoff = cfg.InitialBackoff
		}
		if cfg.MaxBackoff > 0 {
			c.MaxBackoff = cfg.MaxBackoff
		}
		if cfg.BackoffMultiple > 0 {
			c.BackoffMultiple = cfg.BackoffMultiple
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		files:     files,
		results:   results,
		processor: p,
		logger:    logger,
		config:    c,
		now:       time.Now,
		state:     make(map[string]*fileState),
	}
}

// Start begins background polling
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	w.logger.Info("watcher started", "poll_interval", w.config.PollInterval, "prefix", w.config.Prefix)
}

// Stop gracefully stops the watcher
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
	w.logger.Info("watcher stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll processes up to BatchSize pending files and returns how many were
// attempted
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	keys, err := w.files.ListFiles(ctx, w.config.Prefix)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.primed {
		w.primed = true
		if w.config.SkipExisting {
			for _, key := range keys {
				w.state[key] = &fileState{done: true}
			}
			w.logger.Info("existing files skipped", "count", len(keys))
			return 0, nil
		}
	}

	attempted := 0
	for _, key := range keys {
		if attempted >= w.config.BatchSize {
			break
		}
		if err := ctx.Err(); err != nil {
			return attempted, err
		}

		st := w.state[key]
		if st == nil {
			st = &fileState{}
			w.state[key] = st
		}
		if !w.pending(ctx, key, st) {
			continue
		}

		attempted++
		result, err := w.processor.Process(ctx, key)
		if err == nil {
			st.done = true
			w.logger.Debug("file handled", "key", key, "status", result.Status)
			continue
		}
		w.handleError(key, st, err)
	}
	return attempted, nil
}

func (w *Watcher) pending(ctx context.Context, key string, st *fileState) bool {
	if st.done || st.attempts >= w.config.MaxAttempts {
		return false
	}
	if st.attempts > 0 && w.now().Before(st.nextRetry) {
		return false
	}
	if st.attempts == 0 {
		result, err := w.results.GetResult(ctx, key)
		if err == nil && result.Status == storage.StatusProcessed {
			st.done = true
			return false
		}
	}
	return true
}

func (w *Watcher) handleError(key string, st *fileState, err error) {
	st.attempts++

	if st.attempts >= w.config.MaxAttempts {
		w.logger.Warn("file marked as failed", "key", key, "attempts", st.attempts, "error", err)
		return
	}

	// Calculate next retry time with exponential backoff
	backoff := w.config.InitialBackoff
	for i := 1; i < st.attempts; i++ {
		backoff = time.Duration(float64(backoff) * w.config.BackoffMultiple)
		if backoff > w.config.MaxBackoff {
			backoff = w.config.MaxBackoff
			break
		}
	}
	st.nextRetry = w.now().Add(backoff)

	w.logger.Info("file scheduled for retry",
		"key", key,
		"attempts", st.attempts,
		"next_retry", st.nextRetry,
	)
}

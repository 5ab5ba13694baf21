// Package memory implements storage interfaces in process memory
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage"
)

// Results implements storage.ResultStore
type Results struct {
	mu      sync.RWMutex
	results map[string]*storage.Result
}

// NewResults creates an empty result store
func NewResults() *Results {
	return &Results{results: make(map[string]*storage.Result)}
}

func (s *Results) RecordResult(ctx context.Context, result *storage.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *result
	s.results[result.Key] = &copied
	return nil
}

func (s *Results) GetResult(ctx context.Context, key string) (*storage.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *Results) FindByChecksum(ctx context.Context, checksum string) (*storage.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *storage.Result
	for _, r := range s.results {
		if r.Checksum != checksum || r.Status != storage.StatusProcessed {
			continue
		}
		if latest == nil || r.ProcessedAt.After(latest.ProcessedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (s *Results) ListResults(ctx context.Context, filter *storage.ResultFilter) ([]*storage.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Result
	for _, r := range s.results {
		if filter.Matches(r) {
			copied := *r
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProcessedAt.After(out[j].ProcessedAt)
	})
	if filter != nil && filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Store implements storage.Store
type Store struct {
	*Results

	mu    sync.RWMutex
	files map[string][]byte
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		Results: NewResults(),
		files:   make(map[string][]byte),
	}
}

func (s *Store) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.files[clean]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) PutFile(ctx context.Context, key string, r io.Reader) error {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[clean] = data
	return nil
}

func (s *Store) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.files {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close(ctx context.Context) error { return nil }
func (s *Store) Ping(ctx context.Context) error { return nil }

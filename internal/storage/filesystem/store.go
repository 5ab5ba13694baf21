// Package filesystem implements storage interfaces on a local directory.
//
// Bank files are read from and written to the directory. Processing results
// are kept in memory and are lost on restart.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage/memory"
)

// Store implements storage.Store on a directory
type Store struct {
	*memory.Results

	dir  string
	root *os.Root
}

// NewStore opens dir as a file store
func NewStore(dir string) (*Store, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("opening file store: %w", err)
	}
	return &Store{
		Results: memory.NewResults(),
		dir:     dir,
		root:    root,
	}, nil
}

func (s *Store) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return nil, err
	}

	f, err := s.root.Open(clean)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", key, err)
	}
	return f, nil
}

func (s *Store) PutFile(ctx context.Context, key string, r io.Reader) error {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return err
	}

	if dir := path.Dir(clean); dir != "." {
		if err := os.MkdirAll(filepath.Join(s.dir, filepath.FromSlash(dir)), 0o750); err != nil {
			return fmt.Errorf("creating directory for %s: %w", key, err)
		}
	}

	f, err := s.root.OpenFile(clean, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("creating %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return f.Close()
}

// ListFiles walks the directory. Hidden files and directories are skipped.
func (s *Store) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := fs.WalkDir(s.root.FS(), ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if name != "." && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.HasPrefix(name, prefix) {
			keys = append(keys, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return keys, nil
}

// Close releases the directory handle
func (s *Store) Close(ctx context.Context) error {
	return s.root.Close()
}

// Ping checks that the directory is still accessible
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.root.Stat(".")
	return err
}

/*
Package file provides a flat-file DocumentStore with atomic replacement.

PURPOSE:
  Persists save documents as a single JSON file, written so that no crash
  can destroy the previously-good save:

    1. The document is written to <path>.tmp and fsynced
    2. The existing <path>, if any, is renamed to <path>.bak
    3. <path>.tmp is renamed to <path>

  A crash mid-write leaves a stale primary and possibly a torn .tmp, never
  a half-written primary. A crash between the renames leaves the previous
  generation in .bak and the complete new document in .tmp; Read falls back
  to .bak when the primary is missing, so that state still reads as the
  previous generation rather than as data loss. After a successful write
  the previous generation is retained as .bak.

CONCURRENCY:
  Writes are serialized with a mutex. The engine additionally serializes
  its own Save/Load, so the mutex only matters when one Store is shared by
  several engines.

USAGE:
  st := file.New("./data/inventory.json")
  err := eng.Save(ctx, st)

SEE ALSO:
  - generic/persist.go: DocumentStore contract
  - store/sqlite: database-backed alternative
*/
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/warp/inventory-engine/generic"
)

// Store writes save documents to path with atomic rename-with-backup.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the primary file location.
func (s *Store) Path() string { return s.path }

// BackupPath returns where the previous generation is kept.
func (s *Store) BackupPath() string { return s.path + ".bak" }

// Write persists doc atomically. See the package comment for the crash
// behavior at each step.
func (s *Store) Write(_ context.Context, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create save directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := writeFileSync(tmp, doc); err != nil {
		return fmt.Errorf("write temp save: %w", err)
	}

	// Keep the previous generation reachable before the final rename.
	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, s.BackupPath()); err != nil {
			return fmt.Errorf("rotate backup save: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat save file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("install save file: %w", err)
	}
	return nil
}

// Read returns the current document. A missing primary falls back to the
// backup: a crash between Write's two renames leaves the previous
// generation in .bak and no primary, a state that must read as the old
// document, not as generic.ErrSaveNotFound.
func (s *Store) Read(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		data, err = os.ReadFile(s.BackupPath())
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", generic.ErrSaveNotFound, s.path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read save file: %w", err)
	}
	return data, nil
}

// writeFileSync writes data and flushes it to stable storage before
// returning, so the subsequent rename never installs a torn file.
func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var _ generic.DocumentStore = (*Store)(nil)

// Package store implements AtomicStore: write-temp-then-rename persistence
// for JSON/YAML/text artifacts, the primitive every durable-writing
// component in this module routes through (§4.1).
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// AtomicStore provides atomic file writes and append-only line writes.
type AtomicStore struct{}

// New creates an AtomicStore. It holds no state; its methods are safe for
// concurrent use across goroutines writing to distinct paths.
func New() *AtomicStore {
	return &AtomicStore{}
}

// WriteAtomic writes data to a sibling temporary file in the same
// directory as path, fsyncs it, and renames it over path. On any error the
// temporary file is removed. Readers of path never observe partial
// content (§8: "absence of partial content visible to a concurrent
// reader").
func (s *AtomicStore) WriteAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("atomic write to %s: %w", path, err)
	}
	return nil
}

// AppendLine appends a single line (newline-terminated) to path. Appends
// are ordinary sequential appends with best-effort durability — they are
// not renamed into place, since the journal file is meant to grow, not be
// replaced wholesale.
func (s *AtomicStore) AppendLine(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}
	defer f.Close()

	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(append([]byte{}, line...), '\n')
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return f.Sync()
}

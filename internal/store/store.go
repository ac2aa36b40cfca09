// Package store persists small bot datasets (bet ledger, quotes) as
// JSON documents on local disk. The community is a single guild with a
// handful of writers, so a whole-file read/rewrite with an atomic
// rename is plenty — and keeps the data trivially inspectable.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File is a JSON document store for a single value. Load and Save are
// serialized by an internal mutex; writes go through a temp file and
// rename so a crash never leaves a half-written document.
//
// File is safe for concurrent use.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile creates a File backed by the given path. The file itself is
// created on first Save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Load reads the document into v. A missing file is not an error; v is
// left untouched so callers start from their zero value.
func (f *File) Load(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read %q: %w", f.path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode %q: %w", f.path, err)
	}
	return nil
}

// Save writes v as indented JSON, atomically replacing the previous
// document.
func (f *File) Save(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", f.path, err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("store: create dir %q: %w", dir, err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("store: replace %q: %w", f.path, err)
	}
	return nil
}

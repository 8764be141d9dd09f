// Package storage provides the shared file primitives for minda's
// flat-file stores: atomic whole-file replacement and cross-process file
// locking. Every store that does read-modify-write on a shared file goes
// through these helpers so concurrent writers cannot lose updates.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriteFileAtomic writes data to path via a temp file in the same
// directory followed by a rename, so readers never observe a torn file.
// Parent directories are created as needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// NewLock returns a file lock guarding path. The lock lives in a sibling
// .lock file because the data file itself is replaced by rename on every
// write.
func NewLock(path string) *flock.Flock {
	return flock.New(path + ".lock")
}

// WithLock runs fn while holding the lock. The lock is always released,
// and a release failure is surfaced only when fn itself succeeded.
func WithLock(fl *flock.Flock, fn func() error) error {
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquiring file lock %s: %w", fl.Path(), err)
	}
	fnErr := fn()
	if err := fl.Unlock(); err != nil && fnErr == nil {
		return fmt.Errorf("releasing file lock %s: %w", fl.Path(), err)
	}
	return fnErr
}

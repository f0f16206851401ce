package store

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/distributed-search/imdb-index/internal/indexerr"
)

// LockFile is the advisory LOCK file name within an index directory
// (spec.md §5: "single-writer / many-reader").
const LockFile = "LOCK"

// ReadyFile is the empty marker written last by a completed build
// (spec.md §4.4).
const ReadyFile = "READY"

// BuildLock holds an exclusive advisory flock(2) on an index directory's
// LOCK file for the duration of a build. Two concurrent builds into the
// same directory are detected and rejected; readers never need to take
// this lock.
type BuildLock struct {
	f *os.File
}

// AcquireBuildLock takes an exclusive, non-blocking lock on dir's LOCK
// file, creating dir and the file if necessary. It returns
// indexerr.ErrLockBusy if another build already holds the lock.
func AcquireBuildLock(dir string) (*BuildLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	path := filepath.Join(dir, LockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s", indexerr.ErrLockBusy, dir)
	}
	return &BuildLock{f: f}, nil
}

// Release unlocks and closes the LOCK file. Safe to call on every exit
// path, including after a failed build.
func (l *BuildLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	return l.f.Close()
}

// IsReady reports whether dir contains a READY marker, i.e. whether a
// build has completed successfully and readers may open it.
func IsReady(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ReadyFile))
	return err == nil
}

// WriteReady writes the empty READY marker, signaling that every index
// file in dir was written completely. Must be the last file written by a
// build.
func WriteReady(dir string) error {
	f, err := os.Create(filepath.Join(dir, ReadyFile))
	if err != nil {
		return fmt.Errorf("writing ready marker: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

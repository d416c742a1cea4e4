// Package lock provides single-writer locks used to serialize position
// changes, so that a reindex and the write that claims the vacated slot are
// never interleaved with another one.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// FileName is the name of the lock file inside the config directory.
const FileName = ".reindex.lock"

// retryDelay is how often a blocked FileLock retries.
const retryDelay = 50 * time.Millisecond

// Locker is held across a read-shift-write sequence.
type Locker interface {
	// Lock blocks until the lock is acquired or ctx is done.
	Lock(ctx context.Context) error

	// Unlock releases the lock.
	Unlock() error
}

// Mutex is an in-process Locker.
type Mutex struct {
	ch chan struct{}
}

// NewMutex creates an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{ch: make(chan struct{}, 1)}
}

// Lock implements Locker.
func (m *Mutex) Lock(ctx context.Context) error {
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlock implements Locker. Unlocking an unlocked Mutex is a no-op.
func (m *Mutex) Unlock() error {
	select {
	case <-m.ch:
	default:
	}
	return nil
}

// FileLock is a cross-process Locker backed by gofrs/flock.
// It serializes moviecat processes on one machine only; writers on other
// machines sharing the same hosted store are not excluded.
type FileLock struct {
	path  string
	flock *flock.Flock
}

// NewFileLock creates a file lock at <dir>/.reindex.lock.
func NewFileLock(dir string) *FileLock {
	path := filepath.Join(dir, FileName)
	return &FileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Lock implements Locker.
// If the lock file doesn't exist, it will be created.
func (l *FileLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	locked, err := l.flock.TryLockContext(ctx, retryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock: %s", l.path)
	}
	return nil
}

// Unlock implements Locker.
func (l *FileLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}

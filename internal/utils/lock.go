package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileName = ".jamfroles.lock"
)

// DirLock manages a file-based lock for the output directory.
type DirLock struct {
	lock *flock.Flock
	path string
}

// NewDirLock creates a new lock for the given output directory.
func NewDirLock(dir string) (*DirLock, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute output path: %w", err)
	}
	lockPath := filepath.Join(absPath, lockFileName)
	return &DirLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the directory lock, waiting if necessary.
// It will log a message if it has to wait.
func (l *DirLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		Log.Warnf("Another jamfroles process is writing to %s, waiting for it to finish...", filepath.Dir(l.path))
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases the directory lock.
func (l *DirLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file location.
func (l *DirLock) Path() string { return l.path }

package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created in the data directory for the duration of a run.
const LockFileName = ".gridetl.lock"

// ErrLocked is returned when another run already holds the data directory.
var ErrLocked = errors.New("another run holds the data directory lock")

// RunLock serializes runs over one data directory.
type RunLock struct {
	lock *flock.Flock
}

// AcquireLock takes the lock for dataDir without blocking.
func AcquireLock(dataDir string) (*RunLock, error) {
	path := filepath.Join(dataDir, LockFileName)
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return &RunLock{lock: l}, nil
}

// Path returns the lock file path.
func (l *RunLock) Path() string { return l.lock.Path() }

// Release unlocks. The lock file itself is left in place.
func (l *RunLock) Release() error {
	return l.lock.Unlock()
}

package filesem

import (
	"fmt"
	"os"
)

// fileLock is an advisory, exclusive lock guarding a semaphore file's
// counter. It is cooperative: it only excludes other participants that also
// take the lock before reading or writing the counter, which every Store
// method does.
//
// The lock lives in its own sidecar file next to the counter so that
// truncating and rewriting the counter never disturbs the lock itself.
// It is held only for the duration of a single read-modify-write, never
// across a retry sleep, so waiters cannot starve each other's attempts.
type fileLock struct {
	path string
	f    *os.File
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path}
}

// lock opens the lock file (creating it if absent) and blocks until the
// exclusive lock is granted.
func (l *fileLock) lock() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("opening lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return fmt.Errorf("locking %s: %w", l.path, err)
	}
	l.f = f
	return nil
}

// unlock drops the lock and closes the lock file. Calling unlock without a
// held lock is a no-op.
func (l *fileLock) unlock() error {
	if l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	cerr := l.f.Close()
	l.f = nil
	if err != nil {
		return err
	}
	return cerr
}

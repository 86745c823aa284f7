package queue

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileLock wraps an exclusive, non-blocking advisory lock on a companion
// file (§4.4 step 2). A stale lock file left behind by a crashed process
// is reclaimed transparently: flock is held by the OS, not the file's
// mere existence, so a fresh LOCK_EX|LOCK_NB succeeds against it.
type fileLock struct {
	path string
	f    *os.File
}

// errLockHeld indicates the companion lock is currently held by another
// process; the caller should move on to the next candidate.
var errLockHeld = fmt.Errorf("lock held by another process")

// tryLockFile attempts to acquire an exclusive non-blocking lock on path,
// creating it if absent. Returns errLockHeld on contention.
func tryLockFile(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, errLockHeld
		}
		return nil, fmt.Errorf("flocking %s: %w", path, err)
	}
	return &fileLock{path: path, f: f}, nil
}

// release unlocks and removes the companion lock file (§4.4 step 5: "the
// lock file is removed in a finally step to prevent orphan locks").
func (l *fileLock) release() {
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	l.f.Close()
	os.Remove(l.path)
}

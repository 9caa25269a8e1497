package storage

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

const lockName = ".lock"

// dirLock serialises writers of a history directory. The mutex covers
// goroutines of this process; flock covers other processes sharing the
// directory, such as a CLI run next to a serve.
type dirLock struct {
	mu   sync.Mutex
	path string
}

func newDirLock(dir string) *dirLock {
	return &dirLock{path: filepath.Join(dir, lockName)}
}

// acquire blocks until the directory is held and returns the release func.
// The directory must exist.
func (l *dirLock) acquire() (func(), error) {
	l.mu.Lock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		l.mu.Unlock()
		return nil, err
	}

	return func() {
		// Closing the descriptor drops the flock.
		f.Close()
		l.mu.Unlock()
	}, nil
}

//go:build !windows

package mailbox

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// systemLock is a named, process-wide, blocking, exclusive advisory lock
// backed by a dedicated file at <lockDir>/sl_<name>. It is reentrant-unsafe:
// acquiring two systemLocks for the same name from the same process will
// deadlock -- callers must not do that.
type systemLock struct {
	f *os.File
}

// acquireSystemLock creates (if needed) and blocks until it holds an
// exclusive flock on the lock file for name.
func acquireSystemLock(lockDir, name string) (*systemLock, error) {
	path := filepath.Join(lockDir, "sl_"+name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0664)
	if err != nil {
		return nil, fmt.Errorf("systemlock %v: open %v: %w", name, path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("systemlock %v: flock %v: %w", name, path, err)
	}

	return &systemLock{f: f}, nil
}

// release unlocks and closes the lock file. Idempotent: a second call is a
// no-op.
func (l *systemLock) release() error {
	if l.f == nil {
		return nil
	}

	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	cerr := l.f.Close()
	l.f = nil

	if err != nil {
		return fmt.Errorf("systemlock: unlock: %w", err)
	}
	if cerr != nil {
		return fmt.Errorf("systemlock: close: %w", cerr)
	}
	return nil
}

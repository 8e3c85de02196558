//go:build windows

package mailbox

import "fmt"

// systemLock's flock-based implementation is POSIX-only. Windows is left
// unsupported rather than invent a locking primitive no example in the
// corpus demonstrates.
type systemLock struct{}

func acquireSystemLock(lockDir, name string) (*systemLock, error) {
	return nil, fmt.Errorf("systemlock %v: not supported on windows", name)
}

func (l *systemLock) release() error { return nil }

// Package mailbox implements the atomic file-backed IPC objects the
// gateway and the game process trade data through: named byte-files with
// a one-byte dirty flag, guarded end-to-end by a per-name SystemLock (see
// lock_unix.go).
package mailbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/rqnio/padgate/pkg/minilog"
)

const (
	dirtyClean byte = 0x00
	dirtyDirty byte = 0x01
)

const clientsMailboxName = "cp_clients"

// OpCounter receives one call per completed mailbox operation, for metrics.
// nil is a valid value (no metrics wired).
type OpCounter interface {
	IncMailboxOp(op, name string)
}

// Store is a MailboxStore: the IPC directory and lock directory a gateway
// process was configured with, plus everything needed to perform Mailbox
// operations against it. Paths are carried on the value instead of package
// globals so a process can run multiple stores (tests, future multi-instance
// use) without clobbering each other.
type Store struct {
	IPCDir  string
	LockDir string

	// Metrics, optional.
	Counter OpCounter
}

func New(ipcDir, lockDir string) *Store {
	return &Store{IPCDir: ipcDir, LockDir: lockDir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.IPCDir, name)
}

// mailboxClass buckets a mailbox name into a small, fixed set of metric
// label values. Per-client mailboxes are named "<id>_in"/"<id>_out" and id
// churns as control-pad clients connect and disconnect, so passing name
// straight through as a label would give the counter one series per client
// that ever connected; classifying by suffix keeps the series count bounded
// regardless of how many clients come and go.
func mailboxClass(name string) string {
	switch {
	case name == clientsMailboxName:
		return clientsMailboxName
	case name == "rpc_in", name == "rpc_out":
		return name
	case strings.HasSuffix(name, "_in"):
		return "client_in"
	case strings.HasSuffix(name, "_out"):
		return "client_out"
	default:
		return "other"
	}
}

func (s *Store) count(op, name string) {
	if s.Counter != nil {
		s.Counter.IncMailboxOp(op, mailboxClass(name))
	}
}

// Write atomically appends data to the mailbox named name, creating it if
// necessary, and leaves it dirty.
func (s *Store) Write(name string, data []byte) error {
	lock, err := acquireSystemLock(s.LockDir, name)
	if err != nil {
		return fmt.Errorf("mailbox write %v: %w", name, err)
	}
	defer lock.release()

	path := s.path(name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0664)
	if err != nil {
		return fmt.Errorf("mailbox write %v: open: %w", name, err)
	}
	defer f.Close()

	if _, err := f.WriteAt([]byte{dirtyDirty}, 0); err != nil {
		return fmt.Errorf("mailbox write %v: set dirty: %w", name, err)
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("mailbox write %v: seek end: %w", name, err)
	}

	if len(data) > 0 {
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("mailbox write %v: append: %w", name, err)
		}
	}

	log.Debug("mailbox: wrote %d bytes to %v", len(data), name)
	s.count("write", name)
	return nil
}

// Read returns the payload of the named mailbox without destroying it, and
// clears the dirty flag. A missing mailbox reads as empty.
func (s *Store) Read(name string) ([]byte, error) {
	lock, err := acquireSystemLock(s.LockDir, name)
	if err != nil {
		return nil, fmt.Errorf("mailbox read %v: %w", name, err)
	}
	defer lock.release()

	path := s.path(name)

	f, err := os.OpenFile(path, os.O_RDWR, 0664)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("mailbox read %v: open: %w", name, err)
	}
	defer f.Close()

	if _, err := f.WriteAt([]byte{dirtyClean}, 0); err != nil {
		return nil, fmt.Errorf("mailbox read %v: clear dirty: %w", name, err)
	}

	if _, err := f.Seek(1, io.SeekStart); err != nil {
		return nil, fmt.Errorf("mailbox read %v: seek: %w", name, err)
	}

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("mailbox read %v: read: %w", name, err)
	}

	s.count("read", name)
	return payload, nil
}

// Consume destructively reads the named mailbox: it returns the payload,
// then recreates the file empty with the dirty flag set rather than simply
// clearing it. Leaving the flag dirty is intentional: it's what lets a
// cp_clients listener polling HasNew notice the rewrite that follows a
// client reap even though the payload it cares about hasn't changed yet.
func (s *Store) Consume(name string) ([]byte, error) {
	lock, err := acquireSystemLock(s.LockDir, name)
	if err != nil {
		return nil, fmt.Errorf("mailbox consume %v: %w", name, err)
	}
	defer lock.release()

	path := s.path(name)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("mailbox consume %v: open: %w", name, err)
	}

	if _, err := f.Seek(1, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("mailbox consume %v: seek: %w", name, err)
	}

	payload, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("mailbox consume %v: read: %w", name, err)
	}

	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("mailbox consume %v: remove: %w", name, err)
	}

	nf, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0664)
	if err != nil {
		return nil, fmt.Errorf("mailbox consume %v: recreate: %w", name, err)
	}
	_, werr := nf.Write([]byte{dirtyDirty})
	cerr := nf.Close()
	if werr != nil {
		return nil, fmt.Errorf("mailbox consume %v: write dirty: %w", name, werr)
	}
	if cerr != nil {
		return nil, fmt.Errorf("mailbox consume %v: close: %w", name, cerr)
	}

	log.Debug("mailbox: consumed %d bytes from %v", len(payload), name)
	s.count("consume", name)
	return payload, nil
}

// HasNew reports whether the named mailbox's dirty flag is set: true after
// a Write or a Consume, false after a Read. A missing or empty mailbox is
// never new.
func (s *Store) HasNew(name string) (bool, error) {
	lock, err := acquireSystemLock(s.LockDir, name)
	if err != nil {
		return false, fmt.Errorf("mailbox has_new %v: %w", name, err)
	}
	defer lock.release()

	path := s.path(name)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("mailbox has_new %v: open: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("mailbox has_new %v: stat: %w", name, err)
	}
	if info.Size() == 0 {
		return false, nil
	}

	var buf [1]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return false, fmt.Errorf("mailbox has_new %v: read flag: %w", name, err)
	}

	s.count("has_new", name)
	return buf[0] != dirtyClean, nil
}

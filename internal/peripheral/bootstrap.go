// Package peripheral handles the process-level setup the gateway needs
// before its loop can start: refusing to run as root, and making sure the
// IPC and lock directories exist and are free of mailbox files left over
// from a previous run.
package peripheral

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/rqnio/padgate/pkg/minilog"
)

// RefuseRoot refuses to start the gateway as root: a mailbox file created
// by a root-owned process would be unreadable to the game process running
// as a normal user. The check is POSIX-only, reading $USER, and is a
// no-op on platforms (like Windows) where that variable isn't populated.
func RefuseRoot() error {
	if os.Getenv("USER") == "root" {
		return fmt.Errorf("refusing to run as root")
	}
	return nil
}

// EnsureDirs creates the IPC and lock directories if they don't already
// exist. Failure here is fatal to gateway startup.
func EnsureDirs(ipcDir, lockDir string) error {
	if err := os.MkdirAll(ipcDir, 0755); err != nil {
		return fmt.Errorf("create ipc dir %v: %w", ipcDir, err)
	}
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return fmt.Errorf("create lock dir %v: %w", lockDir, err)
	}
	return nil
}

// ClearStaleMailboxes removes every regular file directly in ipcDir, i.e.
// the mailbox files left by a previous run. Lock files are untouched only
// when the lock directory is a different directory; subdirectories are
// skipped.
// A gateway that reused a stale cp_clients or "<id>_in" file from a prior
// process would hand the game process data belonging to clients that no
// longer exist.
func ClearStaleMailboxes(ipcDir string) error {
	entries, err := os.ReadDir(ipcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read ipc dir %v: %w", ipcDir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(ipcDir, e.Name())
		if err := os.Remove(path); err != nil {
			log.Warn("peripheral: could not clear stale mailbox %v: %v", path, err)
		}
	}

	return nil
}

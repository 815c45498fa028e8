package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockName = "scheduler.lock"

// acquireSpoolLock takes an exclusive lock in spoolDir so two schedulers
// never share transient workspaces.
func acquireSpoolLock(spoolDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(spoolDir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	lock := flock.New(filepath.Join(spoolDir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire spool lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another scheduler holds %s", lock.Path())
	}
	return lock, nil
}

package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

const (
	LockAcquireTimeout = 5 * time.Minute
	LockFileName       = "migrate.lock"
	InstancesDir       = "instances"
)

// mguard takes a shared lock on the migration lock file and records this
// process under the instances directory. An installer that wants to migrate the
// state database signals the recorded PIDs, then takes the lock exclusively.
// The `--migrate` instance skips the guard.
func (a *App) mguard() error {
	release, err := acquireShared(a.RuntimeDir, LockAcquireTimeout)
	if err != nil {
		return err
	}
	a.AddCleanup(release)
	return nil
}

func acquireShared(runtimeDir string, timeout time.Duration) (func() error, error) {
	if err := os.MkdirAll(filepath.Join(runtimeDir, InstancesDir), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Join(runtimeDir, LockFileName), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- unix.Flock(int(f.Fd()), unix.LOCK_SH)
	}()
	select {
	case err := <-done:
		if err != nil {
			_ = f.Close()
			return nil, err
		}
	case <-time.After(timeout):
		_ = f.Close()
		return nil, fmt.Errorf("timeout acquiring shared lock after %v", timeout)
	}

	pidPath := filepath.Join(runtimeDir, InstancesDir, strconv.Itoa(os.Getpid()))
	if err := os.WriteFile(pidPath, nil, 0o600); err != nil {
		_ = f.Close()
		return nil, err
	}

	return func() error {
		_ = os.Remove(pidPath)
		return f.Close() // releases the lock
	}, nil
}

// Instances lists the PIDs recorded under runtimeDir, stale entries included.
func Instances(runtimeDir string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(runtimeDir, InstancesDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, e := range entries {
		if pid, err := strconv.Atoi(e.Name()); err == nil {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids, nil
}

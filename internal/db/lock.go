package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	initialBackoff = 5 * time.Millisecond
	maxBackoff     = 50 * time.Millisecond
)

// ErrLocked is returned when another process holds the instance lock
var ErrLocked = errors.New("storage is in use by another taskbot process")

// InstanceLock is an OS file lock that keeps two bot processes from
// serving the same SQLite file. The OS drops it if the process dies.
type InstanceLock struct {
	path string
	file *os.File
}

// LockPath returns the lock file for a storage DSN. Only SQLite storage
// is locked; the second return is false for every other backend.
func LockPath(dsn string) (string, bool) {
	kind, target, err := ParseDSN(dsn)
	if err != nil || kind != KindSQLite {
		return "", false
	}
	target = strings.TrimPrefix(target, "file:")
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}
	if target == "" || target == ":memory:" {
		return "", false
	}
	return target + ".lock", true
}

// AcquireLock takes the lock at path, retrying with backoff until timeout.
// The error names the current holder when known.
func AcquireLock(path string, timeout time.Duration) (*InstanceLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	l := &InstanceLock{path: path, file: f}

	deadline := time.Now().Add(timeout)
	backoff := initialBackoff
	for {
		if err := l.tryLock(); err == nil {
			l.writeHolder()
			return l, nil
		}
		if !time.Now().Before(deadline) {
			holder := l.holder()
			f.Close()
			return nil, fmt.Errorf("%w (holder %s)", ErrLocked, holder)
		}
		time.Sleep(backoff)
		backoff = min(backoff*2, maxBackoff)
	}
}

// Release drops the lock. Safe to call more than once.
func (l *InstanceLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.file.Truncate(0)
	l.unlock()
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *InstanceLock) writeHolder() {
	l.file.Truncate(0)
	l.file.Seek(0, 0)
	fmt.Fprintf(l.file, "pid:%d\ntime:%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	l.file.Sync()
}

// holder describes the process recorded in the lock file
func (l *InstanceLock) holder() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return "unknown"
	}
	var pid, since string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if v, ok := strings.CutPrefix(line, "pid:"); ok {
			pid = v
		} else if v, ok := strings.CutPrefix(line, "time:"); ok {
			since = v
		}
	}
	if pid == "" {
		return "unknown"
	}
	if n, err := strconv.Atoi(pid); err == nil && !isProcessAlive(n) {
		return fmt.Sprintf("pid %s since %s, process gone", pid, since)
	}
	return fmt.Sprintf("pid %s since %s", pid, since)
}

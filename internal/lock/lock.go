// Package lock provides a file lock that lets a single process at a time
// run a mutating operation against a storage.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// lockSuffix is appended to the storage name to form the lock file name
	lockSuffix = ".lock"
	// DefaultStaleTimeout is the default duration after which a lock held on another host is considered stale
	DefaultStaleTimeout = 30 * time.Minute
)

// LockInfo contains metadata about the lock holder
type LockInfo struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartTime time.Time `json:"start_time"`
	Storage   string    `json:"storage"`
	Operation string    `json:"operation,omitempty"`
}

// OperationLock guards the operations of one storage across processes
type OperationLock struct {
	mu           sync.Mutex
	lockPath     string
	storage      string
	staleTimeout time.Duration
	info         *LockInfo
}

// New creates a lock for storage in lockDir
func New(lockDir, storage string) (*OperationLock, error) {
	if lockDir == "" {
		return nil, fmt.Errorf("lock directory cannot be empty")
	}
	if storage == "" || strings.ContainsAny(storage, `/\`) {
		return nil, fmt.Errorf("invalid storage name %q", storage)
	}
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	return &OperationLock{
		lockPath:     filepath.Join(lockDir, storage+lockSuffix),
		storage:      storage,
		staleTimeout: DefaultStaleTimeout,
	}, nil
}

// SetStaleTimeout sets the duration after which a lock of another host is considered stale
func (l *OperationLock) SetStaleTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.staleTimeout = d
}

// Path returns the lock file path
func (l *OperationLock) Path() string {
	return l.lockPath
}

// Acquire takes the lock for operation. It fails with a *LockError while
// another process, or this one, holds it.
func (l *OperationLock) Acquire(operation string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.info != nil {
		return &LockError{Holder: l.info, Reason: "lock is held by this process"}
	}

	if existing, err := l.readLockInfo(); err == nil {
		if !l.isStale(existing) {
			return &LockError{Holder: existing, Reason: "lock is held by another process"}
		}
		if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}

	hostname, _ := os.Hostname()
	info := &LockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
		Storage:   l.storage,
		Operation: operation,
	}

	// O_EXCL makes creation atomic between competing processes
	file, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			existing, readErr := l.readLockInfo()
			if readErr != nil {
				return fmt.Errorf("lock acquisition race condition: %w", err)
			}
			return &LockError{Holder: existing, Reason: "lock acquired by another process during acquisition"}
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(info); err != nil {
		os.Remove(l.lockPath)
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.info = info
	return nil
}

// Release releases the lock. Releasing a lock that is not held is a no-op.
func (l *OperationLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.info == nil {
		return nil
	}
	held := l.info
	l.info = nil

	existing, err := l.readLockInfo()
	if err != nil {
		return nil
	}
	if !sameHolder(held, existing) {
		return fmt.Errorf("lock was stolen by another process")
	}
	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// Holder returns the current holder, or nil when the lock is free
func (l *OperationLock) Holder() (*LockInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := l.readLockInfo()
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if l.isStale(info) {
		return nil, nil
	}
	return info, nil
}

// ForceRelease removes the lock file whoever holds it
func (l *OperationLock) ForceRelease() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to force remove lock: %w", err)
	}
	l.info = nil
	return nil
}

func (l *OperationLock) readLockInfo() (*LockInfo, error) {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}
	return &info, nil
}

// isStale reports whether the holder is gone. On the same host that means
// the process has exited; for other hosts only the timeout applies.
func (l *OperationLock) isStale(info *LockInfo) bool {
	hostname, _ := os.Hostname()
	if info.Hostname == hostname {
		return !processExists(info.PID)
	}
	return time.Since(info.StartTime) > l.staleTimeout
}

func sameHolder(a, b *LockInfo) bool {
	return a.PID == b.PID && a.Hostname == b.Hostname && a.StartTime.Equal(b.StartTime)
}

// LockError is returned when the lock is held
type LockError struct {
	Holder *LockInfo
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("cannot acquire lock: %s (%s on %s by PID %d on %s since %s)",
			e.Reason,
			e.Holder.Operation,
			e.Holder.Storage,
			e.Holder.PID,
			e.Holder.Hostname,
			e.Holder.StartTime.Format(time.RFC3339),
		)
	}
	return fmt.Sprintf("cannot acquire lock: %s", e.Reason)
}

// IsLockError checks if an error is a LockError
func IsLockError(err error) bool {
	var le *LockError
	return errors.As(err, &le)
}

package lock

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newLock(t *testing.T, dir string) *OperationLock {
	t.Helper()
	l, err := New(dir, "research")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return l
}

func writeHolder(t *testing.T, path string, info LockInfo) {
	t.Helper()
	data, err := json.Marshal(info)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	l := newLock(t, filepath.Join(dir, "locks"))
	if want := filepath.Join(dir, "locks", "research.lock"); l.Path() != want {
		t.Errorf("Path() = %s, want %s", l.Path(), want)
	}
	if l.staleTimeout != DefaultStaleTimeout {
		t.Errorf("staleTimeout = %v, want %v", l.staleTimeout, DefaultStaleTimeout)
	}

	if _, err := New("", "research"); err == nil {
		t.Error("New with empty dir should fail")
	}
	if _, err := New(dir, "../escape"); err == nil {
		t.Error("New with a path in the storage name should fail")
	}
}

func TestAcquireRelease(t *testing.T) {
	l := newLock(t, t.TempDir())

	if err := l.Acquire("DELETE"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	holder, err := l.Holder()
	if err != nil {
		t.Fatalf("Holder failed: %v", err)
	}
	if holder == nil || holder.PID != os.Getpid() || holder.Operation != "DELETE" || holder.Storage != "research" {
		t.Errorf("Holder() = %+v", holder)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Error("lock file should be removed after release")
	}
	if holder, _ := l.Holder(); holder != nil {
		t.Errorf("Holder() after release = %+v, want nil", holder)
	}

	if err := l.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got %v", err)
	}
}

func TestAcquire_NotReentrant(t *testing.T) {
	l := newLock(t, t.TempDir())
	if err := l.Acquire("MKDIR"); err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	err := l.Acquire("RENAME")
	if !IsLockError(err) {
		t.Fatalf("Acquire while held = %v, want LockError", err)
	}
}

func TestAcquire_HeldByOtherInstance(t *testing.T) {
	dir := t.TempDir()
	first := newLock(t, dir)
	second := newLock(t, dir)

	if err := first.Acquire("PASTE"); err != nil {
		t.Fatal(err)
	}
	defer first.Release()

	err := second.Acquire("DELETE")
	var le *LockError
	if !errors.As(err, &le) {
		t.Fatalf("Acquire = %v, want LockError", err)
	}
	if le.Holder.Operation != "PASTE" {
		t.Errorf("holder operation = %q, want PASTE", le.Holder.Operation)
	}
}

func TestAcquire_StaleLocks(t *testing.T) {
	hostname, _ := os.Hostname()

	tests := []struct {
		name  string
		info  LockInfo
		stale bool
	}{
		{"dead process on this host", LockInfo{PID: 999999999, Hostname: hostname, StartTime: time.Now()}, true},
		{"live process on this host", LockInfo{PID: os.Getpid(), Hostname: hostname, StartTime: time.Now().Add(-time.Hour)}, false},
		{"old lock on another host", LockInfo{PID: 1, Hostname: "elsewhere", StartTime: time.Now().Add(-time.Hour)}, true},
		{"recent lock on another host", LockInfo{PID: 1, Hostname: "elsewhere", StartTime: time.Now()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLock(t, t.TempDir())
			writeHolder(t, l.Path(), tt.info)

			err := l.Acquire("UNDELETE")
			if tt.stale && err != nil {
				t.Errorf("Acquire over stale lock failed: %v", err)
			}
			if !tt.stale && !IsLockError(err) {
				t.Errorf("Acquire over live lock = %v, want LockError", err)
			}
			l.Release()
		})
	}
}

func TestRelease_Stolen(t *testing.T) {
	l := newLock(t, t.TempDir())
	if err := l.Acquire("DELETE"); err != nil {
		t.Fatal(err)
	}
	hostname, _ := os.Hostname()
	writeHolder(t, l.Path(), LockInfo{PID: os.Getpid(), Hostname: hostname, StartTime: time.Now().Add(time.Minute)})

	if err := l.Release(); err == nil {
		t.Error("Release of a stolen lock should fail")
	}
	if _, err := os.Stat(l.Path()); err != nil {
		t.Error("Release must not remove another holder's lock")
	}
}

func TestForceRelease(t *testing.T) {
	l := newLock(t, t.TempDir())
	hostname, _ := os.Hostname()
	writeHolder(t, l.Path(), LockInfo{PID: os.Getpid(), Hostname: hostname, StartTime: time.Now()})

	if err := l.ForceRelease(); err != nil {
		t.Fatalf("ForceRelease failed: %v", err)
	}
	if err := l.Acquire("MKDIR"); err != nil {
		t.Errorf("Acquire after ForceRelease failed: %v", err)
	}
	l.Release()
}

func TestAcquire_Concurrent(t *testing.T) {
	dir := t.TempDir()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired []*OperationLock
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := New(dir, "research")
			if err != nil {
				t.Error(err)
				return
			}
			if l.Acquire("PASTE") == nil {
				mu.Lock()
				acquired = append(acquired, l)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(acquired) != 1 {
		t.Fatalf("%d instances acquired the lock, want 1", len(acquired))
	}
	acquired[0].Release()
}

func TestLockError(t *testing.T) {
	err := &LockError{Reason: "busy"}
	if err.Error() != "cannot acquire lock: busy" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !IsLockError(errors.Join(errors.New("x"), err)) {
		t.Error("IsLockError should see wrapped lock errors")
	}
}

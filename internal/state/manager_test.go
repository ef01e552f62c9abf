package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/Ning0612/mercury/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestNewManager(t *testing.T) {
	tmpDir := t.TempDir()

	manager, err := NewManager(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	defer manager.Close()

	if manager.db == nil {
		t.Error("Database connection is nil")
	}

	dbPath := filepath.Join(tmpDir, "mercury.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNewManager_EmptyDir(t *testing.T) {
	if _, err := NewManager(""); err == nil {
		t.Error("Expected error for empty directory, got nil")
	}
}

func TestSaveAndHistory(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	record := OperationRecord{
		Operation: domain.OpPaste,
		Storage:   "default",
		Paths:     []string{"/coll/a.txt", "/coll/b.txt"},
		Target:    "/coll/dir",
		StartTime: time.Now().Add(-time.Second),
		EndTime:   time.Now(),
		Status:    StatusSuccess,
	}
	if err := manager.SaveOperation(ctx, record); err != nil {
		t.Fatalf("Failed to save operation: %v", err)
	}

	history, err := manager.History(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(history))
	}

	ignore := cmpopts.IgnoreFields(OperationRecord{}, "ID", "StartTime", "EndTime")
	if diff := cmp.Diff(record, history[0], ignore); diff != "" {
		t.Errorf("History() mismatch (-want +got):\n%s", diff)
	}
	if history[0].ID == 0 {
		t.Error("Expected an assigned ID")
	}
	if history[0].Failed() {
		t.Error("Expected successful record")
	}
}

func TestHistory_NewestFirstAndLimit(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	ops := []domain.OperationCode{domain.OpMkdir, domain.OpRename, domain.OpDelete, domain.OpUndelete}
	for i, op := range ops {
		err := manager.SaveOperation(ctx, OperationRecord{
			Operation: op,
			Paths:     []string{"/c/x"},
			StartTime: base.Add(time.Duration(i) * time.Minute),
			EndTime:   base.Add(time.Duration(i)*time.Minute + time.Second),
			Status:    StatusSuccess,
		})
		if err != nil {
			t.Fatalf("Failed to save operation %d: %v", i, err)
		}
	}

	history, err := manager.History(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(history))
	}
	if history[0].Operation != domain.OpUndelete || history[1].Operation != domain.OpDelete {
		t.Errorf("Unexpected order: %s, %s", history[0].Operation, history[1].Operation)
	}
}

func TestLastFailure(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	last, err := manager.LastFailure(ctx)
	if err != nil {
		t.Fatalf("LastFailure on empty db: %v", err)
	}
	if last != nil {
		t.Fatalf("Expected nil, got %+v", last)
	}

	now := time.Now()
	records := []OperationRecord{
		{Operation: domain.OpDelete, Paths: []string{"/c/old"}, StartTime: now.Add(-3 * time.Minute), EndTime: now, Status: StatusFailed, Error: "forbidden"},
		{Operation: domain.OpMkdir, Paths: []string{"/c/new"}, StartTime: now.Add(-2 * time.Minute), EndTime: now, Status: StatusFailed, Error: "conflict"},
		{Operation: domain.OpRename, Paths: []string{"/c/a"}, Target: "/c/b", StartTime: now.Add(-time.Minute), EndTime: now, Status: StatusSuccess},
	}
	for _, r := range records {
		if err := manager.SaveOperation(ctx, r); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
	}

	last, err = manager.LastFailure(ctx)
	if err != nil {
		t.Fatalf("LastFailure: %v", err)
	}
	if last == nil || last.Operation != domain.OpMkdir || last.Error != "conflict" {
		t.Errorf("Unexpected last failure: %+v", last)
	}
}

func TestSaveOperation_Invalid(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		record OperationRecord
	}{
		{"bad status", OperationRecord{Operation: domain.OpMkdir, Status: "partial"}},
		{"bad operation", OperationRecord{Operation: "SYNC", Status: StatusSuccess}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.record.StartTime = time.Now()
			tt.record.EndTime = time.Now()
			if err := manager.SaveOperation(ctx, tt.record); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestHistory_InvalidLimit(t *testing.T) {
	manager := newTestManager(t)

	for _, limit := range []int{0, -1} {
		if _, err := manager.History(context.Background(), limit); err == nil {
			t.Errorf("Expected error for limit %d", limit)
		}
	}
}

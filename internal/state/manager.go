package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ning0612/mercury/internal/domain"
)

// Operation statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Manager persists the history of file operations
type Manager struct {
	db *sql.DB
}

// OperationRecord is a single finished file operation
type OperationRecord struct {
	ID        int64                `json:"id" yaml:"id"`
	Operation domain.OperationCode `json:"operation" yaml:"operation"`
	Storage   string               `json:"storage" yaml:"storage"`
	Paths     []string             `json:"paths" yaml:"paths"`
	Target    string               `json:"target,omitempty" yaml:"target,omitempty"`
	StartTime time.Time            `json:"startTime" yaml:"startTime"`
	EndTime   time.Time            `json:"endTime" yaml:"endTime"`
	Status    string               `json:"status" yaml:"status"`
	Error     string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the operation ended with an error
func (r OperationRecord) Failed() bool {
	return r.Status == StatusFailed
}

// NewManager opens (and creates) the history database in dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, "mercury.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection avoids "database is locked" between writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation TEXT NOT NULL,
		storage TEXT NOT NULL DEFAULT '',
		paths TEXT NOT NULL DEFAULT '[]',
		target TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_operations_time ON operations(start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_operations_status ON operations(status);
	`

	_, err := m.db.Exec(schema)
	return err
}

// SaveOperation records a finished operation
func (m *Manager) SaveOperation(ctx context.Context, record OperationRecord) error {
	if record.Status != StatusSuccess && record.Status != StatusFailed {
		return fmt.Errorf("invalid status: %s (must be 'success' or 'failed')", record.Status)
	}
	if !record.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %q", record.Operation)
	}

	paths := record.Paths
	if paths == nil {
		paths = []string{}
	}
	encoded, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("failed to encode paths: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO operations (operation, storage, paths, target, start_time, end_time, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(record.Operation),
		record.Storage,
		string(encoded),
		record.Target,
		record.StartTime,
		record.EndTime,
		record.Status,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save operation record: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, operation, storage, paths, target, start_time, end_time, status, error FROM operations`

// History returns the most recent operations, newest first
func (m *Manager) History(ctx context.Context, limit int) ([]OperationRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := m.db.QueryContext(ctx, selectColumns+` ORDER BY start_time DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []OperationRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// LastFailure returns the most recent failed operation, or nil when there is none
func (m *Manager) LastFailure(ctx context.Context) (*OperationRecord, error) {
	row := m.db.QueryRowContext(ctx, selectColumns+` WHERE status = ? ORDER BY start_time DESC, id DESC LIMIT 1`, StatusFailed)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last failure: %w", err)
	}
	return &record, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (OperationRecord, error) {
	var (
		record  OperationRecord
		op      string
		paths   string
		errText sql.NullString
	)
	err := s.Scan(
		&record.ID,
		&op,
		&record.Storage,
		&paths,
		&record.Target,
		&record.StartTime,
		&record.EndTime,
		&record.Status,
		&errText,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return record, err
		}
		return record, fmt.Errorf("failed to scan record: %w", err)
	}
	record.Operation = domain.OperationCode(op)
	record.Error = errText.String
	if err := json.Unmarshal([]byte(paths), &record.Paths); err != nil {
		return record, fmt.Errorf("failed to decode paths of record %d: %w", record.ID, err)
	}
	return record, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

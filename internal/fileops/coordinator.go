// Package fileops serializes mutating file operations and derives which
// operations are currently allowed.
package fileops

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
	"github.com/Ning0612/mercury/internal/lock"
	"github.com/Ning0612/mercury/internal/logger"
	"github.com/Ning0612/mercury/internal/state"
)

// Operation describes a single mutating call
type Operation struct {
	Code domain.OperationCode

	// Paths are the paths the operation acts on
	Paths []string

	// Target is the destination path for PASTE and RENAME
	Target string
}

// Func performs the operation against the backend
type Func func(ctx context.Context) error

// Invalidator drops cached listings and stats after a mutation
type Invalidator interface {
	Invalidate(paths ...string)
}

// Recorder stores finished operations
type Recorder interface {
	SaveOperation(ctx context.Context, record state.OperationRecord) error
}

// satisfied by *selection.Selection and *clipboard.Clipboard
type selectionClearer interface {
	DeselectAll()
}

type clipboardClearer interface {
	Clear()
}

// Guard serializes operations with other processes, e.g. *lock.OperationLock
type Guard interface {
	Acquire(operation string) error
	Release() error
}

// Options configures a Coordinator; every field is optional
type Options struct {
	Storage     string
	Invalidator Invalidator
	Selection   selectionClearer
	Clipboard   clipboardClearer
	Recorder    Recorder
	Guard       Guard
}

// Coordinator allows a single active operation at a time. A call made
// while another operation is active fails immediately instead of waiting.
type Coordinator struct {
	mu     sync.Mutex
	active domain.OperationCode
	opts   Options
}

// NewCoordinator creates an idle coordinator
func NewCoordinator(opts Options) *Coordinator {
	return &Coordinator{opts: opts}
}

// Active returns the running operation, "" when idle
func (c *Coordinator) Active() domain.OperationCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Busy reports whether an operation is running
func (c *Coordinator) Busy() bool {
	return c.Active() != ""
}

func (c *Coordinator) begin(code domain.OperationCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != "" {
		return fmt.Errorf("%w: %s is running", domain.ErrOperationInProgress, c.active)
	}
	c.active = code
	return nil
}

func (c *Coordinator) acquire(code domain.OperationCode) error {
	if c.opts.Guard == nil {
		return nil
	}
	err := c.opts.Guard.Acquire(string(code))
	if lock.IsLockError(err) {
		return fmt.Errorf("%w: %v", domain.ErrOperationInProgress, err)
	}
	return err
}

func (c *Coordinator) release() {
	if c.opts.Guard == nil {
		return
	}
	if err := c.opts.Guard.Release(); err != nil {
		logger.Get().Warn("failed to release operation lock", "error", err)
	}
}

func (c *Coordinator) end() {
	c.mu.Lock()
	c.active = ""
	c.mu.Unlock()
}

// Run executes fn as operation op. On success the affected listings are
// invalidated, the selection is cleared and, for PASTE, the clipboard too.
// On error a *Failure is returned whose Retry repeats the identical call.
func (c *Coordinator) Run(ctx context.Context, op Operation, fn Func) error {
	if !op.Code.IsValid() {
		return fmt.Errorf("%w: unknown operation %q", domain.ErrOperationDisabled, op.Code)
	}
	if err := c.begin(op.Code); err != nil {
		return err
	}
	if err := c.acquire(op.Code); err != nil {
		c.end()
		return err
	}

	start := time.Now()
	log := logger.With("op", string(op.Code), "storage", c.opts.Storage)
	log.Debug("file operation started", "paths", op.Paths, "target", op.Target)

	err := fn(ctx)
	c.release()
	c.end()
	c.record(ctx, op, start, err)

	if err != nil {
		log.Warn("file operation failed", "error", err, "duration", time.Since(start))
		return c.failure(op, fn, err)
	}

	log.Info("file operation completed", "paths", len(op.Paths), "duration", time.Since(start))
	c.afterSuccess(op)
	return nil
}

func (c *Coordinator) afterSuccess(op Operation) {
	if c.opts.Invalidator != nil {
		c.opts.Invalidator.Invalidate(affectedPaths(op)...)
	}
	if c.opts.Selection != nil {
		c.opts.Selection.DeselectAll()
	}
	if op.Code == domain.OpPaste && c.opts.Clipboard != nil {
		c.opts.Clipboard.Clear()
	}
}

func (c *Coordinator) failure(op Operation, fn Func, err error) *Failure {
	f := &Failure{
		Op:      op,
		Message: failureMessages[op.Code],
		Err:     err,
	}

	if op.Code == domain.OpMkdir && errors.Is(err, domain.ErrAlreadyExists) {
		f.Message = "Directory name must be unique"
		f.Detail = "Directory with this name already exists and was marked as deleted.\n" +
			"Please delete the existing directory permanently or choose a unique name."
		f.Validation = true
		return f
	}

	f.Retry = func(ctx context.Context) error {
		return c.Run(ctx, op, fn)
	}
	return f
}

func (c *Coordinator) record(ctx context.Context, op Operation, start time.Time, opErr error) {
	if c.opts.Recorder == nil {
		return
	}

	rec := state.OperationRecord{
		Operation: op.Code,
		Storage:   c.opts.Storage,
		Paths:     op.Paths,
		Target:    op.Target,
		StartTime: start,
		EndTime:   time.Now(),
		Status:    state.StatusSuccess,
	}
	if opErr != nil {
		rec.Status = state.StatusFailed
		rec.Error = opErr.Error()
	}

	if err := c.opts.Recorder.SaveOperation(context.WithoutCancel(ctx), rec); err != nil {
		logger.Get().Warn("failed to record file operation", "op", string(op.Code), "error", err)
	}
}

// affectedPaths lists the paths whose cached state is stale after op
func affectedPaths(op Operation) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range op.Paths {
		add(p)
		add(fileutil.ParentPath(p))
	}
	if op.Target != "" {
		add(op.Target)
		if op.Code == domain.OpRename {
			add(fileutil.ParentPath(op.Target))
		}
	}
	return out
}

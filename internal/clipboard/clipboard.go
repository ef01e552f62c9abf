// Package clipboard holds cut and copy state between file operations.
package clipboard

import (
	"slices"
	"sync"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
)

// State is an immutable view of the clipboard
type State struct {
	Method           domain.ClipboardMethod `json:"method" yaml:"method"`
	Filenames        []string               `json:"filenames" yaml:"filenames"`
	LinkedEntityType string                 `json:"linkedEntityType,omitempty" yaml:"linkedEntityType,omitempty"`
}

// IsEmpty reports whether there is nothing to paste
func (s State) IsEmpty() bool {
	return len(s.Filenames) == 0
}

// HasItemsIn reports whether any clipboard item lives directly in dir
func (s State) HasItemsIn(dir string) bool {
	target := fileutil.Normalize(dir)
	for _, f := range s.Filenames {
		if fileutil.ParentPath(f) == target {
			return true
		}
	}
	return false
}

// Clipboard is safe for concurrent use. The zero value is an empty
// clipboard in CUT mode.
type Clipboard struct {
	mu    sync.RWMutex
	state State
}

// New creates an empty clipboard
func New() *Clipboard {
	return &Clipboard{state: State{Method: domain.MethodCut}}
}

// Cut replaces the clipboard contents with paths to be moved
func (c *Clipboard) Cut(paths []string, linkedEntityType string) {
	c.set(domain.MethodCut, paths, linkedEntityType)
}

// Copy replaces the clipboard contents with paths to be copied
func (c *Clipboard) Copy(paths []string, linkedEntityType string) {
	c.set(domain.MethodCopy, paths, linkedEntityType)
}

func (c *Clipboard) set(method domain.ClipboardMethod, paths []string, linkedEntityType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = State{
		Method:           method,
		Filenames:        slices.Clone(paths),
		LinkedEntityType: linkedEntityType,
	}
}

// Clear empties the clipboard. The method is kept.
func (c *Clipboard) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Filenames = nil
	c.state.LinkedEntityType = ""
}

// IsEmpty reports whether there is nothing to paste
func (c *Clipboard) IsEmpty() bool {
	return c.Len() == 0
}

// Len returns the number of paths on the clipboard
func (c *Clipboard) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.state.Filenames)
}

// Snapshot returns a copy of the current state
func (c *Clipboard) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.state
	if s.Method == "" {
		s.Method = domain.MethodCut
	}
	s.Filenames = slices.Clone(s.Filenames)
	return s
}

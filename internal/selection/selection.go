// Package selection tracks the selected entries of a file listing.
package selection

import (
	"slices"
	"sync"
)

// Selection is an ordered set of selected paths, safe for concurrent use
type Selection struct {
	mu    sync.RWMutex
	paths []string
}

// New creates an empty selection
func New() *Selection {
	return &Selection{}
}

// Select adds paths to the selection
func (s *Selection) Select(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range paths {
		if !slices.Contains(s.paths, p) {
			s.paths = append(s.paths, p)
		}
	}
}

// Deselect removes paths from the selection
func (s *Selection) Deselect(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paths = slices.DeleteFunc(s.paths, func(p string) bool {
		return slices.Contains(paths, p)
	})
}

// Toggle flips the selection state of a path
func (s *Selection) Toggle(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := slices.Index(s.paths, path); idx >= 0 {
		s.paths = slices.Delete(s.paths, idx, idx+1)
		return
	}
	s.paths = append(s.paths, path)
}

// SelectAll replaces the selection with the given paths
func (s *Selection) SelectAll(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paths = s.paths[:0]
	for _, p := range paths {
		if !slices.Contains(s.paths, p) {
			s.paths = append(s.paths, p)
		}
	}
}

// DeselectAll clears the selection
func (s *Selection) DeselectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = nil
}

// Highlight selects only path. If path already is the only selected
// entry it is deselected instead, like clicking a row twice.
func (s *Selection) Highlight(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.paths) == 1 && s.paths[0] == path {
		s.paths = nil
		return
	}
	s.paths = []string{path}
}

// IsSelected reports whether path is selected
func (s *Selection) IsSelected(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.paths, path)
}

// Selected returns the selected paths in selection order
func (s *Selection) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.paths)
}

// Len returns the number of selected paths
func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}

// MetadataTarget returns the path whose metadata should be shown: the
// selected path when exactly one is selected, the opened directory otherwise
func (s *Selection) MetadataTarget(openedPath string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.paths) == 1 {
		return s.paths[0]
	}
	return openedPath
}

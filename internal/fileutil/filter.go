package fileutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Ning0612/mercury/internal/domain"
)

// Filter selects listing entries by glob pattern
type Filter struct {
	Include []string
	Exclude []string
}

// Validate checks that every pattern is well formed
func (f Filter) Validate() error {
	for _, p := range append(append([]string{}, f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// Match checks a single entry. Patterns without a separator are matched
// against the basename, all others against the path relative to the root.
func (f Filter) Match(e domain.FileEntry) bool {
	if len(f.Include) > 0 && !matchAny(f.Include, e) {
		return false
	}
	return !matchAny(f.Exclude, e)
}

// Apply returns the entries accepted by the filter
func (f Filter) Apply(entries []domain.FileEntry) []domain.FileEntry {
	if len(f.Include) == 0 && len(f.Exclude) == 0 {
		return entries
	}
	out := make([]domain.FileEntry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

func matchAny(patterns []string, e domain.FileEntry) bool {
	for _, p := range patterns {
		target := StrippedPath(e.Filename)
		if !strings.Contains(p, PathSeparator) {
			target = Basename(e.Filename)
		}
		if ok, _ := doublestar.Match(p, target); ok {
			return true
		}
	}
	return false
}

// SortEntries orders a listing directories first, then by name
func SortEntries(entries []domain.FileEntry, h domain.Hierarchy) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := IsDirectory(&entries[i], h), IsDirectory(&entries[j], h)
		if di != dj {
			return di
		}
		return entries[i].Basename < entries[j].Basename
	})
}

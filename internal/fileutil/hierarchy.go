package fileutil

import (
	"fmt"
	"slices"

	"github.com/Ning0612/mercury/internal/domain"
)

// HierarchyLevelByType looks up the level for a linked entity type
func HierarchyLevelByType(h domain.Hierarchy, typeIRI string) (domain.HierarchyLevel, bool) {
	if typeIRI == "" {
		return domain.HierarchyLevel{}, false
	}
	return h.Level(typeIRI)
}

// IsDirectory reports whether an entry is a directory. Entries linked to a
// hierarchy level are directories by definition; anything else relies on
// the backend's collection flag.
func IsDirectory(entry *domain.FileEntry, h domain.Hierarchy) bool {
	if entry == nil {
		return false
	}
	if _, ok := HierarchyLevelByType(h, entry.LinkedEntityType); ok {
		return true
	}
	return entry.IsCollection
}

// AllowedDirectoryTypes returns the types that may be created below a
// directory of parentType. An empty parent type means the storage root.
func AllowedDirectoryTypes(h domain.Hierarchy, parentType string) []string {
	if parentType == "" {
		return h.Roots()
	}
	level, ok := h.Level(parentType)
	if !ok {
		return nil
	}
	return slices.Clone(level.Children)
}

// CanEditHierarchyLevel reports whether the user may create or change
// directories of the given type. Root levels are reserved for admins.
func CanEditHierarchyLevel(user *domain.User, h domain.Hierarchy, typeIRI string) bool {
	if user == nil {
		return false
	}
	if user.Admin() {
		return true
	}
	level, ok := h.Level(typeIRI)
	return ok && !level.IsRoot
}

// ValidateTypeForParent rejects directory types the server would refuse
// under the given parent type
func ValidateTypeForParent(h domain.Hierarchy, typeIRI, parentType string) error {
	if len(h) == 0 {
		return domain.ErrHierarchyUnavailable
	}
	if _, ok := h.Level(typeIRI); !ok {
		return fmt.Errorf("%w: %s is not a hierarchy level", domain.ErrInvalidType, typeIRI)
	}
	if !slices.Contains(AllowedDirectoryTypes(h, parentType), typeIRI) {
		if parentType == "" {
			return fmt.Errorf("%w: %s cannot be created at the root", domain.ErrInvalidType, typeIRI)
		}
		return fmt.Errorf("%w: %s is not allowed under %s", domain.ErrInvalidType, typeIRI, parentType)
	}
	return nil
}

package fileops

import (
	"slices"

	"github.com/Ning0612/mercury/internal/clipboard"
	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
)

// ControlState is everything the operation controls depend on
type ControlState struct {
	WritingEnabled  bool
	ShowDeleted     bool
	OpenedDirectory domain.OpenedDirectory
	Hierarchy       domain.Hierarchy
	User            *domain.User

	// Files is the current listing; Selected refers to its filenames
	Files     []domain.FileEntry
	Selected  []string
	Clipboard clipboard.State
	Busy      bool
}

// Control is the state of a single operation button
type Control struct {
	Visible bool `json:"visible" yaml:"visible"`
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Allowed reports whether the operation can be started
func (c Control) Allowed() bool {
	return c.Visible && c.Enabled
}

// Controls holds the state of every file operation
type Controls struct {
	Mkdir    Control `json:"mkdir" yaml:"mkdir"`
	Rename   Control `json:"rename" yaml:"rename"`
	Delete   Control `json:"delete" yaml:"delete"`
	Undelete Control `json:"undelete" yaml:"undelete"`
	Copy     Control `json:"copy" yaml:"copy"`
	Cut      Control `json:"cut" yaml:"cut"`
	Paste    Control `json:"paste" yaml:"paste"`

	// AllowedTypes are the directory types that may be created here
	AllowedTypes []string `json:"allowedTypes,omitempty" yaml:"allowedTypes,omitempty"`
}

// ComputeControls derives which operations are visible and enabled
func ComputeControls(s ControlState) Controls {
	allowedTypes := fileutil.AllowedDirectoryTypes(s.Hierarchy, s.OpenedDirectory.DirectoryType)

	// users without edit rights on this level get no operations at all
	if len(allowedTypes) > 0 && !fileutil.CanEditHierarchyLevel(s.User, s.Hierarchy, allowedTypes[0]) {
		return Controls{AllowedTypes: allowedTypes}
	}

	selected := selectedItems(s.Files, s.Selected)
	deleted := 0
	for _, f := range selected {
		if f.IsDeleted() {
			deleted++
		}
	}

	noneSelected := len(s.Selected) == 0
	deletedSelected := deleted > 0
	isRoot := fileutil.IsRoot(s.OpenedDirectory.Path)
	external := s.OpenedDirectory.IsExternalStorage

	c := Controls{AllowedTypes: allowedTypes}

	c.Mkdir = Control{
		Visible: s.WritingEnabled,
		Enabled: !s.Busy,
	}
	c.Rename = Control{
		Visible: s.WritingEnabled,
		Enabled: len(s.Selected) == 1 && !deletedSelected && !s.Busy,
	}
	c.Delete = Control{
		Visible: s.WritingEnabled,
		Enabled: !noneSelected && !s.Busy && (!deletedSelected || s.User.Admin()),
	}
	c.Undelete = Control{
		Visible: s.WritingEnabled && s.ShowDeleted,
		Enabled: !noneSelected && deleted == len(selected) && !s.Busy,
	}
	c.Copy = Control{
		Visible: !external && !isRoot,
		Enabled: !noneSelected && !deletedSelected && !s.Busy,
	}
	c.Cut = Control{
		Visible: s.WritingEnabled && !isRoot,
		Enabled: !noneSelected && !deletedSelected && !s.Busy,
	}
	c.Paste = Control{
		Visible: s.WritingEnabled && !isRoot,
		Enabled: !PasteDisabled(s, allowedTypes) && !deletedSelected && !s.Busy,
	}
	return c
}

// PasteDisabled reports whether the clipboard cannot be pasted into the
// opened directory: nothing to paste, a cut onto the items' own parent, or
// a directory type the opened level does not accept
func PasteDisabled(s ControlState, allowedTypes []string) bool {
	cb := s.Clipboard
	if !s.WritingEnabled || cb.IsEmpty() {
		return true
	}
	if cb.Method == domain.MethodCut && cb.HasItemsIn(s.OpenedDirectory.Path) {
		return true
	}
	return !typeAllowed(s.Hierarchy, cb.LinkedEntityType, allowedTypes)
}

// typeAllowed checks a clipboard type against the opened level. Types that
// are not hierarchy levels (plain files and directories) go anywhere.
func typeAllowed(h domain.Hierarchy, typeIRI string, allowedTypes []string) bool {
	if typeIRI == MixedTypes {
		return false
	}
	if _, ok := fileutil.HierarchyLevelByType(h, typeIRI); !ok {
		return true
	}
	return slices.Contains(allowedTypes, typeIRI)
}

func selectedItems(files []domain.FileEntry, selected []string) []domain.FileEntry {
	var out []domain.FileEntry
	for _, f := range files {
		if slices.Contains(selected, f.Filename) {
			out = append(out, f)
		}
	}
	return out
}

// MixedTypes is recorded on the clipboard for items of more than one
// hierarchy level. No directory accepts them together.
const MixedTypes = "mixed"

// ClipboardType returns the linked entity type recorded on the clipboard
// for a set of items: the hierarchy type shared by the typed items, "" when
// none is typed and MixedTypes when they differ
func ClipboardType(items []domain.FileEntry, h domain.Hierarchy) string {
	found := ""
	for _, f := range items {
		if _, ok := fileutil.HierarchyLevelByType(h, f.LinkedEntityType); !ok {
			continue
		}
		if found != "" && found != f.LinkedEntityType {
			return MixedTypes
		}
		found = f.LinkedEntityType
	}
	return found
}

package domain

import (
	"strings"
	"time"
)

// FileEntry represents a file or directory as reported by the file API
type FileEntry struct {
	// Filename is the full path from the storage root, e.g. "/dept/study/a.txt"
	Filename string `json:"filename" yaml:"filename"`

	// Basename is the last path segment
	Basename string `json:"basename" yaml:"basename"`

	// IsCollection is the backend's own directory flag
	IsCollection bool `json:"iscollection" yaml:"iscollection"`

	// LinkedEntityIRI is the metadata subject associated with the path
	LinkedEntityIRI string `json:"linkedEntityIri,omitempty" yaml:"linkedEntityIri,omitempty"`

	// LinkedEntityType is the type IRI of the linked entity (a hierarchy level for directories)
	LinkedEntityType string `json:"linkedEntityType,omitempty" yaml:"linkedEntityType,omitempty"`

	// Size in bytes (0 for directories)
	Size int64 `json:"size,omitempty" yaml:"size,omitempty"`

	DateCreated  time.Time `json:"dateCreated,omitempty" yaml:"dateCreated,omitempty"`
	DateModified time.Time `json:"dateModified,omitempty" yaml:"dateModified,omitempty"`

	// DateDeleted is set for soft-deleted entries, which are only listed on request
	DateDeleted *time.Time `json:"dateDeleted,omitempty" yaml:"dateDeleted,omitempty"`

	// ContentType is the MIME type for files
	ContentType string `json:"contentType,omitempty" yaml:"contentType,omitempty"`
}

// IsDeleted returns true if the entry is marked as deleted
func (f FileEntry) IsDeleted() bool {
	return f.DateDeleted != nil && !f.DateDeleted.IsZero()
}

// ParentPath returns the path of the directory containing the entry
func (f FileEntry) ParentPath() string {
	p := strings.TrimSuffix(f.Filename, "/")
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

// OpenedDirectory describes the directory currently shown by a browser
type OpenedDirectory struct {
	Path string `json:"path"`

	// DirectoryType is the linked entity type of the directory ("" at the root)
	DirectoryType string `json:"directoryType,omitempty"`

	// IsDeleted disables writing inside the directory
	IsDeleted bool `json:"isDeleted,omitempty"`

	// IsExternalStorage marks directories of an external, read-mostly storage
	IsExternalStorage bool `json:"isExternalStorage,omitempty"`
}

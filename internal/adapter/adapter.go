package adapter

import (
	"context"
	"io"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/progress"
)

// FileAPI defines the interface for storage backends
// All paths are absolute from the storage root ("/" is the root) and
// implementations return domain-level errors for consistent error handling
type FileAPI interface {
	// Stat returns metadata for a single path
	// Deleted entries are only returned when includeDeleted is set
	// Returns domain.ErrNotFound if path doesn't exist
	Stat(ctx context.Context, path string, includeDeleted bool) (domain.FileEntry, error)

	// List returns the direct children of a directory
	// Returns domain.ErrNotFound if path doesn't exist
	// Returns domain.ErrNotDirectory if path is a file
	List(ctx context.Context, path string, showDeleted bool) ([]domain.FileEntry, error)

	// CreateDirectory creates a single directory, optionally typed and
	// linked to an existing entity
	// Returns domain.ErrAlreadyExists if the name is taken, including by a deleted entry
	CreateDirectory(ctx context.Context, path, linkedEntityType, linkedEntityIRI string) error

	// Rename moves a path to a new name within the same parent
	Rename(ctx context.Context, from, to string) error

	// Delete marks paths as deleted; already deleted paths are removed permanently
	Delete(ctx context.Context, paths ...string) error

	// Undelete restores deleted paths
	Undelete(ctx context.Context, paths ...string) error

	// Copy copies paths into the destination directory
	Copy(ctx context.Context, paths []string, destDir string) error

	// Move moves paths into the destination directory
	Move(ctx context.Context, paths []string, destDir string) error

	// Upload stores a file in the target directory
	Upload(ctx context.Context, targetDir, name string, r io.Reader, size int64, reporter progress.Reporter) error

	// UploadMetadata posts a CSV metadata file for a directory
	UploadMetadata(ctx context.Context, path string, csv io.Reader) error

	// DownloadLink returns a URL or local path the content can be fetched from
	DownloadLink(path string) string

	// Close releases any resources held by the backend
	Close() error
}

// Capabilities describes what a backend supports
type Capabilities struct {
	// ReadOnly backends reject every mutating call with domain.ErrReadOnly
	ReadOnly bool

	// External storages are not part of the metadata tree; copy is disabled
	External bool
}

// Describer is implemented by backends that are not fully featured
type Describer interface {
	Capabilities() Capabilities
}

// CapabilitiesOf returns the capabilities of a backend, full ones by default
func CapabilitiesOf(api FileAPI) Capabilities {
	if d, ok := api.(Describer); ok {
		return d.Capabilities()
	}
	return Capabilities{}
}

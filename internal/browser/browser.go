// Package browser keeps the state of a file browser session: the opened
// directory, cached listings, the selection and the clipboard.
package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Ning0612/mercury/internal/adapter"
	"github.com/Ning0612/mercury/internal/clipboard"
	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
	"github.com/Ning0612/mercury/internal/logger"
	"github.com/Ning0612/mercury/internal/progress"
	"github.com/Ning0612/mercury/internal/selection"
	"github.com/Ning0612/mercury/internal/vocabulary"
)

// VocabularySource provides the vocabulary and the derived hierarchy
type VocabularySource interface {
	Vocabulary(ctx context.Context) (*vocabulary.Vocabulary, error)
	Hierarchy(ctx context.Context) domain.Hierarchy
}

// UserSource provides the current user
type UserSource interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

type listingKey struct {
	path        string
	showDeleted bool
}

// Browser is safe for concurrent use
type Browser struct {
	api       adapter.FileAPI
	caps      adapter.Capabilities
	vocab     VocabularySource
	users     UserSource
	metadata  MetadataSource
	filter    fileutil.Filter
	selection *selection.Selection
	clipboard *clipboard.Clipboard

	mu       sync.Mutex
	opened   domain.OpenedDirectory
	listings map[listingKey][]domain.FileEntry
	stats    map[string]domain.FileEntry

	// in-flight listing; a newer listing request cancels it
	listCancel context.CancelFunc
	listGen    uint64
}

// Option configures a Browser
type Option func(*Browser)

// WithVocabulary enables hierarchy-aware listings and metadata labels
func WithVocabulary(v VocabularySource) Option {
	return func(b *Browser) { b.vocab = v }
}

// WithUsers enables edit right checks in the information drawer
func WithUsers(u UserSource) Option {
	return func(b *Browser) { b.users = u }
}

// WithMetadata enables linked data on drawer cards
func WithMetadata(m MetadataSource) Option {
	return func(b *Browser) { b.metadata = m }
}

// WithFilter applies glob filters to every listing
func WithFilter(f fileutil.Filter) Option {
	return func(b *Browser) { b.filter = f }
}

// New creates a browser opened at the storage root
func New(api adapter.FileAPI, opts ...Option) *Browser {
	b := &Browser{
		api:       api,
		caps:      adapter.CapabilitiesOf(api),
		selection: selection.New(),
		clipboard: clipboard.New(),
		listings:  make(map[listingKey][]domain.FileEntry),
		stats:     make(map[string]domain.FileEntry),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.opened = b.rootDirectory()
	return b
}

// Selection returns the selection of the opened directory
func (b *Browser) Selection() *selection.Selection {
	return b.selection
}

// Clipboard returns the clipboard, which survives navigation
func (b *Browser) Clipboard() *clipboard.Clipboard {
	return b.clipboard
}

// Capabilities returns what the underlying storage supports
func (b *Browser) Capabilities() adapter.Capabilities {
	return b.caps
}

// Opened returns the opened directory
func (b *Browser) Opened() domain.OpenedDirectory {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

func (b *Browser) rootDirectory() domain.OpenedDirectory {
	return domain.OpenedDirectory{Path: fileutil.PathSeparator, IsExternalStorage: b.caps.External}
}

// Hierarchy returns the directory type hierarchy, empty without a vocabulary
func (b *Browser) Hierarchy(ctx context.Context) domain.Hierarchy {
	if b.vocab == nil {
		return nil
	}
	return b.vocab.Hierarchy(ctx)
}

// Open navigates to path. The selection is reset and an in-flight listing
// of the previous directory is cancelled.
func (b *Browser) Open(ctx context.Context, path string) (domain.OpenedDirectory, error) {
	path = fileutil.Normalize(path)
	b.supersedeListing()
	b.selection.DeselectAll()

	dir := b.rootDirectory()
	if !fileutil.IsRoot(path) {
		entry, err := b.Stat(ctx, path, true)
		if err != nil {
			return domain.OpenedDirectory{}, err
		}
		if !fileutil.IsDirectory(&entry, b.Hierarchy(ctx)) {
			return domain.OpenedDirectory{}, fmt.Errorf("%w: %s", domain.ErrNotDirectory, path)
		}
		dir = domain.OpenedDirectory{
			Path:              path,
			DirectoryType:     entry.LinkedEntityType,
			IsDeleted:         entry.IsDeleted(),
			IsExternalStorage: b.caps.External,
		}
	}

	b.mu.Lock()
	b.opened = dir
	b.mu.Unlock()

	logger.Get().Debug("directory opened", "path", path, "type", dir.DirectoryType)
	return dir, nil
}

// supersedeListing cancels the in-flight listing and invalidates its result
func (b *Browser) supersedeListing() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listCancel != nil {
		b.listCancel()
		b.listCancel = nil
	}
	b.listGen++
}

// Files returns the listing of the opened directory, directories first
func (b *Browser) Files(ctx context.Context, showDeleted bool) ([]domain.FileEntry, error) {
	b.mu.Lock()
	key := listingKey{path: b.opened.Path, showDeleted: showDeleted}
	if cached, ok := b.listings[key]; ok {
		b.mu.Unlock()
		return cloneEntries(cached), nil
	}

	if b.listCancel != nil {
		b.listCancel()
	}
	lctx, cancel := context.WithCancel(ctx)
	b.listCancel = cancel
	b.listGen++
	gen := b.listGen
	b.mu.Unlock()

	entries, err := b.api.List(lctx, key.path, showDeleted)
	if err == nil {
		entries = b.filter.Apply(entries)
		fileutil.SortEntries(entries, b.Hierarchy(ctx))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cancel()

	if gen != b.listGen {
		return nil, fmt.Errorf("listing of %s superseded: %w", key.path, context.Canceled)
	}
	b.listCancel = nil
	if err != nil {
		return nil, err
	}

	b.listings[key] = entries
	for _, e := range entries {
		b.stats[e.Filename] = e
	}
	return cloneEntries(entries), nil
}

// Stat returns a possibly cached entry for path
func (b *Browser) Stat(ctx context.Context, path string, includeDeleted bool) (domain.FileEntry, error) {
	path = fileutil.Normalize(path)

	b.mu.Lock()
	cached, ok := b.stats[path]
	b.mu.Unlock()
	if ok && (includeDeleted || !cached.IsDeleted()) {
		return cached, nil
	}

	entry, err := b.api.Stat(ctx, path, includeDeleted)
	if err != nil {
		return domain.FileEntry{}, err
	}

	b.mu.Lock()
	b.stats[path] = entry
	b.mu.Unlock()
	return entry, nil
}

// Invalidate drops cached stats and listings of paths and of everything
// below them
func (b *Browser) Invalidate(paths ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range paths {
		for path := range b.stats {
			if fileutil.IsWithin(path, p) {
				delete(b.stats, path)
			}
		}
		for key := range b.listings {
			if fileutil.IsWithin(key.path, p) {
				delete(b.listings, key)
			}
		}
	}
}

// Refresh drops every cached listing and stat
func (b *Browser) Refresh() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listings = make(map[listingKey][]domain.FileEntry)
	b.stats = make(map[string]domain.FileEntry)
}

// Upload stores a file in dir and invalidates its listing
func (b *Browser) Upload(ctx context.Context, dir, name string, r io.Reader, size int64, reporter progress.Reporter) error {
	if err := fileutil.ValidateFileName(name); err != nil {
		return err
	}
	if reporter == nil {
		reporter = progress.NullReporter{}
	}
	dir = fileutil.Normalize(dir)

	if err := b.api.Upload(ctx, dir, name, r, size, reporter); err != nil {
		return err
	}
	b.Invalidate(dir, fileutil.JoinPaths(dir, name))
	return nil
}

// UploadMetadata posts a CSV metadata file for the directory at path
func (b *Browser) UploadMetadata(ctx context.Context, path string, csv io.Reader) error {
	path = fileutil.Normalize(path)
	if err := b.api.UploadMetadata(ctx, path, csv); err != nil {
		return err
	}

	logger.Get().Info("metadata have been successfully uploaded", "path", path)
	b.Invalidate(path)
	return nil
}

// DownloadLink returns where the content of path can be fetched from
func (b *Browser) DownloadLink(path string) string {
	return b.api.DownloadLink(fileutil.Normalize(path))
}

func cloneEntries(entries []domain.FileEntry) []domain.FileEntry {
	out := make([]domain.FileEntry, len(entries))
	copy(out, entries)
	return out
}

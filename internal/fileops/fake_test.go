package fileops

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/Ning0612/mercury/internal/adapter"
	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/progress"
	"github.com/Ning0612/mercury/internal/state"
)

type call struct {
	method string
	args   []string
}

// fakeAPI records every mutating call and returns the error set for its
// method. Stat answers from entries, or with a plain file for unknown paths.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []call
	errs    map[string][]error
	block   chan struct{}
	entries map[string]domain.FileEntry
	caps    adapter.Capabilities
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		errs:    make(map[string][]error),
		entries: make(map[string]domain.FileEntry),
	}
}

func (f *fakeAPI) put(entries ...domain.FileEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.entries[e.Filename] = e
	}
}

// failNext makes the next calls of method fail with the given errors in order
func (f *fakeAPI) failNext(method string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = append(f.errs[method], errs...)
}

func (f *fakeAPI) do(method string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{method: method, args: args})
	var err error
	if q := f.errs[method]; len(q) > 0 {
		err, f.errs[method] = q[0], q[1:]
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return err
}

func (f *fakeAPI) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeAPI) Capabilities() adapter.Capabilities {
	return f.caps
}

func (f *fakeAPI) Stat(ctx context.Context, path string, includeDeleted bool) (domain.FileEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[path]
	if !ok {
		return domain.FileEntry{Filename: path}, nil
	}
	if e.IsDeleted() && !includeDeleted {
		return domain.FileEntry{}, domain.ErrNotFound
	}
	return e, nil
}

func (f *fakeAPI) List(ctx context.Context, path string, showDeleted bool) ([]domain.FileEntry, error) {
	return nil, f.do("List", path)
}

func (f *fakeAPI) CreateDirectory(ctx context.Context, path, linkedEntityType, linkedEntityIRI string) error {
	return f.do("CreateDirectory", path, linkedEntityType, linkedEntityIRI)
}

func (f *fakeAPI) Rename(ctx context.Context, from, to string) error {
	return f.do("Rename", from, to)
}

func (f *fakeAPI) Delete(ctx context.Context, paths ...string) error {
	return f.do("Delete", paths...)
}

func (f *fakeAPI) Undelete(ctx context.Context, paths ...string) error {
	return f.do("Undelete", paths...)
}

func (f *fakeAPI) Copy(ctx context.Context, paths []string, destDir string) error {
	return f.do("Copy", append(slices.Clone(paths), destDir)...)
}

func (f *fakeAPI) Move(ctx context.Context, paths []string, destDir string) error {
	return f.do("Move", append(slices.Clone(paths), destDir)...)
}

func (f *fakeAPI) Upload(ctx context.Context, targetDir, name string, r io.Reader, size int64, reporter progress.Reporter) error {
	return f.do("Upload", targetDir, name)
}

func (f *fakeAPI) UploadMetadata(ctx context.Context, path string, csv io.Reader) error {
	return f.do("UploadMetadata", path)
}

func (f *fakeAPI) DownloadLink(path string) string {
	return "https://example.org/files" + path
}

func (f *fakeAPI) Close() error {
	return nil
}

type fakeInvalidator struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeInvalidator) Invalidate(paths ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, paths...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []state.OperationRecord
}

func (f *fakeRecorder) SaveOperation(ctx context.Context, record state.OperationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

type staticHierarchy struct {
	h   domain.Hierarchy
	err error
}

func (s staticHierarchy) Hierarchy(ctx context.Context) domain.Hierarchy { return s.h }
func (s staticHierarchy) Err() error                                     { return s.err }

type staticUser struct {
	user *domain.User
}

func (s staticUser) CurrentUser(ctx context.Context) (*domain.User, error) { return s.user, nil }

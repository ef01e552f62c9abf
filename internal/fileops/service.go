package fileops

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ning0612/mercury/internal/adapter"
	"github.com/Ning0612/mercury/internal/clipboard"
	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
)

// HierarchySource provides the directory type hierarchy
type HierarchySource interface {
	Hierarchy(ctx context.Context) domain.Hierarchy
	Err() error
}

// UserSource provides the current user
type UserSource interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// owner stands in for the user of a storage without user management
var owner = &domain.User{Name: "owner", IsAdmin: true}

// Service runs file operations against a backend through a Coordinator.
// Every operation is refused with domain.ErrOperationDisabled when its
// control would not be offered for the paths involved.
type Service struct {
	api       adapter.FileAPI
	coord     *Coordinator
	clipboard *clipboard.Clipboard
	hierarchy HierarchySource
	users     UserSource

	// allowUntyped permits directories without a linked entity type when
	// no hierarchy is configured at all
	allowUntyped bool
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithUsers enables client-side permission checks for directory creation
func WithUsers(users UserSource) ServiceOption {
	return func(s *Service) { s.users = users }
}

// WithUntypedDirectories allows plain directories when the hierarchy is empty
func WithUntypedDirectories() ServiceOption {
	return func(s *Service) { s.allowUntyped = true }
}

// NewService creates a file operation service
func NewService(api adapter.FileAPI, coord *Coordinator, cb *clipboard.Clipboard, hierarchy HierarchySource, opts ...ServiceOption) *Service {
	s := &Service{
		api:       api,
		coord:     coord,
		clipboard: cb,
		hierarchy: hierarchy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Coordinator returns the coordinator the service runs operations on
func (s *Service) Coordinator() *Coordinator {
	return s.coord
}

// CreateDirectory creates name inside parent. An empty typeIRI selects the
// first type allowed below the parent.
func (s *Service) CreateDirectory(ctx context.Context, parent domain.OpenedDirectory, name, typeIRI, linkedEntityIRI string) error {
	path := fileutil.JoinPaths(parent.Path, name)
	if err := fileutil.ValidateNewPath(path); err != nil {
		return err
	}

	typeIRI, err := s.resolveDirectoryType(ctx, parent.DirectoryType, typeIRI)
	if err != nil {
		return err
	}

	op := Operation{Code: domain.OpMkdir, Paths: []string{path}}
	return s.coord.Run(ctx, op, func(ctx context.Context) error {
		return s.api.CreateDirectory(ctx, path, typeIRI, linkedEntityIRI)
	})
}

func (s *Service) resolveDirectoryType(ctx context.Context, parentType, typeIRI string) (string, error) {
	var h domain.Hierarchy
	if s.hierarchy != nil {
		h = s.hierarchy.Hierarchy(ctx)
	}

	if len(h) == 0 {
		if s.allowUntyped && typeIRI == "" && (s.hierarchy == nil || s.hierarchy.Err() == nil) {
			return "", nil
		}
		if s.hierarchy != nil && s.hierarchy.Err() != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrHierarchyUnavailable, s.hierarchy.Err())
		}
		return "", domain.ErrHierarchyUnavailable
	}

	if typeIRI == "" {
		allowed := fileutil.AllowedDirectoryTypes(h, parentType)
		if len(allowed) == 0 {
			return "", fmt.Errorf("%w: no entity type available, directory cannot be created on the current level", domain.ErrOperationDisabled)
		}
		typeIRI = allowed[0]
	}

	if err := fileutil.ValidateTypeForParent(h, typeIRI, parentType); err != nil {
		return "", err
	}

	if s.users != nil {
		user, err := s.users.CurrentUser(ctx)
		if err != nil {
			return "", err
		}
		if !fileutil.CanEditHierarchyLevel(user, h, typeIRI) {
			return "", fmt.Errorf("%w: cannot create directories of type %s", domain.ErrPermissionDenied, typeIRI)
		}
	}
	return typeIRI, nil
}

// Rename gives path a new name within the same directory
func (s *Service) Rename(ctx context.Context, path, newName string) error {
	if err := fileutil.ValidateFileName(newName); err != nil {
		return err
	}
	if fileutil.IsRoot(path) {
		return fmt.Errorf("%w: cannot rename the root", domain.ErrOperationDisabled)
	}

	to := fileutil.JoinPaths(fileutil.ParentPath(path), newName)
	if to == fileutil.Normalize(path) {
		return nil
	}
	if err := s.permit(ctx, "rename", []string{path}, func(c Controls) Control { return c.Rename }); err != nil {
		return err
	}

	op := Operation{Code: domain.OpRename, Paths: []string{path}, Target: to}
	return s.coord.Run(ctx, op, func(ctx context.Context) error {
		return s.api.Rename(ctx, path, to)
	})
}

// Delete marks paths as deleted, or removes already deleted ones
func (s *Service) Delete(ctx context.Context, paths ...string) error {
	if err := s.permit(ctx, "delete", paths, func(c Controls) Control { return c.Delete }); err != nil {
		return err
	}

	op := Operation{Code: domain.OpDelete, Paths: paths}
	return s.coord.Run(ctx, op, func(ctx context.Context) error {
		return s.api.Delete(ctx, paths...)
	})
}

// Undelete restores deleted paths
func (s *Service) Undelete(ctx context.Context, paths ...string) error {
	if err := s.permit(ctx, "undelete", paths, func(c Controls) Control { return c.Undelete }); err != nil {
		return err
	}

	op := Operation{Code: domain.OpUndelete, Paths: paths}
	return s.coord.Run(ctx, op, func(ctx context.Context) error {
		return s.api.Undelete(ctx, paths...)
	})
}

// Cut puts items on the clipboard to be moved
func (s *Service) Cut(ctx context.Context, items []domain.FileEntry) error {
	names := filenames(items)
	if err := s.permit(ctx, "cut", names, func(c Controls) Control { return c.Cut }); err != nil {
		return err
	}
	s.clipboard.Cut(names, ClipboardType(items, s.currentHierarchy(ctx)))
	return nil
}

// Copy puts items on the clipboard to be copied
func (s *Service) Copy(ctx context.Context, items []domain.FileEntry) error {
	names := filenames(items)
	if err := s.permit(ctx, "copy", names, func(c Controls) Control { return c.Copy }); err != nil {
		return err
	}
	s.clipboard.Copy(names, ClipboardType(items, s.currentHierarchy(ctx)))
	return nil
}

// Paste moves or copies the clipboard contents into dest
func (s *Service) Paste(ctx context.Context, dest domain.OpenedDirectory) error {
	cb := s.clipboard.Snapshot()
	if cb.IsEmpty() {
		return domain.ErrClipboardEmpty
	}
	if cb.Method == domain.MethodCut && cb.HasItemsIn(dest.Path) {
		return fmt.Errorf("%w: items are already in %s", domain.ErrOperationDisabled, dest.Path)
	}

	h := s.currentHierarchy(ctx)
	if !typeAllowed(h, cb.LinkedEntityType, fileutil.AllowedDirectoryTypes(h, dest.DirectoryType)) {
		if cb.LinkedEntityType == MixedTypes {
			return fmt.Errorf("%w: directories of different types cannot be pasted together", domain.ErrInvalidType)
		}
		return fmt.Errorf("%w: %s is not allowed in %s", domain.ErrInvalidType, cb.LinkedEntityType, dest.Path)
	}

	if adapter.CapabilitiesOf(s.api).ReadOnly {
		return domain.ErrReadOnly
	}
	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	controls := ComputeControls(ControlState{
		WritingEnabled:  !dest.IsDeleted,
		OpenedDirectory: dest,
		Hierarchy:       h,
		User:            user,
		Clipboard:       cb,
	})
	if !controls.Paste.Allowed() {
		return fmt.Errorf("%w: cannot paste into %s", domain.ErrOperationDisabled, fileutil.Normalize(dest.Path))
	}

	target := fileutil.Normalize(dest.Path)
	op := Operation{Code: domain.OpPaste, Paths: cb.Filenames, Target: target}
	return s.coord.Run(ctx, op, func(ctx context.Context) error {
		if cb.Method == domain.MethodCopy {
			return s.api.Copy(ctx, cb.Filenames, target)
		}
		return s.api.Move(ctx, cb.Filenames, target)
	})
}

// permit computes the controls of every directory holding one of paths,
// with those paths selected, and refuses the operation when the control
// picked by control is not allowed in one of them
func (s *Service) permit(ctx context.Context, name string, paths []string, control func(Controls) Control) error {
	if len(paths) == 0 {
		return fmt.Errorf("%w: nothing selected", domain.ErrOperationDisabled)
	}
	if adapter.CapabilitiesOf(s.api).ReadOnly {
		return domain.ErrReadOnly
	}
	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	h := s.currentHierarchy(ctx)
	cb := s.clipboard.Snapshot()

	for _, group := range groupByParent(paths) {
		dir, err := s.directory(ctx, group.parent)
		if err != nil {
			return err
		}
		files := make([]domain.FileEntry, 0, len(group.paths))
		for _, p := range group.paths {
			entry, err := s.api.Stat(ctx, p, true)
			if err != nil {
				return err
			}
			files = append(files, entry)
		}

		c := control(ComputeControls(ControlState{
			WritingEnabled:  !dir.IsDeleted,
			ShowDeleted:     true,
			OpenedDirectory: dir,
			Hierarchy:       h,
			User:            user,
			Files:           files,
			Selected:        filenames(files),
			Clipboard:       cb,
		}))
		if !c.Allowed() {
			return fmt.Errorf("%w: cannot %s %s", domain.ErrOperationDisabled, name, strings.Join(group.paths, ", "))
		}
	}
	return nil
}

// directory describes path the way the browser would open it
func (s *Service) directory(ctx context.Context, path string) (domain.OpenedDirectory, error) {
	dir := domain.OpenedDirectory{
		Path:              fileutil.Normalize(path),
		IsExternalStorage: adapter.CapabilitiesOf(s.api).External,
	}
	if fileutil.IsRoot(path) {
		return dir, nil
	}
	entry, err := s.api.Stat(ctx, dir.Path, true)
	if err != nil {
		return dir, err
	}
	dir.DirectoryType = entry.LinkedEntityType
	dir.IsDeleted = entry.IsDeleted()
	return dir, nil
}

func (s *Service) currentUser(ctx context.Context) (*domain.User, error) {
	if s.users == nil {
		return owner, nil
	}
	return s.users.CurrentUser(ctx)
}

func (s *Service) currentHierarchy(ctx context.Context) domain.Hierarchy {
	if s.hierarchy == nil {
		return nil
	}
	return s.hierarchy.Hierarchy(ctx)
}

func filenames(items []domain.FileEntry) []string {
	out := make([]string, 0, len(items))
	for _, f := range items {
		out = append(out, f.Filename)
	}
	return out
}

type pathGroup struct {
	parent string
	paths  []string
}

// groupByParent groups paths by their directory, in order of appearance
func groupByParent(paths []string) []pathGroup {
	var groups []pathGroup
	index := make(map[string]int)
	for _, p := range paths {
		parent := fileutil.Normalize(fileutil.ParentPath(p))
		i, ok := index[parent]
		if !ok {
			i = len(groups)
			index[parent] = i
			groups = append(groups, pathGroup{parent: parent})
		}
		groups[i].paths = append(groups[i].paths, p)
	}
	return groups
}

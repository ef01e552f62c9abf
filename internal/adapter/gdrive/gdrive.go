// Package gdrive exposes a Google Drive folder as a read-only external
// storage next to the platform's own collections.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Ning0612/mercury/internal/adapter"
	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
	"github.com/Ning0612/mercury/internal/logger"
	"github.com/Ning0612/mercury/internal/progress"
)

const (
	// MimeTypeFolder is the MIME type for Google Drive folders
	MimeTypeFolder = "application/vnd.google-apps.folder"
	// PageSize is the number of files to fetch per request
	PageSize = 100

	fileFields = "id, name, mimeType, size, createdTime, modifiedTime"
)

// Adapter implements adapter.FileAPI on a Google Drive folder
type Adapter struct {
	service *drive.Service
	root    string   // Root folder path in Drive (e.g., "/Research/shared")
	cache   *idCache // Cache for path -> ID mapping
}

// idCache caches ID lookups with thread-safe access
type idCache struct {
	mu    sync.RWMutex
	paths map[string]string // path -> file ID
}

func newIDCache() *idCache {
	return &idCache{
		paths: make(map[string]string),
	}
}

func (c *idCache) get(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.paths[path]
	return id, ok
}

func (c *idCache) set(path, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[path] = id
}

// New creates an adapter authenticated with the token stored by Authenticate
func New(ctx context.Context, auth *Authenticator, root string) (*Adapter, error) {
	token, err := auth.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	return NewWithToken(ctx, token, auth.Config(), root)
}

// NewWithToken creates a new adapter with an existing token
func NewWithToken(ctx context.Context, token *oauth2.Token, oauthConfig *oauth2.Config, root string) (*Adapter, error) {
	client := oauthConfig.Client(ctx, token)
	return NewWithOptions(ctx, root, option.WithHTTPClient(client))
}

// NewWithOptions creates an adapter from raw client options and checks
// that the root folder exists
func NewWithOptions(ctx context.Context, root string, opts ...option.ClientOption) (*Adapter, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	a := &Adapter{
		service: service,
		root:    normalizeRoot(root),
		cache:   newIDCache(),
	}
	if _, err := a.getFileID(ctx, a.root); err != nil {
		return nil, fmt.Errorf("failed to resolve root folder %q: %w", a.root, err)
	}
	return a, nil
}

// normalizeRoot normalizes the root path
func normalizeRoot(root string) string {
	root = strings.TrimSpace(root)
	if root == "" || root == "/" {
		return ""
	}
	// Ensure leading slash, no trailing slash
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}
	return strings.TrimSuffix(root, "/")
}

// Capabilities implements adapter.Describer
func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{ReadOnly: true, External: true}
}

// Root returns the root path of this adapter
func (a *Adapter) Root() string {
	return a.root
}

// joinPath joins a storage path with root and rejects traversal
func (a *Adapter) joinPath(p string) (string, error) {
	stripped := fileutil.StrippedPath(p)
	if stripped == "" {
		return a.root, nil
	}
	for _, s := range strings.Split(stripped, fileutil.PathSeparator) {
		if s == "." || s == ".." {
			return "", fmt.Errorf("%w: %s", domain.ErrPermissionDenied, p)
		}
	}
	return a.root + "/" + stripped, nil
}

// escapeQueryString escapes special characters in Drive query strings
func escapeQueryString(s string) string {
	// Escape backslash first, then single quote
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}

// getFileID returns the ID of a file or folder at the given full path
func (a *Adapter) getFileID(ctx context.Context, fullPath string) (string, error) {
	if fullPath == "" {
		return "root", nil
	}
	if id, ok := a.cache.get(fullPath); ok {
		return id, nil
	}

	parts := strings.Split(strings.TrimPrefix(fullPath, "/"), "/")
	currentID := "root"

	for i, part := range parts {
		partialPath := "/" + strings.Join(parts[:i+1], "/")
		if id, ok := a.cache.get(partialPath); ok {
			currentID = id
			continue
		}

		query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQueryString(part), currentID)
		fileList, err := a.service.Files.List().
			Q(query).
			PageSize(1).
			Fields("files(id, mimeType)").
			Context(ctx).Do()
		if err != nil {
			return "", mapError(err)
		}
		if len(fileList.Files) == 0 {
			return "", fmt.Errorf("%w: %s", domain.ErrNotFound, partialPath)
		}

		currentID = fileList.Files[0].Id
		a.cache.set(partialPath, currentID)
	}

	return currentID, nil
}

// Stat returns metadata for a single path. Drive trash is never shown.
func (a *Adapter) Stat(ctx context.Context, p string, includeDeleted bool) (domain.FileEntry, error) {
	p = fileutil.Normalize(p)
	fullPath, err := a.joinPath(p)
	if err != nil {
		return domain.FileEntry{}, err
	}
	fileID, err := a.getFileID(ctx, fullPath)
	if err != nil {
		return domain.FileEntry{}, err
	}

	if fileutil.IsRoot(p) {
		return domain.FileEntry{Filename: "/", IsCollection: true}, nil
	}

	file, err := a.service.Files.Get(fileID).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return domain.FileEntry{}, mapError(err)
	}
	return toEntry(fileutil.ParentPath(p), file), nil
}

// List returns the direct children of a directory
func (a *Adapter) List(ctx context.Context, p string, showDeleted bool) ([]domain.FileEntry, error) {
	self, err := a.Stat(ctx, p, false)
	if err != nil {
		return nil, err
	}
	if !self.IsCollection {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotDirectory, self.Filename)
	}
	fullPath, _ := a.joinPath(self.Filename)
	folderID, err := a.getFileID(ctx, fullPath)
	if err != nil {
		return nil, err
	}

	var result []domain.FileEntry
	pageToken := ""

	for {
		call := a.service.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
			PageSize(PageSize).
			Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")"))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		fileList, err := call.Context(ctx).Do()
		if err != nil {
			return nil, mapError(err)
		}
		for _, f := range fileList.Files {
			entry := toEntry(self.Filename, f)
			a.cache.set(fullPath+"/"+f.Name, f.Id)
			result = append(result, entry)
		}

		pageToken = fileList.NextPageToken
		if pageToken == "" {
			break
		}
	}

	logger.Get().Debug("listed drive folder", "path", self.Filename, "entries", len(result))
	return result, nil
}

// toEntry converts a Drive file to a file entry under parent
func toEntry(parent string, file *drive.File) domain.FileEntry {
	p := fileutil.JoinPaths(parent, file.Name)
	entry := domain.FileEntry{
		Filename:     p,
		Basename:     file.Name,
		IsCollection: file.MimeType == MimeTypeFolder,
		DateCreated:  parseTime(file.CreatedTime),
		DateModified: parseTime(file.ModifiedTime),
	}
	if !entry.IsCollection {
		entry.Size = file.Size
		entry.ContentType = file.MimeType
	}
	return entry
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateDirectory is not supported on external storage
func (a *Adapter) CreateDirectory(ctx context.Context, path, linkedEntityType, linkedEntityIRI string) error {
	return domain.ErrReadOnly
}

// Rename is not supported on external storage
func (a *Adapter) Rename(ctx context.Context, from, to string) error {
	return domain.ErrReadOnly
}

// Delete is not supported on external storage
func (a *Adapter) Delete(ctx context.Context, paths ...string) error {
	return domain.ErrReadOnly
}

// Undelete is not supported on external storage
func (a *Adapter) Undelete(ctx context.Context, paths ...string) error {
	return domain.ErrReadOnly
}

// Copy is disabled for external storage
func (a *Adapter) Copy(ctx context.Context, paths []string, destDir string) error {
	return fmt.Errorf("%w: copy from external storage", domain.ErrOperationDisabled)
}

// Move is not supported on external storage
func (a *Adapter) Move(ctx context.Context, paths []string, destDir string) error {
	return domain.ErrReadOnly
}

// Upload is not supported on external storage
func (a *Adapter) Upload(ctx context.Context, targetDir, name string, r io.Reader, size int64, reporter progress.Reporter) error {
	return domain.ErrReadOnly
}

// UploadMetadata is not supported on external storage
func (a *Adapter) UploadMetadata(ctx context.Context, path string, csv io.Reader) error {
	return domain.ErrReadOnly
}

// DownloadLink returns the Drive download URL of a path that has been
// listed or stated before, "" otherwise
func (a *Adapter) DownloadLink(p string) string {
	fullPath, err := a.joinPath(p)
	if err != nil {
		return ""
	}
	id, ok := a.cache.get(fullPath)
	if !ok {
		return ""
	}
	return "https://drive.google.com/uc?export=download&id=" + url.QueryEscape(id)
}

// Close releases any resources
func (a *Adapter) Close() error {
	return nil
}

// mapError converts Google API errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 404:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, apiErr.Message)
		case 401, 403:
			return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, apiErr.Message)
		case 409:
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, apiErr.Message)
		case 429:
			return fmt.Errorf("rate limit exceeded: %w", err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	// Fallback to string matching for non-googleapi errors
	if strings.Contains(err.Error(), "notFound") {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}

	return err
}

// Compile-time interface checks
var (
	_ adapter.FileAPI   = (*Adapter)(nil)
	_ adapter.Describer = (*Adapter)(nil)
)

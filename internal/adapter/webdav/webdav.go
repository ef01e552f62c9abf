// Package webdav implements the file API over the platform's WebDAV
// endpoint.
package webdav

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Ning0612/mercury/internal/adapter"
	"github.com/Ning0612/mercury/internal/api"
	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
	"github.com/Ning0612/mercury/internal/logger"
	"github.com/Ning0612/mercury/internal/progress"
)

// Request headers understood by the server
const (
	HeaderShowDeleted      = "Show-Deleted"
	HeaderLinkedEntityType = "Linked-Entity-Type"
	HeaderLinkedEntityIRI  = "Linked-Entity-IRI"
)

// Form actions posted to a resource
const (
	ActionUndelete       = "undelete"
	ActionUploadMetadata = "upload_metadata"
)

// Config holds adapter configuration
type Config struct {
	// URL is the WebDAV root, e.g. https://host/api/webdav/
	URL string

	Timeout     time.Duration
	TokenSource oauth2.TokenSource

	// External marks a storage outside of the metadata tree
	External bool

	ReadOnly bool
}

// Adapter implements adapter.FileAPI against a WebDAV server
type Adapter struct {
	base   *url.URL
	client *http.Client
	caps   adapter.Capabilities
}

// New creates a new WebDAV adapter
func New(cfg Config) (*Adapter, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid webdav url %q", cfg.URL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = api.DefaultTimeout
	}

	return &Adapter{
		base:   base,
		client: api.NewHTTPClient(cfg.Timeout, cfg.TokenSource),
		caps:   adapter.Capabilities{ReadOnly: cfg.ReadOnly, External: cfg.External},
	}, nil
}

// Capabilities implements adapter.Describer
func (a *Adapter) Capabilities() adapter.Capabilities {
	return a.caps
}

// resourceURL returns the escaped URL of a path
func (a *Adapter) resourceURL(path string) string {
	u := *a.base
	stripped := fileutil.StrippedPath(path)
	if stripped == "" {
		return u.String()
	}
	u.Path = a.base.Path + stripped
	u.RawPath = a.base.EscapedPath() + fileutil.EncodePath(stripped)
	return u.String()
}

func (a *Adapter) writable() error {
	if a.caps.ReadOnly {
		return domain.ErrReadOnly
	}
	return nil
}

func (a *Adapter) do(ctx context.Context, method, path string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.resourceURL(path), body)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, api.TransportError(ctx, err)
	}
	logger.Get().Debug("webdav request", "method", method, "path", path, "status", resp.StatusCode)
	return resp, nil
}

// exec performs a request whose response body is not needed
func (a *Adapter) exec(ctx context.Context, method, path string, body io.Reader, header http.Header) error {
	resp, err := a.do(ctx, method, path, body, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := api.CheckResponse(resp); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (a *Adapter) propfind(ctx context.Context, path, depth string, showDeleted bool) ([]domain.FileEntry, error) {
	header := http.Header{}
	header.Set("Depth", depth)
	header.Set("Content-Type", "application/xml; charset=utf-8")
	if showDeleted {
		header.Set(HeaderShowDeleted, "on")
	}

	resp, err := a.do(ctx, "PROPFIND", path, strings.NewReader(propfindBody), header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := api.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("PROPFIND %s: %w", path, err)
	}
	responses, err := parseMultistatus(resp.Body)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.FileEntry, 0, len(responses))
	for _, r := range responses {
		e, err := a.toEntry(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Stat returns metadata for a single path
func (a *Adapter) Stat(ctx context.Context, path string, includeDeleted bool) (domain.FileEntry, error) {
	path = fileutil.Normalize(path)
	entries, err := a.propfind(ctx, path, "0", includeDeleted)
	if err != nil {
		return domain.FileEntry{}, err
	}
	for _, e := range entries {
		if e.Filename == path {
			return e, nil
		}
	}
	return domain.FileEntry{}, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
}

// List returns the direct children of a directory
func (a *Adapter) List(ctx context.Context, path string, showDeleted bool) ([]domain.FileEntry, error) {
	path = fileutil.Normalize(path)
	entries, err := a.propfind(ctx, path, "1", showDeleted)
	if err != nil {
		return nil, err
	}

	children := make([]domain.FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.Filename == path {
			if !e.IsCollection {
				return nil, fmt.Errorf("%w: %s", domain.ErrNotDirectory, path)
			}
			continue
		}
		children = append(children, e)
	}
	return children, nil
}

// CreateDirectory creates a directory, typed and linked when given
func (a *Adapter) CreateDirectory(ctx context.Context, path, linkedEntityType, linkedEntityIRI string) error {
	if err := a.writable(); err != nil {
		return err
	}
	header := http.Header{}
	if linkedEntityType != "" {
		header.Set(HeaderLinkedEntityType, linkedEntityType)
	}
	if linkedEntityIRI != "" {
		header.Set(HeaderLinkedEntityIRI, linkedEntityIRI)
	}

	resp, err := a.do(ctx, "MKCOL", path, nil, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// MKCOL on an existing resource is not allowed
	if resp.StatusCode == http.StatusMethodNotAllowed {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, path)
	}
	if err := api.CheckResponse(resp); err != nil {
		return fmt.Errorf("MKCOL %s: %w", path, err)
	}
	return nil
}

func (a *Adapter) transfer(ctx context.Context, method, from, to string) error {
	header := http.Header{}
	header.Set("Destination", a.resourceURL(to))
	header.Set("Overwrite", "F")
	return a.exec(ctx, method, from, nil, header)
}

// Rename moves a path to a new name
func (a *Adapter) Rename(ctx context.Context, from, to string) error {
	if err := a.writable(); err != nil {
		return err
	}
	return a.transfer(ctx, "MOVE", from, to)
}

// Delete marks paths as deleted. Deleting a deleted path removes it.
func (a *Adapter) Delete(ctx context.Context, paths ...string) error {
	if err := a.writable(); err != nil {
		return err
	}
	header := http.Header{}
	header.Set(HeaderShowDeleted, "on")
	for _, p := range paths {
		if err := a.exec(ctx, http.MethodDelete, p, nil, header); err != nil {
			return err
		}
	}
	return nil
}

// Undelete restores deleted paths
func (a *Adapter) Undelete(ctx context.Context, paths ...string) error {
	if err := a.writable(); err != nil {
		return err
	}
	for _, p := range paths {
		if err := a.postAction(ctx, p, ActionUndelete, nil); err != nil {
			return err
		}
	}
	return nil
}

// Copy copies paths into destDir, renaming on name conflicts
func (a *Adapter) Copy(ctx context.Context, paths []string, destDir string) error {
	if a.caps.External {
		return fmt.Errorf("%w: copy from external storage", domain.ErrOperationDisabled)
	}
	return a.transferAll(ctx, "COPY", paths, destDir)
}

// Move moves paths into destDir, renaming on name conflicts
func (a *Adapter) Move(ctx context.Context, paths []string, destDir string) error {
	return a.transferAll(ctx, "MOVE", paths, destDir)
}

func (a *Adapter) transferAll(ctx context.Context, method string, paths []string, destDir string) error {
	if err := a.writable(); err != nil {
		return err
	}
	existing, err := a.List(ctx, destDir, true)
	if err != nil {
		return err
	}
	taken := make(map[string]bool, len(existing))
	for _, e := range existing {
		taken[e.Basename] = true
	}

	for _, p := range paths {
		name := fileutil.UniqueFileName(fileutil.Basename(p), func(n string) bool { return taken[n] })
		taken[name] = true
		if err := a.transfer(ctx, method, p, fileutil.JoinPaths(destDir, name)); err != nil {
			return err
		}
	}
	return nil
}

// Upload stores a file in targetDir
func (a *Adapter) Upload(ctx context.Context, targetDir, name string, r io.Reader, size int64, reporter progress.Reporter) error {
	if err := a.writable(); err != nil {
		return err
	}
	if reporter == nil {
		reporter = progress.NullReporter{}
	}
	target := fileutil.JoinPaths(targetDir, name)
	reporter.Start(target, size)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, a.resourceURL(target), progress.NewProgressReader(r, reporter))
	if err != nil {
		reporter.Error(err)
		return err
	}
	if size >= 0 {
		req.ContentLength = size
	}

	resp, err := a.client.Do(req)
	if err != nil {
		err = api.TransportError(ctx, err)
		reporter.Error(err)
		return err
	}
	defer resp.Body.Close()

	if err := api.CheckResponse(resp); err != nil {
		err = fmt.Errorf("PUT %s: %w", target, err)
		reporter.Error(err)
		return err
	}
	reporter.Complete()
	return nil
}

// UploadMetadata posts a CSV metadata file for the directory at path
func (a *Adapter) UploadMetadata(ctx context.Context, path string, csv io.Reader) error {
	if err := a.writable(); err != nil {
		return err
	}
	return a.postAction(ctx, path, ActionUploadMetadata, csv)
}

// postAction posts a multipart form with an action and an optional file
func (a *Adapter) postAction(ctx context.Context, path, action string, file io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("action", action); err != nil {
		return err
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "metadata.csv")
		if err != nil {
			return err
		}
		if _, err := io.Copy(fw, file); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Content-Type", mw.FormDataContentType())
	header.Set(HeaderShowDeleted, "on")
	return a.exec(ctx, http.MethodPost, path, &buf, header)
}

// DownloadLink returns the URL of path
func (a *Adapter) DownloadLink(path string) string {
	return a.resourceURL(path)
}

// Close releases idle connections
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// Compile-time interface checks
var (
	_ adapter.FileAPI   = (*Adapter)(nil)
	_ adapter.Describer = (*Adapter)(nil)
)

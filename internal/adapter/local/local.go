// Package local implements the file API on a directory of the local
// filesystem. Linked entities and deletion marks are kept in a sqlite
// database next to the tree, so the backend behaves like the platform's
// WebDAV storage: deleted entries stay on disk until deleted twice.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Ning0612/mercury/internal/adapter"
	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
	"github.com/Ning0612/mercury/internal/logger"
	"github.com/Ning0612/mercury/internal/progress"
)

// DefaultEntityNamespace prefixes the IRIs minted for typed directories
const DefaultEntityNamespace = "urn:uuid:"

// Config holds adapter configuration
type Config struct {
	// Root must be an existing directory
	Root string

	// Database is the sqlite file holding entity links and deletion marks
	Database string

	// EntityNamespace prefixes generated entity IRIs
	EntityNamespace string

	ReadOnly bool
}

// Adapter implements adapter.FileAPI for a local directory
type Adapter struct {
	root      string
	namespace string
	readOnly  bool
	db        *sql.DB
}

// attributes is what the database knows about a path
type attributes struct {
	linkedType  string
	linkedIRI   string
	dateDeleted *time.Time
}

// New creates a new local filesystem adapter
func New(cfg Config) (*Adapter, error) {
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrStorageNotFound, absRoot)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotDirectory, absRoot)
	}

	if cfg.Database == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
	PRAGMA busy_timeout=5000;
	CREATE TABLE IF NOT EXISTS entries (
		path TEXT PRIMARY KEY,
		linked_type TEXT NOT NULL DEFAULT '',
		linked_iri TEXT NOT NULL DEFAULT '',
		date_deleted INTEGER
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ns := cfg.EntityNamespace
	if ns == "" {
		ns = DefaultEntityNamespace
	}
	return &Adapter{root: absRoot, namespace: ns, readOnly: cfg.ReadOnly, db: db}, nil
}

// Capabilities implements adapter.Describer
func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{ReadOnly: a.readOnly}
}

// Root returns the root directory of this adapter
func (a *Adapter) Root() string {
	return a.root
}

// resolvePath resolves a storage path to a filesystem path within root
func (a *Adapter) resolvePath(p string) (string, error) {
	stripped := fileutil.StrippedPath(p)
	if stripped == "" {
		return a.root, nil
	}
	for _, s := range strings.Split(stripped, fileutil.PathSeparator) {
		if s == "." || s == ".." {
			return "", fmt.Errorf("%w: %s", domain.ErrPermissionDenied, p)
		}
	}

	fullPath := filepath.Join(a.root, filepath.FromSlash(stripped))
	rel, err := filepath.Rel(a.root, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", domain.ErrPermissionDenied, p)
	}
	return fullPath, nil
}

func (a *Adapter) writable() error {
	if a.readOnly {
		return domain.ErrReadOnly
	}
	return nil
}

// subtree matches a path and all of its descendants
const subtree = `(path = ? OR substr(path, 1, ?) = ?)`

func subtreeArgs(p string) []any {
	prefix := p + "/"
	return []any{p, utf8.RuneCountInString(prefix), prefix}
}

func (a *Adapter) lookup(ctx context.Context, p string) (attributes, error) {
	var (
		attrs   attributes
		deleted sql.NullInt64
	)
	err := a.db.QueryRowContext(ctx,
		`SELECT linked_type, linked_iri, date_deleted FROM entries WHERE path = ?`, p,
	).Scan(&attrs.linkedType, &attrs.linkedIRI, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return attributes{}, nil
	}
	if err != nil {
		return attributes{}, fmt.Errorf("failed to read attributes of %s: %w", p, err)
	}
	attrs.dateDeleted = deletedAt(deleted)
	return attrs, nil
}

// children returns the attributes of the direct children of dir
func (a *Adapter) children(ctx context.Context, dir string) (map[string]attributes, error) {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	rows, err := a.db.QueryContext(ctx,
		`SELECT path, linked_type, linked_iri, date_deleted FROM entries WHERE substr(path, 1, ?) = ?`,
		utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to read attributes under %s: %w", dir, err)
	}
	defer rows.Close()

	out := make(map[string]attributes)
	for rows.Next() {
		var (
			p       string
			attrs   attributes
			deleted sql.NullInt64
		)
		if err := rows.Scan(&p, &attrs.linkedType, &attrs.linkedIRI, &deleted); err != nil {
			return nil, err
		}
		attrs.dateDeleted = deletedAt(deleted)
		out[p] = attrs
	}
	return out, rows.Err()
}

// deletedAt decodes a deletion mark stored as unix nanoseconds
func deletedAt(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func (a *Adapter) toEntry(p string, info os.FileInfo, attrs attributes) domain.FileEntry {
	entry := domain.FileEntry{
		Filename:         p,
		Basename:         fileutil.Basename(p),
		IsCollection:     info.IsDir(),
		LinkedEntityType: attrs.linkedType,
		LinkedEntityIRI:  attrs.linkedIRI,
		DateCreated:      info.ModTime(),
		DateModified:     info.ModTime(),
		DateDeleted:      attrs.dateDeleted,
	}
	if !info.IsDir() {
		entry.Size = info.Size()
		entry.ContentType = mime.TypeByExtension(filepath.Ext(p))
	}
	return entry
}

// Stat returns metadata for a single path
func (a *Adapter) Stat(ctx context.Context, path string, includeDeleted bool) (domain.FileEntry, error) {
	path = fileutil.Normalize(path)
	full, err := a.resolvePath(path)
	if err != nil {
		return domain.FileEntry{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return domain.FileEntry{}, mapError(err, path)
	}
	attrs, err := a.lookup(ctx, path)
	if err != nil {
		return domain.FileEntry{}, err
	}
	if attrs.dateDeleted != nil && !includeDeleted {
		return domain.FileEntry{}, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return a.toEntry(path, info, attrs), nil
}

// List returns the direct children of a directory
func (a *Adapter) List(ctx context.Context, path string, showDeleted bool) ([]domain.FileEntry, error) {
	self, err := a.Stat(ctx, path, showDeleted)
	if err != nil {
		return nil, err
	}
	if !self.IsCollection {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotDirectory, path)
	}

	full, _ := a.resolvePath(self.Filename)
	dirEntries, err := os.ReadDir(full)
	if err != nil {
		return nil, mapError(err, path)
	}
	known, err := a.children(ctx, self.Filename)
	if err != nil {
		return nil, err
	}

	result := make([]domain.FileEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		p := fileutil.JoinPaths(self.Filename, de.Name())
		attrs := known[p]
		if attrs.dateDeleted != nil && !showDeleted {
			continue
		}
		result = append(result, a.toEntry(p, info, attrs))
	}
	return result, nil
}

// exists reports whether a path exists on disk, deleted or not
func (a *Adapter) exists(p string) (bool, error) {
	full, err := a.resolvePath(p)
	if err != nil {
		return false, err
	}
	_, err = os.Lstat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, mapError(err, p)
}

// parentDirectory checks that the parent of p is a live directory
func (a *Adapter) parentDirectory(ctx context.Context, p string) error {
	parent, err := a.Stat(ctx, fileutil.ParentPath(p), false)
	if err != nil {
		return err
	}
	if !parent.IsCollection {
		return fmt.Errorf("%w: %s", domain.ErrNotDirectory, parent.Filename)
	}
	return nil
}

// CreateDirectory creates a directory. A typed directory without an
// entity gets a newly minted IRI.
func (a *Adapter) CreateDirectory(ctx context.Context, path, linkedEntityType, linkedEntityIRI string) error {
	if err := a.writable(); err != nil {
		return err
	}
	path = fileutil.Normalize(path)
	if fileutil.IsRoot(path) {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, path)
	}
	if err := a.parentDirectory(ctx, path); err != nil {
		return err
	}
	taken, err := a.exists(path)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, path)
	}

	full, _ := a.resolvePath(path)
	if err := os.Mkdir(full, 0755); err != nil {
		return mapError(err, path)
	}

	if linkedEntityType != "" && linkedEntityIRI == "" {
		linkedEntityIRI = a.namespace + uuid.NewString()
	}
	if linkedEntityType == "" && linkedEntityIRI == "" {
		return nil
	}
	if _, err := a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO entries (path, linked_type, linked_iri, date_deleted) VALUES (?, ?, ?, NULL)`,
		path, linkedEntityType, linkedEntityIRI); err != nil {
		return fmt.Errorf("failed to link %s: %w", path, err)
	}
	logger.Get().Debug("linked directory", "path", path, "type", linkedEntityType, "iri", linkedEntityIRI)
	return nil
}

// Rename moves a path to a new name
func (a *Adapter) Rename(ctx context.Context, from, to string) error {
	if err := a.writable(); err != nil {
		return err
	}
	return a.move(ctx, fileutil.Normalize(from), fileutil.Normalize(to))
}

func (a *Adapter) move(ctx context.Context, from, to string) error {
	if _, err := a.Stat(ctx, from, false); err != nil {
		return err
	}
	taken, err := a.exists(to)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, to)
	}
	if err := a.parentDirectory(ctx, to); err != nil {
		return err
	}

	src, _ := a.resolvePath(from)
	dst, _ := a.resolvePath(to)
	if err := os.Rename(src, dst); err != nil {
		return mapError(err, from)
	}

	args := append([]any{to, utf8.RuneCountInString(from) + 1}, subtreeArgs(from)...)
	if _, err := a.db.ExecContext(ctx,
		`UPDATE entries SET path = ? || substr(path, ?) WHERE `+subtree, args...); err != nil {
		return fmt.Errorf("failed to move attributes of %s: %w", from, err)
	}
	return nil
}

// Delete marks paths and their contents as deleted. Deleting a deleted
// path removes it from disk.
func (a *Adapter) Delete(ctx context.Context, paths ...string) error {
	if err := a.writable(); err != nil {
		return err
	}
	for _, p := range paths {
		p = fileutil.Normalize(p)
		if fileutil.IsRoot(p) {
			return fmt.Errorf("%w: cannot delete the root", domain.ErrPermissionDenied)
		}
		entry, err := a.Stat(ctx, p, true)
		if err != nil {
			return err
		}
		if entry.IsDeleted() {
			if err := a.purge(ctx, p); err != nil {
				return err
			}
			continue
		}
		if err := a.markDeleted(ctx, p, time.Now().UTC()); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) markDeleted(ctx context.Context, p string, at time.Time) error {
	full, _ := a.resolvePath(p)
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = filepath.WalkDir(full, func(fp string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(a.root, fp)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entries (path, date_deleted) VALUES (?, ?)
			ON CONFLICT(path) DO UPDATE SET date_deleted = excluded.date_deleted
			WHERE entries.date_deleted IS NULL`,
			fileutil.Normalize(filepath.ToSlash(rel)), at.UnixNano())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to mark %s as deleted: %w", p, mapError(err, p))
	}
	return tx.Commit()
}

func (a *Adapter) purge(ctx context.Context, p string) error {
	full, _ := a.resolvePath(p)
	if err := os.RemoveAll(full); err != nil {
		return mapError(err, p)
	}
	if _, err := a.db.ExecContext(ctx, `DELETE FROM entries WHERE `+subtree, subtreeArgs(p)...); err != nil {
		return fmt.Errorf("failed to remove attributes of %s: %w", p, err)
	}
	logger.Get().Debug("purged path", "path", p)
	return nil
}

// Undelete restores deleted paths together with the contents deleted
// along with them
func (a *Adapter) Undelete(ctx context.Context, paths ...string) error {
	if err := a.writable(); err != nil {
		return err
	}
	for _, p := range paths {
		p = fileutil.Normalize(p)
		entry, err := a.Stat(ctx, p, true)
		if err != nil {
			return err
		}
		if !entry.IsDeleted() {
			continue
		}
		args := append([]any{entry.DateDeleted.UnixNano()}, subtreeArgs(p)...)
		if _, err := a.db.ExecContext(ctx,
			`UPDATE entries SET date_deleted = NULL WHERE date_deleted = ? AND `+subtree, args...); err != nil {
			return fmt.Errorf("failed to restore %s: %w", p, err)
		}
	}
	return nil
}

// Copy copies paths into destDir, renaming on name conflicts
func (a *Adapter) Copy(ctx context.Context, paths []string, destDir string) error {
	return a.transferAll(ctx, paths, destDir, a.copy)
}

// Move moves paths into destDir, renaming on name conflicts
func (a *Adapter) Move(ctx context.Context, paths []string, destDir string) error {
	return a.transferAll(ctx, paths, destDir, a.move)
}

func (a *Adapter) transferAll(ctx context.Context, paths []string, destDir string, transfer func(ctx context.Context, from, to string) error) error {
	if err := a.writable(); err != nil {
		return err
	}
	for _, p := range paths {
		if fileutil.IsWithin(destDir, p) {
			return fmt.Errorf("%w: cannot copy or move %s into itself", domain.ErrBadRequest, fileutil.Normalize(p))
		}
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
		if err := transfer(ctx, fileutil.Normalize(p), fileutil.JoinPaths(destDir, name)); err != nil {
			return err
		}
	}
	return nil
}

// copy duplicates a live tree. Copied typed directories get new entities.
func (a *Adapter) copy(ctx context.Context, from, to string) error {
	if _, err := a.Stat(ctx, from, false); err != nil {
		return err
	}
	src, _ := a.resolvePath(from)

	return filepath.WalkDir(src, func(fp string, d os.DirEntry, err error) error {
		if err != nil {
			return mapError(err, from)
		}
		rel, err := filepath.Rel(src, fp)
		if err != nil {
			return err
		}
		if rel == "." {
			rel = ""
		}
		srcPath := fileutil.JoinPaths(from, filepath.ToSlash(rel))
		dstPath := fileutil.JoinPaths(to, filepath.ToSlash(rel))

		attrs, err := a.lookup(ctx, srcPath)
		if err != nil {
			return err
		}
		if attrs.dateDeleted != nil {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dst, _ := a.resolvePath(dstPath)
		if d.IsDir() {
			if err := os.Mkdir(dst, 0755); err != nil {
				return mapError(err, dstPath)
			}
			if attrs.linkedType == "" {
				return nil
			}
			_, err := a.db.ExecContext(ctx,
				`INSERT OR REPLACE INTO entries (path, linked_type, linked_iri) VALUES (?, ?, ?)`,
				dstPath, attrs.linkedType, a.namespace+uuid.NewString())
			return err
		}

		f, err := os.Open(fp)
		if err != nil {
			return mapError(err, srcPath)
		}
		defer f.Close()
		return writeFile(dst, f)
	})
}

// writeFile writes through a temp file and an atomic rename
func writeFile(fullPath string, r io.Reader) error {
	tempPath := fullPath + ".mercury.tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return mapError(err, fullPath)
	}

	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()

	if copyErr != nil {
		os.Remove(tempPath)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return mapError(err, fullPath)
	}
	return nil
}

// Upload stores a file in targetDir, replacing a file of the same name
func (a *Adapter) Upload(ctx context.Context, targetDir, name string, r io.Reader, size int64, reporter progress.Reporter) error {
	if err := a.writable(); err != nil {
		return err
	}
	if reporter == nil {
		reporter = progress.NullReporter{}
	}
	if err := fileutil.ValidateFileName(name); err != nil {
		return err
	}
	target := fileutil.JoinPaths(targetDir, name)
	reporter.Start(target, size)

	fail := func(err error) error {
		reporter.Error(err)
		return err
	}
	if err := a.parentDirectory(ctx, target); err != nil {
		return fail(err)
	}
	full, _ := a.resolvePath(target)
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return fail(fmt.Errorf("%w: %s", domain.ErrAlreadyExists, target))
	}

	if err := writeFile(full, progress.NewProgressReader(contextReader{ctx, r}, reporter)); err != nil {
		return fail(err)
	}
	if _, err := a.db.ExecContext(ctx, `DELETE FROM entries WHERE path = ?`, target); err != nil {
		return fail(fmt.Errorf("failed to reset attributes of %s: %w", target, err))
	}
	reporter.Complete()
	return nil
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

// UploadMetadata is not supported: local storage has no metadata service
func (a *Adapter) UploadMetadata(ctx context.Context, path string, csv io.Reader) error {
	return fmt.Errorf("%w: metadata upload on local storage", domain.ErrOperationDisabled)
}

// DownloadLink returns a file URL of path
func (a *Adapter) DownloadLink(path string) string {
	full, err := a.resolvePath(path)
	if err != nil {
		return ""
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(full)}).String()
}

// Close closes the attribute database
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// mapError converts OS errors to domain errors
func mapError(err error, path string) error {
	switch {
	case err == nil:
		return nil
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	case os.IsPermission(err):
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, path)
	case os.IsExist(err):
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, path)
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && strings.Contains(pathErr.Err.Error(), "not a directory") {
		return fmt.Errorf("%w: %s", domain.ErrNotDirectory, path)
	}
	return err
}

// Compile-time interface checks
var (
	_ adapter.FileAPI   = (*Adapter)(nil)
	_ adapter.Describer = (*Adapter)(nil)
)

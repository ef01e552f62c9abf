// Package service wires configuration, platform clients and a storage
// backend into the components the command line works with.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Ning0612/mercury/internal/adapter"
	"github.com/Ning0612/mercury/internal/adapter/gdrive"
	"github.com/Ning0612/mercury/internal/adapter/local"
	"github.com/Ning0612/mercury/internal/adapter/webdav"
	"github.com/Ning0612/mercury/internal/api"
	"github.com/Ning0612/mercury/internal/browser"
	"github.com/Ning0612/mercury/internal/config"
	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileops"
	"github.com/Ning0612/mercury/internal/fileutil"
	"github.com/Ning0612/mercury/internal/lock"
	"github.com/Ning0612/mercury/internal/logger"
	"github.com/Ning0612/mercury/internal/state"
	"github.com/Ning0612/mercury/internal/users"
	"github.com/Ning0612/mercury/internal/views"
	"github.com/Ning0612/mercury/internal/vocabulary"
)

// App holds the components of one session against one storage
type App struct {
	config  *config.Config
	storage config.StorageConfig

	// client is nil when no platform is configured
	client  *api.Client
	vocab   *vocabulary.Provider
	session *users.Session

	files   adapter.FileAPI
	browser *browser.Browser
	coord   *fileops.Coordinator
	ops     *fileops.Service
	views   *views.Fetcher
	history *state.Manager
	lock    *lock.OperationLock
}

// Option configures an App
type Option func(*options)

type options struct {
	filter fileutil.Filter
	files  adapter.FileAPI
}

// WithFilter applies glob filters to every listing
func WithFilter(f fileutil.Filter) Option {
	return func(o *options) { o.filter = f }
}

// WithFileAPI replaces the configured storage backend
func WithFileAPI(files adapter.FileAPI) Option {
	return func(o *options) { o.files = files }
}

// New creates an App for the named storage ("" selects the default one)
func New(ctx context.Context, cfg *config.Config, storageName string, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.filter.Validate(); err != nil {
		return nil, err
	}

	storage, err := cfg.GetStorage(storageName)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, storage: *storage}
	log := logger.With("storage", storage.Name)

	if cfg.Server.BaseURL != "" {
		a.client, err = api.New(api.Config{
			BaseURL:     cfg.APIURL(),
			Timeout:     cfg.Server.Timeout,
			TokenSource: api.NewTokenSource(ctx, cfg.Auth),
		})
		if err != nil {
			return nil, err
		}
		a.vocab = vocabulary.NewProvider(a.client)
		a.session = users.NewSession(a.client)
		a.views = views.NewFetcher(a.client, views.WithRequestTimeout(cfg.Views.RequestTimeout))
	} else {
		log.Debug("no platform configured, running without vocabulary and users")
	}

	a.files = o.files
	if a.files == nil {
		a.files, err = a.newFileAPI(ctx)
		if err != nil {
			return nil, err
		}
	}

	a.history, err = state.NewManager(cfg.HistoryDir())
	if err != nil {
		a.files.Close()
		return nil, fmt.Errorf("failed to open operation history: %w", err)
	}
	a.lock, err = lock.New(filepath.Join(cfg.HistoryDir(), "locks"), storage.Name)
	if err != nil {
		a.Close()
		return nil, err
	}

	browserOpts := []browser.Option{browser.WithFilter(o.filter)}
	if a.client != nil {
		browserOpts = append(browserOpts,
			browser.WithVocabulary(a.vocab),
			browser.WithUsers(a.session),
			browser.WithMetadata(a.client),
		)
	}
	a.browser = browser.New(a.files, browserOpts...)

	a.coord = fileops.NewCoordinator(fileops.Options{
		Storage:     storage.Name,
		Invalidator: a.browser,
		Selection:   a.browser.Selection(),
		Clipboard:   a.browser.Clipboard(),
		Recorder:    a.history,
		Guard:       a.lock,
	})
	if a.client != nil {
		a.ops = fileops.NewService(a.files, a.coord, a.browser.Clipboard(), a.vocab, fileops.WithUsers(a.session))
	} else {
		a.ops = fileops.NewService(a.files, a.coord, a.browser.Clipboard(), nil, fileops.WithUntypedDirectories())
	}

	log.Debug("session ready", "type", string(storage.Type), "platform", a.client != nil)
	return a, nil
}

// newFileAPI creates the backend of the selected storage
func (a *App) newFileAPI(ctx context.Context) (adapter.FileAPI, error) {
	s := a.storage
	switch s.Type {
	case domain.StorageWebDAV:
		f, err := webdav.New(webdav.Config{
			URL:         a.config.WebDAVURL(&s),
			Timeout:     a.config.Server.Timeout,
			TokenSource: api.NewTokenSource(ctx, a.config.Auth),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create webdav adapter for %s: %w", s.Name, err)
		}
		return f, nil
	case domain.StorageLocal:
		f, err := local.New(local.Config{
			Root:     s.Root,
			Database: filepath.Join(a.config.HistoryDir(), "storages", s.Name+".db"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create local adapter for %s: %w", s.Name, err)
		}
		return f, nil
	case domain.StorageGDrive:
		auth, err := DriveAuthenticator(a.config, &s)
		if err != nil {
			return nil, err
		}
		f, err := gdrive.New(ctx, auth, s.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to create gdrive adapter for %s: %w", s.Name, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: unknown storage type %q", domain.ErrConfigInvalid, s.Type)
}

// DriveAuthenticator returns the authenticator of a gdrive storage. Its
// token is kept in the data directory.
func DriveAuthenticator(cfg *config.Config, s *config.StorageConfig) (*gdrive.Authenticator, error) {
	if s.Type != domain.StorageGDrive {
		return nil, fmt.Errorf("%w: storage %s is not a gdrive storage", domain.ErrConfigInvalid, s.Name)
	}
	creds, err := gdrive.LoadCredentials(s.Credentials)
	if err != nil {
		return nil, err
	}
	tokenPath := filepath.Join(cfg.HistoryDir(), "tokens", s.Name+".json")
	return gdrive.NewAuthenticator(s.Name, creds, tokenPath), nil
}

// Storage returns the selected storage
func (a *App) Storage() config.StorageConfig {
	return a.storage
}

// Browser returns the file browser
func (a *App) Browser() *browser.Browser {
	return a.browser
}

// Operations returns the file operation service
func (a *App) Operations() *fileops.Service {
	return a.ops
}

// History returns the operation history store
func (a *App) History() *state.Manager {
	return a.history
}

// LockHolder returns the process running an operation on the storage, or
// nil when none is
func (a *App) LockHolder() (*lock.LockInfo, error) {
	return a.lock.Holder()
}

// ForceUnlock removes the operation lock of the storage whoever holds it
func (a *App) ForceUnlock() error {
	logger.Get().Warn("forcing operation lock release", "path", a.lock.Path())
	return a.lock.ForceRelease()
}

// errNoPlatform is returned by features that need the platform APIs
var errNoPlatform = fmt.Errorf("%w: server.base_url is not configured", domain.ErrConfigInvalid)

// Client returns the platform API client
func (a *App) Client() (*api.Client, error) {
	if a.client == nil {
		return nil, errNoPlatform
	}
	return a.client, nil
}

// Vocabulary returns the session vocabulary
func (a *App) Vocabulary(ctx context.Context) (*vocabulary.Vocabulary, error) {
	if a.vocab == nil {
		return nil, errNoPlatform
	}
	v, err := a.vocab.Vocabulary(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVocabularyUnavailable, err)
	}
	return v, nil
}

// Hierarchy returns the directory type hierarchy
func (a *App) Hierarchy(ctx context.Context) (domain.Hierarchy, error) {
	if a.vocab == nil {
		return nil, errNoPlatform
	}
	h := a.vocab.Hierarchy(ctx)
	if err := a.vocab.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHierarchyUnavailable, err)
	}
	return h, nil
}

// Users returns the user session
func (a *App) Users() (*users.Session, error) {
	if a.session == nil {
		return nil, errNoPlatform
	}
	return a.session, nil
}

// Views returns the metadata view fetcher
func (a *App) Views() (*views.Fetcher, error) {
	if a.views == nil {
		return nil, errNoPlatform
	}
	return a.views, nil
}

// Config returns the configuration the App was created with
func (a *App) Config() *config.Config {
	return a.config
}

// RetryLastFailure re-runs the most recent failed operation with the
// arguments it was recorded with
func (a *App) RetryLastFailure(ctx context.Context) (*state.OperationRecord, error) {
	rec, err := a.history.LastFailure(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: no failed operation recorded", domain.ErrNotFound)
	}
	if rec.Storage != a.storage.Name {
		return rec, fmt.Errorf("%w: last failure was on storage %s", domain.ErrOperationDisabled, rec.Storage)
	}
	if len(rec.Paths) == 0 {
		return rec, fmt.Errorf("%w: operation %d has no paths", domain.ErrBadRequest, rec.ID)
	}

	logger.Get().Info("retrying operation", "id", rec.ID, "op", string(rec.Operation))
	switch rec.Operation {
	case domain.OpMkdir:
		path := rec.Paths[0]
		parent, err := a.browser.Open(ctx, fileutil.ParentPath(path))
		if err != nil {
			return rec, err
		}
		return rec, a.ops.CreateDirectory(ctx, parent, fileutil.Basename(path), "", "")
	case domain.OpRename:
		return rec, a.ops.Rename(ctx, rec.Paths[0], fileutil.Basename(rec.Target))
	case domain.OpDelete:
		return rec, a.ops.Delete(ctx, rec.Paths...)
	case domain.OpUndelete:
		return rec, a.ops.Undelete(ctx, rec.Paths...)
	}
	return rec, fmt.Errorf("%w: %s cannot be retried from history", domain.ErrOperationDisabled, rec.Operation)
}

// Close releases the backend and the history store
func (a *App) Close() error {
	var errs []error
	if a.files != nil {
		errs = append(errs, a.files.Close())
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	return errors.Join(errs...)
}

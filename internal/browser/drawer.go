package browser

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
	"github.com/Ning0612/mercury/internal/jsonld"
	"github.com/Ning0612/mercury/internal/logger"
	"github.com/Ning0612/mercury/internal/metadata"
	"github.com/Ning0612/mercury/internal/template"
	"github.com/Ning0612/mercury/internal/vocabulary"
)

// Drawer messages
const (
	MessageSelectPath    = "Select a file or a folder to display its metadata"
	MessageNoMetadata    = "No metadata found"
	MessageSubjectFailed = "An error occurred while determining metadata subject"
)

// maxConcurrentStats bounds the stat requests issued for one drawer
const maxConcurrentStats = 4

// MetadataSource fetches the linked data of a subject
type MetadataSource interface {
	Subject(ctx context.Context, iri string) ([]jsonld.Node, error)
}

// MetadataCard is the metadata of one path in the information drawer
type MetadataCard struct {
	Path            string `json:"path" yaml:"path"`
	Title           string `json:"title" yaml:"title"`
	LinkedEntityIRI string `json:"linkedEntityIri,omitempty" yaml:"linkedEntityIri,omitempty"`
	IsDirectory     bool   `json:"isDirectory" yaml:"isDirectory"`
	Expanded        bool   `json:"expanded" yaml:"expanded"`

	// MetadataUploadPath is set on the expanded directory card when the
	// user may upload metadata for it
	MetadataUploadPath string `json:"metadataUploadPath,omitempty" yaml:"metadataUploadPath,omitempty"`

	Properties []metadata.Property `json:"properties,omitempty" yaml:"properties,omitempty"`

	// Message replaces the metadata when the entry could not be resolved
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	Entry *domain.FileEntry `json:"-" yaml:"-"`
	Err   error             `json:"-" yaml:"-"`
}

// DrawerView is the content of the information drawer
type DrawerView struct {
	Cards []MetadataCard `json:"cards" yaml:"cards"`

	// Message is shown instead of cards when there is nothing to describe
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Drawer builds the information drawer for the opened path: one card per
// ancestor of openedPath plus the selected path when exactly one is
// selected. The last card is expanded.
func (b *Browser) Drawer(ctx context.Context, openedPath string, selected []string, showDeleted bool) (DrawerView, error) {
	openedPath = fileutil.Normalize(openedPath)
	paths := fileutil.PathHierarchy(openedPath)
	if len(selected) == 1 && fileutil.Normalize(selected[0]) != openedPath {
		paths = append(paths, fileutil.Normalize(selected[0]))
	}

	if len(paths) == 0 {
		if b.rootHasDirectories(ctx) {
			return DrawerView{Message: MessageSelectPath}, nil
		}
		return DrawerView{}, nil
	}

	cards := make([]MetadataCard, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentStats)
	for i, p := range paths {
		g.Go(func() error {
			cards[i] = b.card(gctx, p, showDeleted, i == len(paths)-1)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return DrawerView{}, err
	}
	return DrawerView{Cards: cards}, nil
}

func (b *Browser) card(ctx context.Context, path string, showDeleted, expanded bool) MetadataCard {
	c := MetadataCard{Path: path, Title: "Metadata", Expanded: expanded}

	entry, err := b.Stat(ctx, path, showDeleted)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.Message = MessageNoMetadata
		return c
	case err != nil:
		logger.Get().Warn("failed to stat drawer path", "path", path, "error", err)
		c.Message = MessageSubjectFailed
		c.Err = err
		return c
	}

	h := b.Hierarchy(ctx)
	c.Entry = &entry
	c.Title = "Metadata for " + entry.Basename
	c.LinkedEntityIRI = entry.LinkedEntityIRI
	c.IsDirectory = fileutil.IsDirectory(&entry, h)

	if expanded && c.IsDirectory && b.hasEditRight(ctx, &entry, h) {
		c.MetadataUploadPath = path
	}

	if b.metadata != nil && entry.LinkedEntityIRI != "" {
		nodes, err := b.metadata.Subject(ctx, entry.LinkedEntityIRI)
		if err != nil {
			logger.Get().Warn("failed to fetch linked data", "subject", entry.LinkedEntityIRI, "error", err)
			c.Err = err
			return c
		}
		c.Properties = metadata.Properties(nodes, entry.LinkedEntityIRI, b.vocabularyOrNil(ctx))
	}
	return c
}

// hasEditRight reports whether the current user may change the metadata
// of entry. Without a user source the server is left to decide.
func (b *Browser) hasEditRight(ctx context.Context, entry *domain.FileEntry, h domain.Hierarchy) bool {
	if b.caps.ReadOnly || entry.IsDeleted() {
		return false
	}
	if b.users == nil {
		return true
	}
	user, err := b.users.CurrentUser(ctx)
	if err != nil {
		return false
	}
	if _, ok := h.Level(entry.LinkedEntityType); !ok {
		return true
	}
	return fileutil.CanEditHierarchyLevel(user, h, entry.LinkedEntityType)
}

func (b *Browser) rootHasDirectories(ctx context.Context) bool {
	entries, err := b.api.List(ctx, fileutil.PathSeparator, false)
	if err != nil {
		return false
	}
	h := b.Hierarchy(ctx)
	for i := range entries {
		if fileutil.IsDirectory(&entries[i], h) {
			return true
		}
	}
	return false
}

func (b *Browser) vocabularyOrNil(ctx context.Context) *vocabulary.Vocabulary {
	if b.vocab == nil {
		return nil
	}
	v, err := b.vocab.Vocabulary(ctx)
	if err != nil {
		return nil
	}
	return v
}

// MetadataTemplate returns the CSV template for bulk metadata uploads
func (b *Browser) MetadataTemplate(ctx context.Context, typeIRIs ...string) (string, error) {
	if b.vocab == nil {
		return "", domain.ErrVocabularyUnavailable
	}
	v, err := b.vocab.Vocabulary(ctx)
	if err != nil {
		return "", err
	}
	return template.Generate(v, typeIRIs...)
}

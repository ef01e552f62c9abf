package vocabulary

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/jsonld"
	"github.com/Ning0612/mercury/internal/logger"
)

// Fetcher loads the expanded vocabulary graph
type Fetcher interface {
	FetchVocabulary(ctx context.Context) ([]jsonld.Node, error)
}

// HierarchyFetcher is implemented by fetchers that serve the hierarchy
// endpoint. Its payload is parsed with ParseHierarchyNodes.
type HierarchyFetcher interface {
	FetchHierarchy(ctx context.Context) ([]byte, error)
}

// Provider fetches the vocabulary once per session together with the
// hierarchy, which is read from the hierarchy endpoint when the fetcher
// serves it and derived from the vocabulary otherwise. Concurrent first callers share one fetch. A failed
// fetch is remembered: the hierarchy stays empty until Reload is called.
type Provider struct {
	fetcher Fetcher
	group   singleflight.Group

	mu        sync.RWMutex
	loaded    bool
	vocab     *Vocabulary
	hierarchy domain.Hierarchy
	err       error
}

// NewProvider creates a provider over the given fetcher
func NewProvider(fetcher Fetcher) *Provider {
	return &Provider{fetcher: fetcher}
}

// Vocabulary returns the session vocabulary. On failure an empty
// vocabulary is returned together with the fetch error.
func (p *Provider) Vocabulary(ctx context.Context) (*Vocabulary, error) {
	if err := p.load(ctx); err != nil {
		return Empty(), err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.vocab, nil
}

// Hierarchy returns the session hierarchy, empty when the vocabulary
// could not be loaded
func (p *Provider) Hierarchy(ctx context.Context) domain.Hierarchy {
	if err := p.load(ctx); err != nil {
		return domain.Hierarchy{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hierarchy
}

// Err returns the error of the last fetch, if any
func (p *Provider) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Reload discards the memoized vocabulary so the next call fetches again
func (p *Provider) Reload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = false
	p.vocab = nil
	p.hierarchy = nil
	p.err = nil
}

func (p *Provider) load(ctx context.Context) error {
	p.mu.RLock()
	if p.loaded {
		err := p.err
		p.mu.RUnlock()
		return err
	}
	p.mu.RUnlock()

	_, err, _ := p.group.Do("vocabulary", func() (any, error) {
		p.mu.RLock()
		if p.loaded {
			err := p.err
			p.mu.RUnlock()
			return nil, err
		}
		p.mu.RUnlock()

		nodes, err := p.fetcher.FetchVocabulary(ctx)
		var (
			vocab     *Vocabulary
			hierarchy domain.Hierarchy
		)
		if err == nil {
			vocab = New(nodes)
			hierarchy = p.fetchHierarchy(ctx, vocab)
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		// cancellation is not remembered
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.loaded = true
		if err != nil {
			p.err = fmt.Errorf("%w: %v", domain.ErrVocabularyUnavailable, err)
			p.vocab = Empty()
			p.hierarchy = domain.Hierarchy{}
			logger.Get().Warn("vocabulary unavailable, directory creation disabled", "error", err)
			return nil, p.err
		}
		p.vocab = vocab
		p.hierarchy = hierarchy
		logger.Get().Debug("vocabulary loaded", "nodes", p.vocab.Len(), "levels", len(p.hierarchy))
		return nil, nil
	})
	return err
}

func (p *Provider) fetchHierarchy(ctx context.Context, v *Vocabulary) domain.Hierarchy {
	hf, ok := p.fetcher.(HierarchyFetcher)
	if !ok {
		return BuildHierarchy(v)
	}
	data, err := hf.FetchHierarchy(ctx)
	if err == nil {
		var h domain.Hierarchy
		if h, err = ParseHierarchyNodes(data, v); err == nil {
			return h
		}
	}
	if ctx.Err() == nil {
		logger.Get().Warn("hierarchy endpoint unavailable, deriving hierarchy from vocabulary", "error", err)
	}
	return BuildHierarchy(v)
}

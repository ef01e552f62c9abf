package views

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/logger"
)

// CountTimeoutWarning is reported when the total count is not available
const CountTimeoutWarning = "Fetching total count of results took too long. The count will not be shown."

// Result is the outcome of a refresh
type Result struct {
	Page  Page  `json:"page" yaml:"page"`
	Count Count `json:"count" yaml:"count"`

	// Warning is set when the count could not be determined in time
	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// scope is an in-flight fetch of one kind
type scope struct {
	cancel context.CancelFunc
	gen    uint64
}

// Fetcher loads a view for a set of filters. A new fetch of the same kind
// cancels the one in flight. It is safe for concurrent use.
type Fetcher struct {
	source  Source
	timeout time.Duration

	mu      sync.Mutex
	view    string
	filters []Filter
	rows    scope
	count   scope
	gen     uint64
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithRequestTimeout bounds every row and count request
func WithRequestTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.timeout = d }
}

// NewFetcher creates a fetcher over source
func NewFetcher(source Source, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{source: source}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Refresh loads the first page of view. When there is no next page the
// count is the number of rows, otherwise it is requested separately.
func (f *Fetcher) Refresh(ctx context.Context, view string, filters []Filter, location string, pageSize int) (Result, error) {
	all := WithLocation(filters, location)

	f.mu.Lock()
	f.view = view
	f.filters = all
	f.cancelLocked(&f.count)
	f.mu.Unlock()

	req := Request{View: view, Page: 0, Size: pageSizeOrDefault(pageSize), Filters: all}
	page, err := f.fetchRows(ctx, req)
	if err != nil {
		return Result{Count: Count{Count: -1}}, err
	}

	res := Result{Page: page}
	if !page.HasNext {
		res.Count = Count{Count: int64(len(page.Rows))}
		return res, nil
	}

	res.Count, err = f.fetchCount(ctx, req)
	if err != nil {
		return res, err
	}
	if res.Count.Timeout {
		res.Warning = CountTimeoutWarning
	}
	return res, nil
}

// Page loads another page of the last refreshed view without a count
func (f *Fetcher) Page(ctx context.Context, page, pageSize int) (Page, error) {
	f.mu.Lock()
	view, filters := f.view, f.filters
	f.mu.Unlock()

	if view == "" {
		return Page{}, fmt.Errorf("%w: no view loaded", domain.ErrBadRequest)
	}
	if page < 0 {
		return Page{}, fmt.Errorf("%w: negative page %d", domain.ErrBadRequest, page)
	}
	return f.fetchRows(ctx, Request{View: view, Page: page, Size: pageSizeOrDefault(pageSize), Filters: filters})
}

func (f *Fetcher) fetchRows(ctx context.Context, req Request) (Page, error) {
	fctx, done, superseded := f.begin(ctx, &f.rows)
	defer done()

	page, err := f.source.Rows(fctx, req)
	if superseded() {
		return Page{}, fmt.Errorf("rows of %s superseded: %w", req.View, context.Canceled)
	}
	if err != nil {
		if f.timedOut(ctx, fctx, err) {
			logger.Get().Warn("view rows timed out", "view", req.View, "page", req.Page)
			return Page{Timeout: true}, nil
		}
		return Page{}, err
	}
	if page.Timeout {
		logger.Get().Warn("view rows incomplete", "view", req.View, "page", req.Page, "rows", len(page.Rows))
	}
	return page, nil
}

func (f *Fetcher) fetchCount(ctx context.Context, req Request) (Count, error) {
	fctx, done, superseded := f.begin(ctx, &f.count)
	defer done()

	count, err := f.source.Count(fctx, req)
	if superseded() {
		return Count{Count: -1}, fmt.Errorf("count of %s superseded: %w", req.View, context.Canceled)
	}
	if err != nil {
		if f.timedOut(ctx, fctx, err) {
			count = Count{Timeout: true}
		} else {
			return Count{Count: -1}, err
		}
	}
	if count.Timeout {
		count.Count = -1
		logger.Get().Warn("view count timed out", "view", req.View)
	}
	return count, nil
}

// begin cancels the in-flight fetch of a kind and starts a new one. done
// releases the scope; superseded reports whether a newer fetch started.
func (f *Fetcher) begin(ctx context.Context, s *scope) (context.Context, func(), func() bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancelLocked(s)

	var fctx context.Context
	var cancel context.CancelFunc
	if f.timeout > 0 {
		fctx, cancel = context.WithTimeout(ctx, f.timeout)
	} else {
		fctx, cancel = context.WithCancel(ctx)
	}
	f.gen++
	gen := f.gen
	*s = scope{cancel: cancel, gen: gen}

	done := func() {
		cancel()
		f.mu.Lock()
		if s.gen == gen {
			s.cancel = nil
		}
		f.mu.Unlock()
	}
	superseded := func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return s.gen != gen
	}
	return fctx, done, superseded
}

func (f *Fetcher) cancelLocked(s *scope) {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	f.gen++
	s.gen = f.gen
}

// timedOut reports whether err comes from the request deadline rather than
// from the caller giving up
func (f *Fetcher) timedOut(parent, fctx context.Context, err error) bool {
	if errors.Is(err, domain.ErrTimeout) {
		return true
	}
	return parent.Err() == nil && errors.Is(fctx.Err(), context.DeadlineExceeded)
}

func pageSizeOrDefault(size int) int {
	if size < 1 {
		return DefaultPageSize
	}
	return size
}

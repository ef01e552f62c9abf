package views

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource serves rows and counts; a blocked kind waits for its context
type fakeSource struct {
	mu       sync.Mutex
	page     Page
	count    Count
	rowsErr  error
	countErr error
	block    map[string]bool
	requests []string
	started  map[string]int
	finished map[string]error
}

func newFakeSource(page Page, count Count) *fakeSource {
	return &fakeSource{
		page:     page,
		count:    count,
		block:    make(map[string]bool),
		started:  make(map[string]int),
		finished: make(map[string]error),
	}
}

func (s *fakeSource) wait(ctx context.Context, kind string, req Request) error {
	s.mu.Lock()
	s.requests = append(s.requests, kind+":"+req.View)
	s.started[kind]++
	block := s.block[kind]
	s.mu.Unlock()

	var err error
	if block {
		<-ctx.Done()
		err = ctx.Err()
	}
	s.mu.Lock()
	s.finished[kind] = err
	s.mu.Unlock()
	return err
}

func (s *fakeSource) Rows(ctx context.Context, req Request) (Page, error) {
	if err := s.wait(ctx, "rows", req); err != nil {
		return Page{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.rowsErr
}

func (s *fakeSource) Count(ctx context.Context, req Request) (Count, error) {
	if err := s.wait(ctx, "count", req); err != nil {
		return Count{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, s.countErr
}

func (s *fakeSource) setBlock(kind string, block bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block[kind] = block
}

func (s *fakeSource) startedCount(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started[kind]
}

func rows(n int) []Row {
	out := make([]Row, n)
	for i := range out {
		out[i] = Row{"Sample_id": {{Value: "s", Label: "S"}}}
	}
	return out
}

func TestFetcher_RefreshWithoutNextPage(t *testing.T) {
	src := newFakeSource(Page{Rows: rows(3)}, Count{Count: 100})
	f := NewFetcher(src)

	res, err := f.Refresh(context.Background(), "Sample", nil, "", 10)
	require.NoError(t, err)
	assert.Len(t, res.Page.Rows, 3)
	assert.Equal(t, Count{Count: 3}, res.Count)
	assert.Zero(t, src.startedCount("count"), "count is derived from the rows")
}

func TestFetcher_RefreshWithNextPage(t *testing.T) {
	src := newFakeSource(Page{Rows: rows(10), HasNext: true}, Count{Count: 42})
	f := NewFetcher(src)

	res, err := f.Refresh(context.Background(), "Sample", nil, "", 10)
	require.NoError(t, err)
	assert.Equal(t, Count{Count: 42}, res.Count)
	assert.Empty(t, res.Warning)
}

func TestFetcher_CountTimeout(t *testing.T) {
	t.Run("server flag", func(t *testing.T) {
		src := newFakeSource(Page{Rows: rows(10), HasNext: true}, Count{Count: 0, Timeout: true})
		res, err := NewFetcher(src).Refresh(context.Background(), "Sample", nil, "", 10)
		require.NoError(t, err)
		assert.Equal(t, Count{Count: -1, Timeout: true}, res.Count)
		assert.Equal(t, CountTimeoutWarning, res.Warning)
	})

	t.Run("deadline", func(t *testing.T) {
		src := newFakeSource(Page{Rows: rows(10), HasNext: true}, Count{})
		src.setBlock("count", true)
		f := NewFetcher(src, WithRequestTimeout(20*time.Millisecond))

		res, err := f.Refresh(context.Background(), "Sample", nil, "", 10)
		require.NoError(t, err)
		assert.Len(t, res.Page.Rows, 10)
		assert.True(t, res.Count.Unknown())
		assert.Equal(t, CountTimeoutWarning, res.Warning)
	})

	t.Run("api timeout error", func(t *testing.T) {
		src := newFakeSource(Page{Rows: rows(10), HasNext: true}, Count{})
		src.countErr = domain.ErrTimeout
		res, err := NewFetcher(src).Refresh(context.Background(), "Sample", nil, "", 10)
		require.NoError(t, err)
		assert.Equal(t, Count{Count: -1, Timeout: true}, res.Count)
	})
}

func TestFetcher_RowsTimeout(t *testing.T) {
	src := newFakeSource(Page{Rows: rows(2), HasNext: true, Timeout: true}, Count{Count: 9})
	res, err := NewFetcher(src).Refresh(context.Background(), "Sample", nil, "", 10)
	require.NoError(t, err)
	assert.True(t, res.Page.Timeout)
	assert.Len(t, res.Page.Rows, 2)

	src = newFakeSource(Page{}, Count{})
	src.setBlock("rows", true)
	res, err = NewFetcher(src, WithRequestTimeout(20*time.Millisecond)).Refresh(context.Background(), "Sample", nil, "", 10)
	require.NoError(t, err)
	assert.True(t, res.Page.Timeout)
	assert.Empty(t, res.Page.Rows)
}

func TestFetcher_Errors(t *testing.T) {
	src := newFakeSource(Page{}, Count{})
	src.rowsErr = domain.ErrPermissionDenied
	res, err := NewFetcher(src).Refresh(context.Background(), "Sample", nil, "", 10)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.True(t, res.Count.Unknown())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src = newFakeSource(Page{}, Count{})
	src.setBlock("rows", true)
	_, err = NewFetcher(src, WithRequestTimeout(time.Minute)).Refresh(ctx, "Sample", nil, "", 10)
	assert.ErrorIs(t, err, context.Canceled, "a cancelled caller is not a timeout")
}

func TestFetcher_NewRefreshCancelsInFlight(t *testing.T) {
	src := newFakeSource(Page{Rows: rows(10), HasNext: true}, Count{Count: 50})
	src.setBlock("count", true)
	f := NewFetcher(src)

	errc := make(chan error, 1)
	go func() {
		_, err := f.Refresh(context.Background(), "Sample", nil, "", 10)
		errc <- err
	}()
	testutil.AssertEventually(t, time.Second, func() bool { return src.startedCount("count") == 1 }, "count never started")

	src.setBlock("count", false)
	res, err := f.Refresh(context.Background(), "Subject", nil, "", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Count.Count)

	err = <-errc
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestFetcher_PageSupersedesPage(t *testing.T) {
	src := newFakeSource(Page{Rows: rows(1)}, Count{})
	f := NewFetcher(src)
	_, err := f.Refresh(context.Background(), "Sample", nil, "", 10)
	require.NoError(t, err)

	src.setBlock("rows", true)
	errc := make(chan error, 1)
	go func() {
		_, err := f.Page(context.Background(), 1, 10)
		errc <- err
	}()
	testutil.AssertEventually(t, time.Second, func() bool { return src.startedCount("rows") == 2 }, "page never started")

	src.setBlock("rows", false)
	page, err := f.Page(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Rows, 1)
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestFetcher_PageWithoutView(t *testing.T) {
	_, err := NewFetcher(newFakeSource(Page{}, Count{})).Page(context.Background(), 0, 10)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

// recordingSource keeps the last request
type recordingSource struct {
	mu  sync.Mutex
	req Request
}

func (s *recordingSource) Rows(ctx context.Context, req Request) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.req = req
	return Page{}, nil
}

func (s *recordingSource) Count(ctx context.Context, req Request) (Count, error) {
	return Count{}, nil
}

func TestFetcher_RequestShape(t *testing.T) {
	src := &recordingSource{}
	f := NewFetcher(src)

	filters := []Filter{
		{Field: "Sample_type", Values: []string{"blood"}},
		{Field: LocationField, Values: []string{"https://example.org/api/webdav/other"}},
	}
	_, err := f.Refresh(context.Background(), "Sample", filters, "https://example.org/api/webdav/dept", 0)
	require.NoError(t, err)

	assert.Equal(t, Request{
		View: "Sample",
		Page: 0,
		Size: DefaultPageSize,
		Filters: []Filter{
			{Field: "Sample_type", Values: []string{"blood"}},
			{Field: LocationField, Values: []string{"https://example.org/api/webdav/dept"}},
		},
	}, src.req)

	_, err = f.Page(context.Background(), 3, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, src.req.Page)
	assert.Equal(t, 50, src.req.Size)
	assert.Len(t, src.req.Filters, 2)
}

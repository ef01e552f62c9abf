package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/mercury/internal/config"
	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/metadata"
	"github.com/Ning0612/mercury/internal/testutil"
	"github.com/Ning0612/mercury/internal/views"
)

// recorded is the last request a test server received
type recorded struct {
	mu     sync.Mutex
	method string
	path   string
	query  string
	header http.Header
	body   string
}

func (r *recorded) get() recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recorded{method: r.method, path: r.path, query: r.query, header: r.header, body: r.body}
}

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.method, rec.path, rec.query, rec.header, rec.body = r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Clone(), string(body)
		rec.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(ts.Close)

	c, err := New(Config{BaseURL: ts.URL + "/api", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c, rec
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, domain.ErrBadRequest},
		{http.StatusUnauthorized, domain.ErrPermissionDenied},
		{http.StatusForbidden, domain.ErrPermissionDenied},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusConflict, domain.ErrAlreadyExists},
		{http.StatusGatewayTimeout, domain.ErrTimeout},
		{http.StatusInternalServerError, domain.ErrNetworkError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})
			_, err := c.CurrentUser(context.Background())
			assert.ErrorIs(t, err, tt.want)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.Code)
			assert.Equal(t, "nope", se.Message)
		})
	}
}

func TestTransportError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, TransportError(ctx, context.Canceled))
	assert.ErrorIs(t, TransportError(context.Background(), context.DeadlineExceeded), domain.ErrTimeout)
	assert.ErrorIs(t, TransportError(context.Background(), errors.New("connection refused")), domain.ErrNetworkError)
	assert.NoError(t, TransportError(context.Background(), nil))
}

func TestClient_Timeout(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.CurrentUser(ctx)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestClient_FetchVocabulary(t *testing.T) {
	c, rec := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentJSONLD)
		_, _ = io.WriteString(w, testutil.VocabularyJSON)
	})

	nodes, err := c.FetchVocabulary(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, nodes)

	got := rec.get()
	assert.Equal(t, "/api/vocabulary/", got.path)
	assert.Equal(t, contentJSONLD, got.header.Get("Accept"))
}

func TestClient_FetchHierarchy(t *testing.T) {
	c, rec := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentJSON)
		_, _ = io.WriteString(w, `[{"TypeName":"Department","IsRoot":true,"ChildNodes":["Study"]}]`)
	})

	data, err := c.FetchHierarchy(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"TypeName":"Department","IsRoot":true,"ChildNodes":["Study"]}]`, string(data))

	got := rec.get()
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/api/vocabulary/hierarchy/", got.path)
}

func TestClient_FetchHierarchy_NotFound(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := c.FetchHierarchy(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_Subject(t *testing.T) {
	c, rec := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"@id":"https://example.org/e/1","http://www.w3.org/2000/01/rdf-schema#label":"One"}`)
	})

	nodes, err := c.Subject(context.Background(), "https://example.org/e/1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "https://example.org/e/1", nodes[0].ID())

	got := rec.get()
	assert.Equal(t, "/api/metadata/", got.path)
	assert.Contains(t, got.query, "subject=https%3A%2F%2Fexample.org%2Fe%2F1")
	assert.Contains(t, got.query, "withValueProperties=true")
}

func TestClient_EntitiesByType(t *testing.T) {
	c, rec := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := c.EntitiesByType(context.Background(), "https://example.org/Study", "https://example.org/Sample")
	require.NoError(t, err)

	got := rec.get()
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/rdf/", got.path)
	assert.Equal(t, contentSPARQL, got.header.Get("Content-Type"))
	assert.Contains(t, got.body, "FILTER(?t in (<https://example.org/Study>, <https://example.org/Sample>))")

	_, err = c.EntitiesByType(context.Background(), "x> . ?s ?p ?o")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestClient_SubjectByPath(t *testing.T) {
	c, rec := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"id": "https://example.org/e/dept"})
	})

	id, err := c.SubjectByPath(context.Background(), "/dept")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/e/dept", id)
	assert.JSONEq(t, `{"value":"/dept"}`, rec.get().body)
}

func TestClient_UpdateMetadata(t *testing.T) {
	c, rec := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, c.UpdateMetadata(ctx, "s", "p", []metadata.Value{{Value: "v"}, {ID: "o"}}))
	got := rec.get()
	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, contentJSONLD, got.header.Get("Content-Type"))
	assert.JSONEq(t, `[{"@id":"s","p":[{"@value":"v"},{"@id":"o"}]}]`, got.body)

	require.NoError(t, c.UpdateMetadata(ctx, "s", "p", nil))
	got = rec.get()
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "predicate=p&subject=s", got.query)

	assert.ErrorIs(t, c.UpdateMetadata(ctx, "", "p", nil), domain.ErrBadRequest)
}

func TestClient_Views(t *testing.T) {
	c, rec := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/views/":
			if r.Method == http.MethodGet {
				writeJSON(w, []views.View{{Name: "Sample", Title: "Samples"}})
				return
			}
			writeJSON(w, map[string]any{
				"rows":    []map[string]any{{"Sample": []map[string]any{{"label": "S1", "value": "https://example.org/s1"}}}},
				"hasNext": true,
				"timeout": false,
			})
		case "/api/views/count":
			writeJSON(w, map[string]any{"count": nil, "timeout": true})
		case "/api/views/facets":
			writeJSON(w, map[string]any{"facets": []views.Facet{{Name: "Sample_type", Type: views.FacetTerm}}})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	list, err := c.Views(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Samples", list[0].Title)

	facets, err := c.Facets(ctx)
	require.NoError(t, err)
	assert.Equal(t, views.FacetTerm, facets[0].Type)

	req := views.Request{View: "Sample", Page: 0, Size: 10, Filters: []views.Filter{{Field: "Sample_type", Values: []string{"x"}}}}
	page, err := c.Rows(ctx, req)
	require.NoError(t, err)
	assert.True(t, page.HasNext)
	assert.Equal(t, "S1", page.Rows[0]["Sample"][0].String())

	var sent viewRequest
	require.NoError(t, json.Unmarshal([]byte(rec.get().body), &sent))
	assert.Equal(t, 1, sent.Page, "pages are one based on the wire")

	count, err := c.Count(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, views.Count{Count: -1, Timeout: true}, count)
}

func TestClient_Users(t *testing.T) {
	c, rec := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/users/current":
			writeJSON(w, domain.User{IRI: "u1", Name: "Ann", IsAdmin: true})
		case r.Method == http.MethodGet:
			writeJSON(w, []domain.User{{IRI: "u1"}, {IRI: "u2"}})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	u, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.True(t, u.Admin())

	list, err := c.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, c.SetRole(ctx, "42", domain.RoleAddSharedMetadata, true))
	got := rec.get()
	assert.Equal(t, http.MethodPatch, got.method)
	assert.JSONEq(t, `{"id":"42","canAddSharedMetadata":true}`, got.body)
}

func TestNewTokenSource(t *testing.T) {
	assert.Nil(t, NewTokenSource(context.Background(), config.AuthConfig{}))

	ts := NewTokenSource(context.Background(), config.AuthConfig{BearerToken: "secret"})
	require.NotNil(t, ts)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "secret", tok.AccessToken)
}

func TestClient_ClientCredentials(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"access_token": "issued", "token_type": "Bearer", "expires_in": 3600})
	}))
	defer tokenServer.Close()

	var auth string
	var mu sync.Mutex
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		writeJSON(w, domain.User{IRI: "u1"})
	}))
	defer apiServer.Close()

	ts := NewTokenSource(context.Background(), config.AuthConfig{
		TokenURL:     tokenServer.URL,
		ClientID:     "mercury",
		ClientSecret: "s3cret",
	})
	c, err := New(Config{BaseURL: apiServer.URL, TokenSource: ts})
	require.NoError(t, err)

	_, err = c.CurrentUser(context.Background())
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasPrefix(auth, "Bearer issued"), auth)
}

// Package api is the HTTP client of the platform's JSON and JSON-LD
// services: vocabulary, metadata, metadata views and users.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Ning0612/mercury/internal/jsonld"
	"github.com/Ning0612/mercury/internal/logger"
	"github.com/Ning0612/mercury/internal/users"
	"github.com/Ning0612/mercury/internal/views"
	"github.com/Ning0612/mercury/internal/vocabulary"
)

const (
	contentJSON   = "application/json"
	contentJSONLD = "application/ld+json"
	contentSPARQL = "application/sparql-query"

	// DefaultTimeout applies when no timeout is configured
	DefaultTimeout = 30 * time.Second
)

// Config holds client configuration
type Config struct {
	// BaseURL is the root of the JSON APIs, e.g. https://host/api
	BaseURL string

	Timeout time.Duration

	// TokenSource authenticates every request; nil sends no credentials
	TokenSource oauth2.TokenSource
}

// Client talks to the platform APIs. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a new client
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    base,
		httpClient: NewHTTPClient(cfg.Timeout, cfg.TokenSource),
	}, nil
}

// NewHTTPClient builds an HTTP client with tuned transport settings,
// authenticated through ts when given
func NewHTTPClient(timeout time.Duration, ts oauth2.TokenSource) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if ts != nil {
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// request is one API call
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	accept      string
}

func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), r.body)
	if err != nil {
		return nil, err
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, TransportError(ctx, err)
	}
	logger.Get().Debug("api request", "method", r.method, "path", r.path, "status", resp.StatusCode, "duration", time.Since(start))

	if err := CheckResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// call performs r and decodes a JSON response into out when out is not nil
func (c *Client) call(ctx context.Context, r request, out any) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

// callJSONLD performs r and expands the JSON-LD response
func (c *Client) callJSONLD(ctx context.Context, r request) ([]jsonld.Node, error) {
	r.accept = contentJSONLD
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, TransportError(ctx, err)
	}
	nodes, err := jsonld.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", r.path, err)
	}
	return nodes, nil
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// Compile-time interface checks
var (
	_ vocabulary.Fetcher = (*Client)(nil)
	_ views.Source       = (*Client)(nil)
	_ users.API          = (*Client)(nil)
)

package api

import (
	"context"
	"net/http"

	"github.com/Ning0612/mercury/internal/views"
)

// viewRequest is the wire form of a view query; pages start at 1
type viewRequest struct {
	View    string         `json:"view"`
	Page    int            `json:"page"`
	Size    int            `json:"size"`
	Filters []views.Filter `json:"filters,omitempty"`
}

func toViewRequest(req views.Request) viewRequest {
	return viewRequest{View: req.View, Page: req.Page + 1, Size: req.Size, Filters: req.Filters}
}

// Views lists the configured metadata views
func (c *Client) Views(ctx context.Context) ([]views.View, error) {
	var out []views.View
	err := c.call(ctx, request{method: http.MethodGet, path: "views/", accept: contentJSON}, &out)
	return out, err
}

// Facets lists the facets of all views
func (c *Client) Facets(ctx context.Context) ([]views.Facet, error) {
	var out struct {
		Facets []views.Facet `json:"facets"`
	}
	err := c.call(ctx, request{method: http.MethodGet, path: "views/facets", accept: contentJSON}, &out)
	return out.Facets, err
}

// Rows fetches one page of a view
func (c *Client) Rows(ctx context.Context, req views.Request) (views.Page, error) {
	body, err := jsonBody(toViewRequest(req))
	if err != nil {
		return views.Page{}, err
	}
	var page views.Page
	err = c.call(ctx, request{
		method:      http.MethodPost,
		path:        "views/",
		body:        body,
		contentType: contentJSON,
		accept:      contentJSON,
	}, &page)
	return page, err
}

// Count fetches the number of rows of a view. A missing count is reported
// as -1.
func (c *Client) Count(ctx context.Context, req views.Request) (views.Count, error) {
	body, err := jsonBody(toViewRequest(req))
	if err != nil {
		return views.Count{Count: -1}, err
	}
	var out struct {
		Count   *int64 `json:"count"`
		Timeout bool   `json:"timeout"`
	}
	err = c.call(ctx, request{
		method:      http.MethodPost,
		path:        "views/count",
		body:        body,
		contentType: contentJSON,
		accept:      contentJSON,
	}, &out)
	if err != nil {
		return views.Count{Count: -1}, err
	}

	count := views.Count{Count: -1, Timeout: out.Timeout}
	if out.Count != nil {
		count.Count = *out.Count
	}
	return count, nil
}

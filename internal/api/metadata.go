package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/jsonld"
	"github.com/Ning0612/mercury/internal/metadata"
)

const entitiesQuery = `PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
CONSTRUCT {?s rdf:type ?t . ?s rdfs:label ?l}
WHERE {
    { ?s rdf:type ?t FILTER(?t in (%s))}
    OPTIONAL { ?s rdfs:label ?l}
}`

// FetchVocabulary loads the expanded vocabulary graph
func (c *Client) FetchVocabulary(ctx context.Context) ([]jsonld.Node, error) {
	return c.callJSONLD(ctx, request{method: http.MethodGet, path: "vocabulary/"})
}

// FetchHierarchy loads the raw payload of the hierarchy endpoint, a list
// of {TypeName, IsRoot, ChildNodes} nodes
func (c *Client) FetchHierarchy(ctx context.Context) ([]byte, error) {
	var raw json.RawMessage
	err := c.call(ctx, request{method: http.MethodGet, path: "vocabulary/hierarchy/", accept: contentJSON}, &raw)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Subject loads the statements about subject, including the labels of
// referenced entities
func (c *Client) Subject(ctx context.Context, subject string) ([]jsonld.Node, error) {
	q := url.Values{}
	q.Set("subject", subject)
	q.Set("withValueProperties", "true")
	return c.callJSONLD(ctx, request{method: http.MethodGet, path: "metadata/", query: q})
}

// EntitiesByType returns every entity of one of the given types with its
// type and label
func (c *Client) EntitiesByType(ctx context.Context, types ...string) ([]jsonld.Node, error) {
	if len(types) == 0 {
		return nil, nil
	}
	iris := make([]string, len(types))
	for i, t := range types {
		if strings.ContainsAny(t, "<> ") {
			return nil, fmt.Errorf("%w: invalid type iri %q", domain.ErrBadRequest, t)
		}
		iris[i] = "<" + t + ">"
	}

	query := fmt.Sprintf(entitiesQuery, strings.Join(iris, ", "))
	return c.callJSONLD(ctx, request{
		method:      http.MethodPost,
		path:        "rdf/",
		body:        strings.NewReader(query),
		contentType: contentSPARQL,
	})
}

// SubjectByPath resolves the metadata subject of a file path
func (c *Client) SubjectByPath(ctx context.Context, path string) (string, error) {
	body, err := jsonBody(map[string]string{"value": path})
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	err = c.call(ctx, request{
		method:      http.MethodPost,
		path:        "metadata/pid",
		body:        body,
		contentType: contentJSON,
		accept:      contentJSON,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateMetadata replaces the values of predicate on subject. Without
// values the predicate is removed.
func (c *Client) UpdateMetadata(ctx context.Context, subject, predicate string, values []metadata.Value) error {
	if subject == "" || predicate == "" {
		return fmt.Errorf("%w: no subject or predicate given", domain.ErrBadRequest)
	}

	if len(values) == 0 {
		q := url.Values{}
		q.Set("subject", subject)
		q.Set("predicate", predicate)
		return c.call(ctx, request{method: http.MethodDelete, path: "metadata/", query: q}, nil)
	}

	body, err := jsonBody([]any{metadata.ToJSONLD(subject, predicate, values)})
	if err != nil {
		return err
	}
	return c.call(ctx, request{
		method:      http.MethodPatch,
		path:        "metadata/",
		body:        body,
		contentType: contentJSONLD,
	}, nil)
}

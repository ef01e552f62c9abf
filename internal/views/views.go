// Package views fetches rows and counts of metadata views and turns facet
// selections into view filters.
package views

import (
	"context"
	"strconv"
)

// LocationField is the filter field restricting a view to a directory
const LocationField = "location"

// DefaultPageSize is used when no page size is given
const DefaultPageSize = 20

// Column is a column of a view
type Column struct {
	Name  string    `json:"name" yaml:"name"`
	Title string    `json:"title" yaml:"title"`
	Type  FacetType `json:"type" yaml:"type"`
}

// View is a named table over metadata entities
type View struct {
	Name    string   `json:"name" yaml:"name"`
	Title   string   `json:"title" yaml:"title"`
	Columns []Column `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// Filter restricts a view on one field. The server applies Min and Max
// first, then Values, then Prefix.
type Filter struct {
	Field  string   `json:"field" yaml:"field"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
	Min    any      `json:"min,omitempty" yaml:"min,omitempty"`
	Max    any      `json:"max,omitempty" yaml:"max,omitempty"`
	Prefix string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// IsEmpty reports whether the filter does not restrict anything
func (f Filter) IsEmpty() bool {
	return len(f.Values) == 0 && f.Min == nil && f.Max == nil && f.Prefix == ""
}

// Request is a single view query. Page is zero based.
type Request struct {
	View    string   `json:"view"`
	Page    int      `json:"page"`
	Size    int      `json:"size"`
	Filters []Filter `json:"filters,omitempty"`
}

// Value is one cell value of a row
type Value struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value" yaml:"value"`
}

// String returns the label, falling back to the raw value
func (v Value) String() string {
	if v.Label != "" {
		return v.Label
	}
	switch x := v.Value.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// Row maps column names to cell values
type Row map[string][]Value

// Page is one page of view rows
type Page struct {
	Rows    []Row `json:"rows" yaml:"rows"`
	HasNext bool  `json:"hasNext" yaml:"hasNext"`

	// Timeout is set when the server stopped before the page was complete
	Timeout bool `json:"timeout" yaml:"timeout"`
}

// Count is the total number of rows; -1 when unknown
type Count struct {
	Count   int64 `json:"count" yaml:"count"`
	Timeout bool  `json:"timeout" yaml:"timeout"`
}

// Unknown reports whether the count could not be determined
func (c Count) Unknown() bool {
	return c.Count < 0
}

// Source executes view queries, typically the metadata view API
type Source interface {
	Rows(ctx context.Context, req Request) (Page, error)
	Count(ctx context.Context, req Request) (Count, error)
}

// WithLocation restricts filters to a directory. A location replaces any
// location filter already present; an empty location leaves filters as is.
func WithLocation(filters []Filter, location string) []Filter {
	out := make([]Filter, 0, len(filters)+1)
	for _, f := range filters {
		if location != "" && f.Field == LocationField {
			continue
		}
		out = append(out, f)
	}
	if location != "" {
		out = append(out, Filter{Field: LocationField, Values: []string{location}})
	}
	return out
}

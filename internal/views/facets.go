package views

import (
	"fmt"
	"strings"

	"github.com/Ning0612/mercury/internal/domain"
)

// FacetType selects how a facet is filtered
type FacetType string

const (
	FacetTerm       FacetType = "Term"
	FacetTermSet    FacetType = "TermSet"
	FacetIdentifier FacetType = "Identifier"
	FacetText       FacetType = "Text"
	FacetSet        FacetType = "Set"
	FacetNumber     FacetType = "Number"
	FacetDate       FacetType = "Date"
	FacetBoolean    FacetType = "Boolean"
)

// IsValid checks if the facet type is a known value
func (t FacetType) IsValid() bool {
	switch t {
	case FacetTerm, FacetTermSet, FacetIdentifier, FacetText, FacetSet, FacetNumber, FacetDate, FacetBoolean:
		return true
	}
	return false
}

// IsRange reports whether the facet is filtered by bounds
func (t FacetType) IsRange() bool {
	return t == FacetNumber || t == FacetDate
}

// FacetValue is one selectable option of a term facet
type FacetValue struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Facet describes a filterable column of a view
type Facet struct {
	Name   string       `json:"name" yaml:"name"`
	Title  string       `json:"title" yaml:"title"`
	Type   FacetType    `json:"type" yaml:"type"`
	Values []FacetValue `json:"values,omitempty" yaml:"values,omitempty"`
	Min    any          `json:"min,omitempty" yaml:"min,omitempty"`
	Max    any          `json:"max,omitempty" yaml:"max,omitempty"`
}

// Selection is what a user picked on one facet
type Selection struct {
	Values []string
	Min    any
	Max    any
	Prefix string
}

// FilterFromSelection turns facet selections, keyed by facet name, into
// view filters in facet order. Empty selections are dropped.
func FilterFromSelection(facets []Facet, selected map[string]Selection) ([]Filter, error) {
	var filters []Filter
	for _, facet := range facets {
		sel, ok := selected[facet.Name]
		if !ok {
			continue
		}
		filter, err := facet.filter(sel)
		if err != nil {
			return nil, err
		}
		if !filter.IsEmpty() {
			filters = append(filters, filter)
		}
	}

	for name := range selected {
		if !hasFacet(facets, name) {
			return nil, fmt.Errorf("%w: unknown facet %q", domain.ErrBadRequest, name)
		}
	}
	return filters, nil
}

func (f Facet) filter(sel Selection) (Filter, error) {
	out := Filter{Field: f.Name}
	switch {
	case f.Type.IsRange():
		out.Min, out.Max = sel.Min, sel.Max
	case f.Type == FacetBoolean:
		for _, v := range nonBlank(sel.Values) {
			if v != "true" && v != "false" {
				return Filter{}, fmt.Errorf("%w: facet %s expects true or false, got %q", domain.ErrBadRequest, f.Name, v)
			}
			out.Values = append(out.Values, v)
		}
	case f.Type == FacetText:
		out.Prefix = strings.TrimSpace(sel.Prefix)
		out.Values = nonBlank(sel.Values)
	default:
		out.Values = nonBlank(sel.Values)
	}
	return out, nil
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func hasFacet(facets []Facet, name string) bool {
	for _, f := range facets {
		if f.Name == name {
			return true
		}
	}
	return false
}

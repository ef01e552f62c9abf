// Package jsonld holds helpers for reading expanded JSON-LD graphs as
// returned by the vocabulary and metadata services.
package jsonld

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/piprate/json-gold/ld"
)

// JSON-LD keywords and RDF list terms
const (
	KeywordID    = "@id"
	KeywordType  = "@type"
	KeywordValue = "@value"
	KeywordList  = "@list"

	RDFFirst = "http://www.w3.org/1999/02/22-rdf-syntax-ns#first"
	RDFRest  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#rest"
	RDFNil   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#nil"

	rdfsLabel = "http://www.w3.org/2000/01/rdf-schema#label"
	shName    = "http://www.w3.org/ns/shacl#name"
)

// Node is a single expanded JSON-LD node object
type Node map[string]any

// Expand runs JSON-LD expansion over a decoded document. Already expanded
// input comes back unchanged apart from normalisation.
func Expand(doc any) ([]Node, error) {
	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")

	expanded, err := proc.Expand(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("expand json-ld: %w", err)
	}

	nodes := make([]Node, 0, len(expanded))
	for _, item := range expanded {
		if m, ok := item.(map[string]any); ok {
			nodes = append(nodes, m)
		}
	}
	return nodes, nil
}

// Parse decodes and expands a JSON-LD document
func Parse(data []byte) ([]Node, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode json-ld: %w", err)
	}
	return Expand(doc)
}

// IsBlank reports whether an identifier is a blank node label
func IsBlank(id string) bool {
	return strings.HasPrefix(id, "_:")
}

// ID returns the node's @id
func (n Node) ID() string {
	id, _ := n[KeywordID].(string)
	return id
}

// Types returns the node's @type values
func (n Node) Types() []string {
	switch t := n[KeywordType].(type) {
	case string:
		return []string{t}
	case []any:
		types := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				types = append(types, s)
			}
		}
		return types
	case []string:
		return t
	}
	return nil
}

// HasType reports whether the node has the given @type
func (n Node) HasType(typeIRI string) bool {
	for _, t := range n.Types() {
		if t == typeIRI {
			return true
		}
	}
	return false
}

// Values returns the raw value objects of a predicate
func (n Node) Values(predicate string) []any {
	switch v := n[predicate].(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// FirstValue returns the first @value (or @id) of a predicate
func (n Node) FirstValue(predicate string) (any, bool) {
	for _, v := range n.Values(predicate) {
		if val, ok := valueOf(v); ok {
			return val, true
		}
	}
	return nil, false
}

// FirstString returns the first value of a predicate as a string
func (n Node) FirstString(predicate string) string {
	v, ok := n.FirstValue(predicate)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// FirstNumber returns the first value of a predicate as a number. Numbers
// stored as strings (typed literals) are parsed. NaN and infinities are
// not numbers here.
func (n Node) FirstNumber(predicate string) (float64, bool) {
	v, ok := n.FirstValue(predicate)
	if !ok {
		return 0, false
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// FirstBool returns the first value of a predicate interpreted as a boolean
func (n Node) FirstBool(predicate string) bool {
	v, ok := n.FirstValue(predicate)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}

// FirstID returns the first @id referenced by a predicate
func (n Node) FirstID(predicate string) string {
	ids := n.IDs(predicate)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// IDs returns all @id values referenced by a predicate
func (n Node) IDs(predicate string) []string {
	var ids []string
	for _, v := range n.Values(predicate) {
		if m, ok := v.(map[string]any); ok {
			if id, ok := m[KeywordID].(string); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Label returns the first non-empty string among the given predicates
func (n Node) Label(predicates ...string) string {
	for _, p := range predicates {
		if s := n.FirstString(p); s != "" {
			return s
		}
	}
	return ""
}

// DisplayLabel returns rdfs:label or sh:name, falling back to the link
// label of the node's IRI
func (n Node) DisplayLabel(shorten bool) string {
	if label := n.Label(rdfsLabel, shName); label != "" {
		return label
	}
	return LinkLabel(n.ID(), shorten)
}

// LinkLabel returns a short label for an IRI. With shorten set the part
// after the last '#' or '/' is used; otherwise the IRI is kept intact.
func LinkLabel(iri string, shorten bool) string {
	if !shorten {
		return iri
	}
	trimmed := strings.TrimRight(iri, "/#")
	if idx := strings.LastIndex(trimmed, "#"); idx >= 0 {
		return trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func valueOf(v any) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, v != nil
	}
	if val, ok := m[KeywordValue]; ok {
		return val, true
	}
	if id, ok := m[KeywordID]; ok {
		return id, true
	}
	return nil, false
}

// Graph indexes nodes by @id
type Graph struct {
	nodes []Node
	byID  map[string]Node
}

// NewGraph indexes the given nodes
func NewGraph(nodes []Node) *Graph {
	g := &Graph{nodes: nodes, byID: make(map[string]Node, len(nodes))}
	for _, n := range nodes {
		if id := n.ID(); id != "" {
			if _, dup := g.byID[id]; !dup {
				g.byID[id] = n
			}
		}
	}
	return g
}

// Nodes returns all nodes in input order
func (g *Graph) Nodes() []Node {
	return g.nodes
}

// Node returns the node with the given @id
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// List returns the @id members of an RDF list value of a predicate. Both the
// @list form and an rdf:first/rdf:rest chain of nodes in the graph are
// accepted; a plain array of references is returned as is.
func (g *Graph) List(n Node, predicate string) []string {
	var ids []string
	for _, v := range n.Values(predicate) {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if list, ok := m[KeywordList].([]any); ok {
			for _, item := range list {
				if im, ok := item.(map[string]any); ok {
					if id, ok := im[KeywordID].(string); ok {
						ids = append(ids, id)
					}
				}
			}
			continue
		}
		id, _ := m[KeywordID].(string)
		if id == "" || id == RDFNil {
			continue
		}
		if head, ok := g.Node(id); ok && head[RDFFirst] != nil {
			ids = append(ids, g.walkList(head)...)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (g *Graph) walkList(head Node) []string {
	var ids []string
	seen := make(map[string]bool)
	for cur := head; cur != nil; {
		if id := cur.ID(); id != "" {
			if seen[id] {
				break
			}
			seen[id] = true
		}
		if first := cur.FirstID(RDFFirst); first != "" {
			ids = append(ids, first)
		}
		rest := cur.FirstID(RDFRest)
		if rest == "" || rest == RDFNil {
			break
		}
		next, ok := g.Node(rest)
		if !ok {
			break
		}
		cur = next
	}
	return ids
}

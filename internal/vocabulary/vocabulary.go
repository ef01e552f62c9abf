// Package vocabulary resolves SHACL shapes, labels and the directory
// hierarchy from the platform's JSON-LD vocabulary graph.
package vocabulary

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/jsonld"
)

// Vocabulary is a read-only view over an expanded SHACL graph
type Vocabulary struct {
	graph *jsonld.Graph

	// shapes by target class (or by the shape's own IRI when the shape is the class)
	byType map[string]jsonld.Node
	order  []jsonld.Node
}

// New wraps an expanded JSON-LD vocabulary graph
func New(nodes []jsonld.Node) *Vocabulary {
	v := &Vocabulary{
		graph:  jsonld.NewGraph(nodes),
		byType: make(map[string]jsonld.Node),
	}
	for _, n := range nodes {
		if !isNodeShape(n) {
			continue
		}
		v.order = append(v.order, n)
		for _, t := range shapeTypes(n) {
			if _, exists := v.byType[t]; !exists {
				v.byType[t] = n
			}
		}
	}
	return v
}

// Empty returns a vocabulary without shapes
func Empty() *Vocabulary {
	return New(nil)
}

func isNodeShape(n jsonld.Node) bool {
	return n.HasType(ShNodeShape) || len(n.IDs(ShTargetClass)) > 0
}

// shapeTypes returns the classes a node shape describes
func shapeTypes(n jsonld.Node) []string {
	if targets := n.IDs(ShTargetClass); len(targets) > 0 {
		return targets
	}
	if id := n.ID(); id != "" && !jsonld.IsBlank(id) {
		return []string{id}
	}
	return nil
}

// Len returns the number of nodes in the graph
func (v *Vocabulary) Len() int {
	return len(v.graph.Nodes())
}

// Contains reports whether the IRI is described by the vocabulary itself.
// IRIs that are only referenced from other nodes are not contained.
func (v *Vocabulary) Contains(iri string) bool {
	if iri == "" {
		return false
	}
	_, ok := v.graph.Node(iri)
	return ok
}

// ShapeNode returns the raw node shape for a type
func (v *Vocabulary) ShapeNode(typeIRI string) (jsonld.Node, bool) {
	n, ok := v.byType[typeIRI]
	return n, ok
}

// ShapeForType returns the node shape describing a type
func (v *Vocabulary) ShapeForType(typeIRI string) (domain.VocabularyShape, bool) {
	n, ok := v.byType[typeIRI]
	if !ok {
		return domain.VocabularyShape{}, false
	}
	return domain.VocabularyShape{
		ID:          n.ID(),
		TargetClass: typeIRI,
		Label:       v.LabelForType(typeIRI),
		PluralLabel: v.PluralLabelForType(typeIRI),
		Description: n.Label(ShDescription, RDFSComment),
		Properties:  v.PropertyShapesForType(typeIRI),
	}, true
}

// PropertyShapesForType returns the property shapes of a type in the order
// they are declared. Unresolvable references are skipped.
func (v *Vocabulary) PropertyShapesForType(typeIRI string) []domain.PropertyShape {
	n, ok := v.byType[typeIRI]
	if !ok {
		return nil
	}

	var shapes []domain.PropertyShape
	for _, ref := range n.Values(ShProperty) {
		m, ok := ref.(map[string]any)
		if !ok {
			continue
		}
		ps := jsonld.Node(m)
		// references point to nodes elsewhere in the graph; embedded shapes are used directly
		if len(m) == 1 && ps.ID() != "" {
			resolved, found := v.graph.Node(ps.ID())
			if !found {
				continue
			}
			ps = resolved
		}
		if ps.FirstID(ShPath) == "" {
			continue
		}
		shapes = append(shapes, toPropertyShape(ps))
	}
	return shapes
}

// ShapeForProperty returns the named property shape for a predicate.
// Blank node shapes are ignored.
func (v *Vocabulary) ShapeForProperty(predicate string) (domain.PropertyShape, bool) {
	for _, n := range v.graph.Nodes() {
		if jsonld.IsBlank(n.ID()) || n.ID() == "" {
			continue
		}
		if n.FirstID(ShPath) == predicate {
			return toPropertyShape(n), true
		}
	}
	return domain.PropertyShape{}, false
}

// LabelForType returns the shape name of a type, or a label derived from its IRI
func (v *Vocabulary) LabelForType(typeIRI string) string {
	if n, ok := v.byType[typeIRI]; ok {
		if label := n.Label(ShName, RDFSLabel); label != "" {
			return label
		}
	}
	return titleCase(LocalName(typeIRI))
}

// PluralLabelForType returns fs:namePlural, falling back to the label plus "s"
func (v *Vocabulary) PluralLabelForType(typeIRI string) string {
	if n, ok := v.byType[typeIRI]; ok {
		if plural := n.FirstString(PropNamePlural); plural != "" {
			return plural
		}
	}
	label := v.LabelForType(typeIRI)
	if label == "" {
		return ""
	}
	return label + "s"
}

// LabelForPredicate returns the name of the predicate's property shape, or the
// predicate itself when unknown
func (v *Vocabulary) LabelForPredicate(predicate string) string {
	if ps, ok := v.ShapeForProperty(predicate); ok && ps.Name != "" {
		return ps.Name
	}
	return predicate
}

// IsRDFList reports whether a property shape describes an RDF list
func IsRDFList(ps jsonld.Node) bool {
	for _, id := range ps.IDs(ShNode) {
		if id == DashListShape {
			return true
		}
	}
	return false
}

// MaxCount returns the maximum cardinality of a property shape. RDF lists
// never have a maximum.
func MaxCount(ps jsonld.Node) (int, bool) {
	if IsRDFList(ps) {
		return 0, false
	}
	f, ok := ps.FirstNumber(ShMaxCount)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// IsGenericIRIResource reports whether a property accepts any IRI
func IsGenericIRIResource(ps jsonld.Node) bool {
	return ps.FirstID(ShNodeKind) == ShIRI
}

func toPropertyShape(n jsonld.Node) domain.PropertyShape {
	ps := domain.PropertyShape{
		ID:          n.ID(),
		Path:        n.FirstID(ShPath),
		Name:        n.Label(ShName, RDFSLabel),
		Description: n.Label(ShDescription, RDFSComment),
		Datatype:    n.FirstID(ShDatatype),
		Class:       n.FirstID(ShClass),
		MaxCount:    -1,
		MachineOnly: n.FirstBool(PropMachineOnly),
	}
	if minCount, ok := n.FirstNumber(ShMinCount); ok {
		ps.MinCount = int(minCount)
	}
	if maxCount, ok := MaxCount(n); ok {
		ps.MaxCount = maxCount
	}
	if order, ok := n.FirstNumber(ShOrder); ok {
		ps.Order = order
		ps.HasOrder = true
	}
	return ps
}

// LocalName returns the part of an IRI after the last '#', else after the
// last '/', else after the last ':' (URNs)
func LocalName(iri string) string {
	if i := strings.LastIndex(iri, "#"); i >= 0 {
		return iri[i+1:]
	}
	if i := strings.LastIndex(strings.TrimSuffix(iri, "/"), "/"); i >= 0 {
		return strings.TrimSuffix(iri[i+1:], "/")
	}
	if i := strings.LastIndex(iri, ":"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}

// titleCase upper-cases the first letter of each word. Casers keep state,
// so a new one is made per call.
func titleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}

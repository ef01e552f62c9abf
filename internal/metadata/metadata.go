// Package metadata turns linked data of an entity into displayable
// properties and back into update statements.
package metadata

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/Ning0612/mercury/internal/jsonld"
	"github.com/Ning0612/mercury/internal/vocabulary"
)

const rdfType = vocabulary.RDF + "type"

// Value is a single property value: a literal or a reference
type Value struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// String returns the label, literal or reference of a value
func (v Value) String() string {
	switch {
	case v.Label != "":
		return v.Label
	case v.ID != "":
		return v.ID
	case v.Value == nil:
		return ""
	}
	switch x := v.Value.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Property is a predicate with its values as shown to users
type Property struct {
	Key    string  `json:"key" yaml:"key"`
	Label  string  `json:"label" yaml:"label"`
	Values []Value `json:"values" yaml:"values"`
}

// managedTypes are the file tree types whose label and type are maintained by the system
var managedTypes = map[string]bool{
	vocabulary.ClassFile:       true,
	vocabulary.ClassDirectory:  true,
	vocabulary.ClassCollection: true,
}

// ShouldPropertyBeHidden reports whether a predicate is never shown for
// subjects of the given type
func ShouldPropertyBeHidden(predicate, subjectType string) bool {
	switch predicate {
	case jsonld.KeywordType, rdfType, vocabulary.PropFilePath, vocabulary.PropDateDeleted, vocabulary.PropDeletedBy:
		return true
	case vocabulary.RDFSComment:
		return subjectType == vocabulary.ClassCollection
	case vocabulary.RDFSLabel:
		return managedTypes[subjectType]
	}
	return false
}

// Properties extracts the visible properties of subject from an expanded
// graph. Labels come from the vocabulary when available, referenced
// entities are labelled from the graph. Output is sorted by label.
func Properties(nodes []jsonld.Node, subject string, vocab *vocabulary.Vocabulary) []Property {
	graph := jsonld.NewGraph(nodes)
	node, ok := graph.Node(subject)
	if !ok {
		return nil
	}

	subjectType := ""
	if types := node.Types(); len(types) > 0 {
		subjectType = types[0]
	}

	var props []Property
	for key := range node {
		if key == jsonld.KeywordID || ShouldPropertyBeHidden(key, subjectType) {
			continue
		}
		if len(key) > 0 && key[0] == '@' {
			continue
		}
		if vocab != nil {
			if ps, ok := vocab.ShapeForProperty(key); ok && ps.MachineOnly {
				continue
			}
		}

		values := values(graph, node, key)
		if len(values) == 0 {
			continue
		}
		props = append(props, Property{Key: key, Label: predicateLabel(vocab, key), Values: values})
	}

	sort.Slice(props, func(i, j int) bool {
		if props[i].Label != props[j].Label {
			return props[i].Label < props[j].Label
		}
		return props[i].Key < props[j].Key
	})
	return props
}

func predicateLabel(vocab *vocabulary.Vocabulary, predicate string) string {
	if vocab != nil {
		if label := vocab.LabelForPredicate(predicate); label != predicate {
			return label
		}
	}
	return jsonld.LinkLabel(predicate, true)
}

func values(graph *jsonld.Graph, node jsonld.Node, predicate string) []Value {
	var out []Value
	for _, raw := range node.Values(predicate) {
		m, ok := raw.(map[string]any)
		if !ok {
			out = append(out, Value{Value: raw})
			continue
		}
		if id, ok := m[jsonld.KeywordID].(string); ok {
			v := Value{ID: id, Label: jsonld.LinkLabel(id, true)}
			if ref, ok := graph.Node(id); ok {
				v.Label = ref.DisplayLabel(true)
			}
			out = append(out, v)
			continue
		}
		if val, ok := m[jsonld.KeywordValue]; ok {
			out = append(out, Value{Value: val})
		}
	}
	return out
}

// ToJSONLD builds the update document for one predicate of subject.
// It returns nil when there is nothing to write.
func ToJSONLD(subject, predicate string, values []Value) map[string]any {
	if subject == "" || predicate == "" || len(values) == 0 {
		return nil
	}

	items := make([]any, 0, len(values))
	for _, v := range values {
		if v.ID != "" {
			items = append(items, map[string]any{jsonld.KeywordID: v.ID})
			continue
		}
		items = append(items, map[string]any{jsonld.KeywordValue: v.Value})
	}
	return map[string]any{
		jsonld.KeywordID: subject,
		predicate:        items,
	}
}

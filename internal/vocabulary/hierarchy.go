package vocabulary

import (
	"encoding/json"
	"fmt"

	"github.com/Ning0612/mercury/internal/domain"
)

// BuildHierarchy derives the directory hierarchy from the vocabulary.
//
// Every node shape marked fs:partOfHierarchy or fs:hierarchyRoot becomes a
// level; its fs:hierarchyDescendants are the allowed child types. Roots are
// the types marked fs:hierarchyRoot plus any level no other level lists as
// a child. Levels are returned roots first, then breadth first in declared
// child order, so the result is stable for a given graph.
func BuildHierarchy(v *Vocabulary) domain.Hierarchy {
	if v == nil {
		return domain.Hierarchy{}
	}

	levels := make(map[string]*domain.HierarchyLevel)
	var declared []string
	for _, n := range v.order {
		if !n.FirstBool(PropPartOfHierarchy) && !n.FirstBool(PropHierarchyRoot) {
			continue
		}
		types := shapeTypes(n)
		if len(types) == 0 {
			continue
		}
		t := types[0]
		if _, dup := levels[t]; dup {
			continue
		}
		levels[t] = &domain.HierarchyLevel{
			Type:        t,
			Label:       v.LabelForType(t),
			PluralLabel: v.PluralLabelForType(t),
			Children:    v.graph.List(n, PropHierarchyDescendants),
			IsRoot:      n.FirstBool(PropHierarchyRoot),
		}
		declared = append(declared, t)
	}

	return orderLevels(levels, declared)
}

// orderLevels drops children that are not levels themselves, marks parentless
// levels as roots and sorts the levels breadth first from the roots.
func orderLevels(levels map[string]*domain.HierarchyLevel, declared []string) domain.Hierarchy {
	hasParent := make(map[string]bool)
	for _, t := range declared {
		l := levels[t]
		children := make([]string, 0, len(l.Children))
		seen := make(map[string]bool)
		for _, c := range l.Children {
			if _, ok := levels[c]; !ok || seen[c] {
				continue
			}
			seen[c] = true
			children = append(children, c)
			if c != t {
				hasParent[c] = true
			}
		}
		l.Children = children
	}

	var queue []string
	for _, t := range declared {
		if !hasParent[t] {
			levels[t].IsRoot = true
		}
		if levels[t].IsRoot {
			queue = append(queue, t)
		}
	}

	result := make(domain.Hierarchy, 0, len(declared))
	visited := make(map[string]bool)
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if visited[t] {
			continue
		}
		visited[t] = true
		result = append(result, *levels[t])
		queue = append(queue, levels[t].Children...)
	}

	// levels only reachable through a cycle
	for _, t := range declared {
		if !visited[t] {
			result = append(result, *levels[t])
		}
	}
	return result
}

// hierarchyNode is an element of the /vocabulary/hierarchy/ response
type hierarchyNode struct {
	TypeName   string   `json:"TypeName"`
	IsRoot     bool     `json:"IsRoot"`
	Root       bool     `json:"root"`
	ChildNodes []string `json:"ChildNodes"`
}

// ParseHierarchyNodes parses the hierarchy endpoint's payload. Labels are
// taken from v when it knows the type.
func ParseHierarchyNodes(data []byte, v *Vocabulary) (domain.Hierarchy, error) {
	var nodes []hierarchyNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHierarchyUnavailable, err)
	}
	if v == nil {
		v = Empty()
	}

	levels := make(map[string]*domain.HierarchyLevel, len(nodes))
	var declared []string
	for _, n := range nodes {
		if n.TypeName == "" {
			continue
		}
		if _, dup := levels[n.TypeName]; dup {
			continue
		}
		levels[n.TypeName] = &domain.HierarchyLevel{
			Type:        n.TypeName,
			Label:       v.LabelForType(n.TypeName),
			PluralLabel: v.PluralLabelForType(n.TypeName),
			Children:    append([]string(nil), n.ChildNodes...),
			IsRoot:      n.IsRoot || n.Root,
		}
		declared = append(declared, n.TypeName)
	}

	return orderLevels(levels, declared), nil
}

package domain

// PropertyShape is a SHACL property shape as used by mercury
type PropertyShape struct {
	// ID is the IRI (or blank node id) of the shape itself
	ID string `json:"id"`

	// Path is the predicate IRI the shape constrains
	Path string `json:"path"`

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Datatype is set for literal-valued properties
	Datatype string `json:"datatype,omitempty"`

	// Class is set for entity-valued properties
	Class string `json:"class,omitempty"`

	MinCount int `json:"minCount"`

	// MaxCount is -1 when unbounded
	MaxCount int `json:"maxCount"`

	// Order is the sh:order value; HasOrder is false when absent or non-numeric
	Order    float64 `json:"order,omitempty"`
	HasOrder bool    `json:"hasOrder,omitempty"`

	// MachineOnly properties are maintained by the system and never edited by users
	MachineOnly bool `json:"machineOnly,omitempty"`
}

// IsLiteral returns true for datatype-valued properties
func (p PropertyShape) IsLiteral() bool {
	return p.Datatype != ""
}

// VocabularyShape is a SHACL node shape describing an entity type
type VocabularyShape struct {
	ID          string          `json:"id"`
	TargetClass string          `json:"targetClass"`
	Label       string          `json:"label"`
	PluralLabel string          `json:"pluralLabel,omitempty"`
	Description string          `json:"description,omitempty"`
	Properties  []PropertyShape `json:"properties,omitempty"`
}

// HierarchyLevel is an allowed directory type in the storage tree
type HierarchyLevel struct {
	// Type is the IRI of the linked entity type
	Type        string `json:"type" yaml:"type"`
	Label       string `json:"label" yaml:"label"`
	PluralLabel string `json:"pluralLabel" yaml:"pluralLabel"`

	// Children are the types that may be created directly below this level
	Children []string `json:"children" yaml:"children"`

	IsRoot bool `json:"isRoot" yaml:"isRoot"`
}

// Hierarchy is the ordered list of hierarchy levels, roots first
type Hierarchy []HierarchyLevel

// Level returns the level for a type IRI
func (h Hierarchy) Level(typeIRI string) (HierarchyLevel, bool) {
	for _, l := range h {
		if l.Type == typeIRI {
			return l, true
		}
	}
	return HierarchyLevel{}, false
}

// Roots returns the types allowed at the top of the tree
func (h Hierarchy) Roots() []string {
	var roots []string
	for _, l := range h {
		if l.IsRoot {
			roots = append(roots, l.Type)
		}
	}
	return roots
}

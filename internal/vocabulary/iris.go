package vocabulary

// Namespace is the base IRI prefix for Fairspace ontology terms.
const Namespace = "https://fairspace.nl/ontology#"

// Standard namespaces used by the vocabulary graph.
const (
	SHACL = "http://www.w3.org/ns/shacl#"
	RDF   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS  = "http://www.w3.org/2000/01/rdf-schema#"
	XSD   = "http://www.w3.org/2001/XMLSchema#"
	DASH  = "http://datashapes.org/dash#"
)

// Class IRIs of the file tree.
const (
	ClassFile       = Namespace + "File"
	ClassDirectory  = Namespace + "Directory"
	ClassCollection = Namespace + "Collection"
	ClassUser       = Namespace + "User"
)

// Fairspace vocabulary extension predicates.
const (
	// PropMachineOnly marks properties maintained by the system only.
	PropMachineOnly = Namespace + "machineOnly"

	// PropAdminEditOnly marks properties only admins may change.
	PropAdminEditOnly = Namespace + "adminEditOnly"

	// PropHierarchyRoot marks a type that may appear at the top of the tree.
	PropHierarchyRoot = Namespace + "hierarchyRoot"

	// PropPartOfHierarchy marks a type that may be used as a directory level.
	PropPartOfHierarchy = Namespace + "partOfHierarchy"

	// PropHierarchyDescendants lists the types allowed directly below a level.
	PropHierarchyDescendants = Namespace + "hierarchyDescendants"

	// PropNamePlural is the plural label of a type.
	PropNamePlural = Namespace + "namePlural"

	PropLinkedEntityType = Namespace + "linkedEntityType"
	PropLinkedEntity     = Namespace + "linkedEntity"
	PropImportant        = Namespace + "importantProperty"
	PropDateCreated      = Namespace + "dateCreated"
	PropDateModified     = Namespace + "dateModified"
	PropDateDeleted      = Namespace + "dateDeleted"
	PropDeletedBy        = Namespace + "deletedBy"
	PropFilePath         = Namespace + "filePath"
)

// Datatypes with special treatment in templates and forms.
const (
	DatatypeString   = XSD + "string"
	DatatypeMarkdown = Namespace + "markdown"
)

// SHACL terms.
const (
	ShNodeShape   = SHACL + "NodeShape"
	ShTargetClass = SHACL + "targetClass"
	ShProperty    = SHACL + "property"
	ShPath        = SHACL + "path"
	ShName        = SHACL + "name"
	ShDescription = SHACL + "description"
	ShDatatype    = SHACL + "datatype"
	ShClass       = SHACL + "class"
	ShMinCount    = SHACL + "minCount"
	ShMaxCount    = SHACL + "maxCount"
	ShOrder       = SHACL + "order"
	ShNode        = SHACL + "node"
	ShNodeKind    = SHACL + "nodeKind"
	ShIRI         = SHACL + "IRI"

	DashListShape = DASH + "ListShape"

	RDFSLabel   = RDFS + "label"
	RDFSComment = RDFS + "comment"
)

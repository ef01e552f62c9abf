package testutil

import (
	"testing"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/jsonld"
)

// Example type IRIs used by VocabularyJSON
const (
	ExNS         = "https://example.org/ontology#"
	ExDepartment = ExNS + "Department"
	ExStudy      = ExNS + "Study"
	ExSample     = ExNS + "Sample"
	ExProject    = ExNS + "Project"
)

// VocabularyJSON is a small vocabulary in compact JSON-LD. It has the three
// file tree types, a machine-only property, a property shared by all of
// them, ordered and unordered properties, an entity-valued property, a
// markdown property, an RDF list property, a blank node shape and a three
// level hierarchy Department > Study > Sample.
const VocabularyJSON = `{
  "@context": {
    "sh": "http://www.w3.org/ns/shacl#",
    "fs": "https://fairspace.nl/ontology#",
    "xsd": "http://www.w3.org/2001/XMLSchema#",
    "dash": "http://datashapes.org/dash#",
    "rdfs": "http://www.w3.org/2000/01/rdf-schema#",
    "ex": "https://example.org/ontology#"
  },
  "@graph": [
    {
      "@id": "fs:File",
      "@type": ["rdfs:Class", "sh:NodeShape"],
      "sh:name": "File",
      "sh:property": [
        {"@id": "fs:filePathShape"},
        {"@id": "ex:descriptionShape"},
        {"@id": "ex:keywordsShape"},
        {"@id": "ex:sampleShape"},
        {"@id": "ex:sizeShape"}
      ]
    },
    {
      "@id": "fs:Directory",
      "@type": ["rdfs:Class", "sh:NodeShape"],
      "sh:name": "Directory",
      "sh:property": [
        {"@id": "ex:descriptionShape"},
        {"@id": "ex:projectShape"}
      ]
    },
    {
      "@id": "fs:Collection",
      "@type": ["rdfs:Class", "sh:NodeShape"],
      "sh:name": "Collection",
      "sh:property": [
        {"@id": "ex:descriptionShape"},
        {"@id": "ex:notesShape"},
        {"@id": "ex:titleShape"}
      ]
    },
    {
      "@id": "fs:filePathShape",
      "sh:path": {"@id": "fs:filePath"},
      "sh:name": "File path",
      "sh:datatype": {"@id": "xsd:string"},
      "sh:maxCount": 1,
      "fs:machineOnly": true
    },
    {
      "@id": "ex:descriptionShape",
      "sh:path": {"@id": "ex:description"},
      "sh:name": "Description",
      "sh:description": "Free text description",
      "sh:datatype": {"@id": "xsd:string"},
      "sh:maxCount": 1,
      "sh:order": 2
    },
    {
      "@id": "ex:keywordsShape",
      "sh:path": {"@id": "ex:keywords"},
      "sh:name": "Keywords",
      "sh:datatype": {"@id": "xsd:string"},
      "sh:node": {"@id": "dash:ListShape"},
      "sh:maxCount": 1
    },
    {
      "@id": "ex:sampleShape",
      "sh:path": {"@id": "ex:sample"},
      "sh:name": "Sample",
      "sh:description": "Sample the file was derived from",
      "sh:class": {"@id": "ex:Sample"},
      "sh:order": 1
    },
    {
      "@id": "ex:sizeShape",
      "sh:path": {"@id": "ex:size"},
      "sh:name": "Size",
      "sh:datatype": {"@id": "xsd:integer"},
      "sh:minCount": 1,
      "sh:maxCount": 1,
      "sh:order": 5
    },
    {
      "@id": "ex:projectShape",
      "sh:path": {"@id": "ex:project"},
      "sh:name": "Project",
      "sh:class": {"@id": "ex:Project"},
      "sh:minCount": 1,
      "sh:maxCount": 1
    },
    {
      "@id": "ex:notesShape",
      "sh:path": {"@id": "ex:notes"},
      "sh:name": "Notes",
      "sh:datatype": {"@id": "fs:markdown"},
      "sh:order": "first"
    },
    {
      "@id": "ex:titleShape",
      "sh:path": {"@id": "ex:title"},
      "sh:name": "Title",
      "sh:datatype": {"@id": "xsd:string"},
      "sh:nodeKind": {"@id": "sh:IRI"}
    },
    {
      "@id": "_:onlyBlank",
      "sh:path": {"@id": "ex:onlyBlank"},
      "sh:name": "Only blank"
    },
    {
      "@id": "ex:Department",
      "@type": ["rdfs:Class", "sh:NodeShape"],
      "sh:name": "Department",
      "fs:namePlural": "Departments",
      "fs:hierarchyRoot": true,
      "fs:partOfHierarchy": true,
      "fs:hierarchyDescendants": {"@list": [{"@id": "ex:Study"}]}
    },
    {
      "@id": "ex:Study",
      "@type": ["rdfs:Class", "sh:NodeShape"],
      "sh:name": "Study",
      "fs:partOfHierarchy": true,
      "fs:hierarchyDescendants": {"@list": [{"@id": "ex:Sample"}]}
    },
    {
      "@id": "ex:Sample",
      "@type": ["rdfs:Class", "sh:NodeShape"],
      "sh:name": "Sample",
      "fs:partOfHierarchy": true,
      "fs:hierarchyDescendants": {"@list": []}
    },
    {
      "@id": "ex:Project",
      "@type": ["rdfs:Class", "sh:NodeShape"],
      "sh:name": "Project"
    }
  ]
}`

// VocabularyNodes returns VocabularyJSON in expanded form
func VocabularyNodes(t testing.TB) []jsonld.Node {
	t.Helper()

	nodes, err := jsonld.Parse([]byte(VocabularyJSON))
	if err != nil {
		t.Fatalf("failed to expand test vocabulary: %v", err)
	}
	return nodes
}

// Hierarchy returns the hierarchy described by VocabularyJSON without
// going through the vocabulary resolver
func Hierarchy() domain.Hierarchy {
	return domain.Hierarchy{
		{Type: ExDepartment, Label: "Department", PluralLabel: "Departments", Children: []string{ExStudy}, IsRoot: true},
		{Type: ExStudy, Label: "Study", PluralLabel: "Studys", Children: []string{ExSample}},
		{Type: ExSample, Label: "Sample", PluralLabel: "Samples", Children: []string{}},
	}
}

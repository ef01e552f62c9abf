package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/mercury/internal/jsonld"
	"github.com/Ning0612/mercury/internal/testutil"
)

func testVocabulary(t *testing.T) *Vocabulary {
	t.Helper()
	return New(testutil.VocabularyNodes(t))
}

func TestVocabulary_LabelForPredicate(t *testing.T) {
	v := testVocabulary(t)

	assert.Equal(t, "Description", v.LabelForPredicate(testutil.ExNS+"description"))

	unknown := "https://example.org/ontology#Unknown"
	assert.Equal(t, unknown, v.LabelForPredicate(unknown))
}

func TestVocabulary_ShapeForProperty(t *testing.T) {
	v := testVocabulary(t)

	ps, ok := v.ShapeForProperty(testutil.ExNS + "sample")
	require.True(t, ok)
	assert.Equal(t, testutil.ExNS+"sampleShape", ps.ID)
	assert.Equal(t, testutil.ExSample, ps.Class)

	_, ok = v.ShapeForProperty(testutil.ExNS + "onlyBlank")
	assert.False(t, ok, "blank node shapes are ignored")
}

func TestVocabulary_Contains(t *testing.T) {
	v := testVocabulary(t)

	assert.True(t, v.Contains(ClassFile))
	assert.False(t, v.Contains("http://not-present"))
	assert.False(t, v.Contains(""))
	assert.False(t, v.Contains(testutil.ExNS+"description"), "only referenced as a path")
	assert.False(t, Empty().Contains(ClassFile))
}

func TestVocabulary_PropertyShapesForType(t *testing.T) {
	v := testVocabulary(t)

	shapes := v.PropertyShapesForType(ClassFile)
	require.Len(t, shapes, 5)

	paths := make([]string, len(shapes))
	for i, ps := range shapes {
		paths[i] = ps.Path
	}
	assert.Equal(t, []string{
		PropFilePath,
		testutil.ExNS + "description",
		testutil.ExNS + "keywords",
		testutil.ExNS + "sample",
		testutil.ExNS + "size",
	}, paths)

	assert.True(t, shapes[0].MachineOnly)
	assert.Equal(t, 1, shapes[0].MaxCount)
	assert.Equal(t, -1, shapes[2].MaxCount, "rdf lists have no maximum")
	assert.True(t, shapes[1].HasOrder)
	assert.Equal(t, 2.0, shapes[1].Order)
	assert.Equal(t, 1, shapes[4].MinCount)

	assert.Nil(t, v.PropertyShapesForType("https://example.org/ontology#Missing"))
}

func TestVocabulary_NonNumericOrder(t *testing.T) {
	v := testVocabulary(t)

	ps, ok := v.ShapeForProperty(testutil.ExNS + "notes")
	require.True(t, ok)
	assert.False(t, ps.HasOrder)
	assert.Equal(t, DatatypeMarkdown, ps.Datatype)
}

func TestPropertyShape_NonFiniteOrder(t *testing.T) {
	for _, order := range []string{"NaN", "Infinity", "-Inf"} {
		ps := toPropertyShape(jsonld.Node{
			ShPath:  []any{map[string]any{jsonld.KeywordID: "https://example.org/p"}},
			ShOrder: []any{map[string]any{jsonld.KeywordValue: order}},
		})
		assert.False(t, ps.HasOrder, order)
	}
}

func TestVocabulary_Labels(t *testing.T) {
	v := testVocabulary(t)

	assert.Equal(t, "Department", v.LabelForType(testutil.ExDepartment))
	assert.Equal(t, "Departments", v.PluralLabelForType(testutil.ExDepartment))
	assert.Equal(t, "Studys", v.PluralLabelForType(testutil.ExStudy))
	assert.Equal(t, "ResearchGroup", v.LabelForType(testutil.ExNS+"researchGroup"))
	assert.Equal(t, "Things", v.PluralLabelForType("https://example.org/things/thing"))
}

func TestVocabulary_ShapeForType(t *testing.T) {
	v := testVocabulary(t)

	shape, ok := v.ShapeForType(ClassDirectory)
	require.True(t, ok)
	assert.Equal(t, "Directory", shape.Label)
	assert.Len(t, shape.Properties, 2)

	_, ok = v.ShapeForType(testutil.ExNS + "Missing")
	assert.False(t, ok)
}

func TestMaxCount(t *testing.T) {
	listShape := jsonld.Node{
		ShNode:     []any{map[string]any{jsonld.KeywordID: DashListShape}},
		ShMaxCount: []any{map[string]any{jsonld.KeywordValue: 1.0}},
	}
	plainShape := jsonld.Node{
		ShDatatype: []any{map[string]any{jsonld.KeywordID: DatatypeString}},
		ShMaxCount: []any{map[string]any{jsonld.KeywordValue: 10.0}},
	}

	_, ok := MaxCount(listShape)
	assert.False(t, ok)
	assert.True(t, IsRDFList(listShape))

	n, ok := MaxCount(plainShape)
	assert.True(t, ok)
	assert.Equal(t, 10, n)
	assert.False(t, IsRDFList(plainShape))
	assert.False(t, IsRDFList(jsonld.Node{}))
}

func TestIsGenericIRIResource(t *testing.T) {
	generic := jsonld.Node{ShNodeKind: []any{map[string]any{jsonld.KeywordID: ShIRI}}}
	other := jsonld.Node{ShNodeKind: []any{map[string]any{jsonld.KeywordID: DatatypeString}}}

	assert.True(t, IsGenericIRIResource(generic))
	assert.False(t, IsGenericIRIResource(other))
	assert.False(t, IsGenericIRIResource(jsonld.Node{}))
}

func TestLocalName(t *testing.T) {
	tests := map[string]string{
		"http://www.w3.org/2001/XMLSchema#string": "string",
		"https://example.org/things/thing":        "thing",
		"https://example.org/things/":             "things",
		"urn:Orphan":                              "Orphan",
		"plain":                                   "plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, LocalName(in), in)
	}
}

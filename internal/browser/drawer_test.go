package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/jsonld"
	"github.com/Ning0612/mercury/internal/testutil"
)

func TestDrawer_Cards(t *testing.T) {
	b := newTestBrowser(t, sampleTree())
	ctx := context.Background()

	view, err := b.Drawer(ctx, "/dept/study", nil, false)
	require.NoError(t, err)
	require.Len(t, view.Cards, 2)
	assert.Empty(t, view.Message)

	assert.Equal(t, "Metadata for dept", view.Cards[0].Title)
	assert.False(t, view.Cards[0].Expanded)
	assert.Empty(t, view.Cards[0].MetadataUploadPath)

	last := view.Cards[1]
	assert.Equal(t, "Metadata for study", last.Title)
	assert.True(t, last.Expanded)
	assert.True(t, last.IsDirectory)
	assert.Equal(t, "/dept/study", last.MetadataUploadPath)
	assert.Equal(t, "https://example.org/entity/dept/study", last.LinkedEntityIRI)
}

func TestDrawer_SelectedPath(t *testing.T) {
	b := newTestBrowser(t, sampleTree())
	ctx := context.Background()

	view, err := b.Drawer(ctx, "/dept/study", []string{"/dept/study/b.txt"}, false)
	require.NoError(t, err)
	require.Len(t, view.Cards, 3)

	last := view.Cards[2]
	assert.Equal(t, "Metadata for b.txt", last.Title)
	assert.True(t, last.Expanded)
	assert.False(t, last.IsDirectory)
	assert.Empty(t, last.MetadataUploadPath)
	assert.False(t, view.Cards[1].Expanded)

	// several selected paths only describe the opened directory
	view, err = b.Drawer(ctx, "/dept/study", []string{"/dept/study/a.csv", "/dept/study/b.txt"}, false)
	require.NoError(t, err)
	assert.Len(t, view.Cards, 2)

	// selecting the opened directory itself adds nothing
	view, err = b.Drawer(ctx, "/dept/study", []string{"/dept/study"}, false)
	require.NoError(t, err)
	assert.Len(t, view.Cards, 2)
}

func TestDrawer_Root(t *testing.T) {
	view, err := newTestBrowser(t, sampleTree()).Drawer(context.Background(), "/", nil, false)
	require.NoError(t, err)
	assert.Empty(t, view.Cards)
	assert.Equal(t, MessageSelectPath, view.Message)

	view, err = newTestBrowser(t, newTreeAPI()).Drawer(context.Background(), "/", nil, false)
	require.NoError(t, err)
	assert.Empty(t, view.Cards)
	assert.Empty(t, view.Message, "nothing to select in an empty storage")

	view, err = newTestBrowser(t, sampleTree()).Drawer(context.Background(), "/", []string{"/dept"}, false)
	require.NoError(t, err)
	require.Len(t, view.Cards, 1)
	assert.Equal(t, "/dept", view.Cards[0].MetadataUploadPath)
}

func TestDrawer_StatErrors(t *testing.T) {
	api := sampleTree()
	api.statErr["/dept"] = errors.New("connection reset")
	b := newTestBrowser(t, api)

	view, err := b.Drawer(context.Background(), "/dept/study", []string{"/dept/study/gone.txt"}, false)
	require.NoError(t, err)
	require.Len(t, view.Cards, 3)

	assert.Equal(t, MessageSubjectFailed, view.Cards[0].Message)
	assert.Equal(t, "Metadata", view.Cards[0].Title)
	assert.Error(t, view.Cards[0].Err)

	assert.Empty(t, view.Cards[1].Message)
	assert.Equal(t, MessageNoMetadata, view.Cards[2].Message)
}

func TestDrawer_DeletedEntries(t *testing.T) {
	b := newTestBrowser(t, sampleTree())
	ctx := context.Background()

	view, err := b.Drawer(ctx, "/dept/study", []string{"/dept/study/old.txt"}, false)
	require.NoError(t, err)
	assert.Equal(t, MessageNoMetadata, view.Cards[2].Message)

	b.Refresh()
	view, err = b.Drawer(ctx, "/dept/study", []string{"/dept/study/old.txt"}, true)
	require.NoError(t, err)
	assert.Equal(t, "Metadata for old.txt", view.Cards[2].Title)
}

func TestDrawer_EditRights(t *testing.T) {
	member := userSource{user: &domain.User{IRI: "https://example.org/users/1"}}
	admin := userSource{user: &domain.User{IRI: "https://example.org/users/2", IsAdmin: true}}

	tests := []struct {
		name     string
		users    userSource
		opened   string
		wantPath string
	}{
		{"member on root level", member, "/dept", ""},
		{"member on nested level", member, "/dept/study", "/dept/study"},
		{"admin on root level", admin, "/dept", "/dept"},
		{"unknown user", userSource{err: domain.ErrPermissionDenied}, "/dept/study", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBrowser(t, sampleTree(), WithUsers(tt.users))
			view, err := b.Drawer(context.Background(), tt.opened, nil, false)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, view.Cards[len(view.Cards)-1].MetadataUploadPath)
		})
	}
}

const studyJSON = `{
  "@context": {
    "ex": "https://example.org/ontology#",
    "rdfs": "http://www.w3.org/2000/01/rdf-schema#"
  },
  "@id": "https://example.org/entity/dept/study",
  "@type": "ex:Study",
  "ex:description": "Blood samples",
  "rdfs:label": "study"
}`

func TestDrawer_Metadata(t *testing.T) {
	nodes, err := jsonld.Parse([]byte(studyJSON))
	require.NoError(t, err)
	source := metadataSource{"https://example.org/entity/dept/study": nodes}
	b := newTestBrowser(t, sampleTree(), WithMetadata(source))

	view, err := b.Drawer(context.Background(), "/dept/study", nil, false)
	require.NoError(t, err)

	last := view.Cards[1]
	require.NoError(t, last.Err)
	var desc string
	for _, p := range last.Properties {
		if p.Key == testutil.ExNS+"description" {
			desc = p.Values[0].String()
			assert.Equal(t, "Description", p.Label)
		}
	}
	assert.Equal(t, "Blood samples", desc)

	// the department has no linked data in the source
	assert.ErrorIs(t, view.Cards[0].Err, domain.ErrNotFound)
}

func TestBrowser_MetadataTemplate(t *testing.T) {
	out, err := newTestBrowser(t, sampleTree()).MetadataTemplate(context.Background(), testutil.ExStudy)
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = New(sampleTree()).MetadataTemplate(context.Background())
	assert.ErrorIs(t, err, domain.ErrVocabularyUnavailable)
}

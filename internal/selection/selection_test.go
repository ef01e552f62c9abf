package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection_SelectDeselect(t *testing.T) {
	s := New()
	s.Select("/a", "/b", "/a")
	assert.Equal(t, []string{"/a", "/b"}, s.Selected())
	assert.True(t, s.IsSelected("/b"))

	s.Deselect("/a", "/missing")
	assert.Equal(t, []string{"/b"}, s.Selected())
	assert.False(t, s.IsSelected("/a"))
}

func TestSelection_Toggle(t *testing.T) {
	s := New()
	s.Toggle("/a")
	s.Toggle("/b")
	s.Toggle("/a")
	assert.Equal(t, []string{"/b"}, s.Selected())
}

func TestSelection_SelectAll(t *testing.T) {
	s := New()
	s.Select("/old")
	s.SelectAll([]string{"/a", "/b", "/b"})
	assert.Equal(t, []string{"/a", "/b"}, s.Selected())
	assert.Equal(t, 2, s.Len())

	s.DeselectAll()
	assert.Empty(t, s.Selected())
}

func TestSelection_Highlight(t *testing.T) {
	s := New()
	s.Select("/a", "/b")

	s.Highlight("/b")
	assert.Equal(t, []string{"/b"}, s.Selected())

	s.Highlight("/b")
	assert.Empty(t, s.Selected())

	s.Highlight("/c")
	assert.Equal(t, []string{"/c"}, s.Selected())
}

func TestSelection_MetadataTarget(t *testing.T) {
	s := New()
	assert.Equal(t, "/dept", s.MetadataTarget("/dept"), "no selection falls back to the opened directory")

	s.Select("/dept/a.txt")
	assert.Equal(t, "/dept/a.txt", s.MetadataTarget("/dept"))

	s.Select("/dept/b.txt")
	assert.Equal(t, "/dept", s.MetadataTarget("/dept"), "multiple selection falls back to the opened directory")
}

func TestSelection_SelectedIsCopy(t *testing.T) {
	s := New()
	s.Select("/a")
	got := s.Selected()
	got[0] = "/changed"
	assert.True(t, s.IsSelected("/a"))
}

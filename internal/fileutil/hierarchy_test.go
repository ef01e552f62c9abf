package fileutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/testutil"
)

func TestIsDirectory(t *testing.T) {
	h := testutil.Hierarchy()

	linked := testutil.File("/dept")
	linked.LinkedEntityType = testutil.ExDepartment

	plainDir := testutil.Dir("/dept/raw", "")
	file := testutil.File("/dept/a.txt")

	unknownType := testutil.File("/dept/p")
	unknownType.LinkedEntityType = testutil.ExProject

	assert.True(t, IsDirectory(&linked, h), "hierarchy level decides even without the collection flag")
	assert.True(t, IsDirectory(&plainDir, h))
	assert.False(t, IsDirectory(&file, h))
	assert.False(t, IsDirectory(&unknownType, h))
	assert.False(t, IsDirectory(nil, h))
	assert.True(t, IsDirectory(&plainDir, nil))
}

func TestAllowedDirectoryTypes(t *testing.T) {
	h := testutil.Hierarchy()

	assert.Equal(t, []string{testutil.ExDepartment}, AllowedDirectoryTypes(h, ""))
	assert.Equal(t, []string{testutil.ExStudy}, AllowedDirectoryTypes(h, testutil.ExDepartment))
	assert.Empty(t, AllowedDirectoryTypes(h, testutil.ExSample))
	assert.Empty(t, AllowedDirectoryTypes(h, testutil.ExProject))
	assert.Empty(t, AllowedDirectoryTypes(nil, ""))
}

func TestAllowedDirectoryTypes_ReturnsCopy(t *testing.T) {
	h := testutil.Hierarchy()

	types := AllowedDirectoryTypes(h, testutil.ExDepartment)
	types[0] = "changed"

	level, _ := h.Level(testutil.ExDepartment)
	assert.Equal(t, testutil.ExStudy, level.Children[0])
}

func TestHierarchyLevelByType(t *testing.T) {
	h := testutil.Hierarchy()

	level, ok := HierarchyLevelByType(h, testutil.ExStudy)
	assert.True(t, ok)
	assert.Equal(t, "Study", level.Label)

	_, ok = HierarchyLevelByType(h, "")
	assert.False(t, ok)
}

func TestCanEditHierarchyLevel(t *testing.T) {
	h := testutil.Hierarchy()
	admin := &domain.User{IRI: "u1", IsAdmin: true}
	superadmin := &domain.User{IRI: "u2", IsSuperadmin: true}
	user := &domain.User{IRI: "u3"}

	tests := []struct {
		name string
		user *domain.User
		typ  string
		want bool
	}{
		{"admin root", admin, testutil.ExDepartment, true},
		{"superadmin root", superadmin, testutil.ExDepartment, true},
		{"user root", user, testutil.ExDepartment, false},
		{"user nested", user, testutil.ExStudy, true},
		{"user leaf", user, testutil.ExSample, true},
		{"user unknown", user, testutil.ExProject, false},
		{"admin unknown", admin, testutil.ExProject, true},
		{"anonymous", nil, testutil.ExStudy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanEditHierarchyLevel(tt.user, h, tt.typ))
		})
	}
}

func TestValidateTypeForParent(t *testing.T) {
	h := testutil.Hierarchy()

	assert.NoError(t, ValidateTypeForParent(h, testutil.ExDepartment, ""))
	assert.NoError(t, ValidateTypeForParent(h, testutil.ExStudy, testutil.ExDepartment))
	assert.NoError(t, ValidateTypeForParent(h, testutil.ExSample, testutil.ExStudy))

	assert.ErrorIs(t, ValidateTypeForParent(h, testutil.ExStudy, ""), domain.ErrInvalidType)
	assert.ErrorIs(t, ValidateTypeForParent(h, testutil.ExSample, testutil.ExDepartment), domain.ErrInvalidType)
	assert.ErrorIs(t, ValidateTypeForParent(h, testutil.ExProject, ""), domain.ErrInvalidType)
	assert.ErrorIs(t, ValidateTypeForParent(nil, testutil.ExDepartment, ""), domain.ErrHierarchyUnavailable)
}

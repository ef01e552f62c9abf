// Package users holds the current user session and permission helpers.
package users

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Ning0612/mercury/internal/domain"
)

// AccessLevel is the access a user has to a collection
type AccessLevel string

const (
	AccessNone   AccessLevel = "None"
	AccessList   AccessLevel = "List"
	AccessRead   AccessLevel = "Read"
	AccessWrite  AccessLevel = "Write"
	AccessManage AccessLevel = "Manage"
)

var accessOrder = map[AccessLevel]int{
	AccessNone:   0,
	AccessList:   1,
	AccessRead:   2,
	AccessWrite:  3,
	AccessManage: 4,
}

// ParseAccessLevel parses an access level case-insensitively
func ParseAccessLevel(s string) (AccessLevel, error) {
	for level := range accessOrder {
		if strings.EqualFold(string(level), s) {
			return level, nil
		}
	}
	return AccessNone, fmt.Errorf("%w: unknown access level %q", domain.ErrBadRequest, s)
}

// AtLeast reports whether l grants at least other
func (l AccessLevel) AtLeast(other AccessLevel) bool {
	return accessOrder[l] >= accessOrder[other]
}

// IsAdmin reports whether the user is an administrator
func IsAdmin(u *domain.User) bool {
	return u.Admin()
}

// CanAddSharedMetadata reports whether the user may add shared metadata
func CanAddSharedMetadata(u *domain.User) bool {
	return u != nil && (u.CanAddSharedMetadata || u.Admin())
}

// CanAlterPermission reports whether current may change the permission of
// user on a resource. It requires manage access, and a user's own
// permission may only be changed when that user is an admin.
func CanAlterPermission(canManage bool, user, current *domain.User) bool {
	if !canManage || user == nil || current == nil {
		return false
	}
	return current.IRI != user.IRI || IsAdmin(user)
}

// SortByName orders users by display name using English collation
func SortByName(users []domain.User) {
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(users, func(i, j int) bool {
		return c.CompareString(users[i].DisplayName(), users[j].DisplayName()) < 0
	})
}

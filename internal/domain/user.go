package domain

import "strings"

// User is a platform user as returned by the users API
type User struct {
	IRI                  string   `json:"iri" yaml:"iri"`
	ID                   string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name                 string   `json:"name" yaml:"name"`
	Email                string   `json:"email,omitempty" yaml:"email,omitempty"`
	Username             string   `json:"username,omitempty" yaml:"username,omitempty"`
	IsAdmin              bool     `json:"isAdmin" yaml:"isAdmin"`
	IsSuperadmin         bool     `json:"isSuperadmin,omitempty" yaml:"isSuperadmin,omitempty"`
	CanViewPublicData    bool     `json:"canViewPublicData,omitempty" yaml:"canViewPublicData,omitempty"`
	CanViewPublicMeta    bool     `json:"canViewPublicMetadata,omitempty" yaml:"canViewPublicMetadata,omitempty"`
	CanAddSharedMetadata bool     `json:"canAddSharedMetadata,omitempty" yaml:"canAddSharedMetadata,omitempty"`
	Roles                []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// DisplayName returns the user's name or an empty string
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	return u.Name
}

// Admin reports whether the user has admin rights; nil users never do
func (u *User) Admin() bool {
	return u != nil && (u.IsAdmin || u.IsSuperadmin)
}

// HasRole checks role membership case-insensitively
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Role names accepted by the users API
type Role string

const (
	RoleAdmin              Role = "isAdmin"
	RoleViewPublicData     Role = "canViewPublicData"
	RoleViewPublicMetadata Role = "canViewPublicMetadata"
	RoleAddSharedMetadata  Role = "canAddSharedMetadata"
	RoleQueryMetadata      Role = "canQueryMetadata"
)

// IsValid checks if the role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleViewPublicData, RoleViewPublicMetadata, RoleAddSharedMetadata, RoleQueryMetadata:
		return true
	}
	return false
}

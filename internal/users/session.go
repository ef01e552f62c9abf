package users

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/logger"
)

// API is the users endpoint of the platform
type API interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
	Users(ctx context.Context) ([]domain.User, error)
	SetRole(ctx context.Context, userID string, role domain.Role, enabled bool) error
}

// Session caches the logged in user. Concurrent first callers share one
// request; failures are not cached.
type Session struct {
	api   API
	group singleflight.Group

	mu      sync.RWMutex
	current *domain.User
}

// NewSession creates a session over the users API
func NewSession(api API) *Session {
	return &Session{api: api}
}

// CurrentUser returns the logged in user
func (s *Session) CurrentUser(ctx context.Context) (*domain.User, error) {
	s.mu.RLock()
	u := s.current
	s.mu.RUnlock()
	if u != nil {
		return u, nil
	}

	v, err, _ := s.group.Do("current", func() (any, error) {
		u, err := s.api.CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.current = u
		s.mu.Unlock()
		logger.Get().Debug("current user loaded", "iri", u.IRI, "admin", u.Admin())
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.User), nil
}

// Reload forgets the cached user
func (s *Session) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Users lists all users sorted by name
func (s *Session) Users(ctx context.Context) ([]domain.User, error) {
	list, err := s.api.Users(ctx)
	if err != nil {
		return nil, err
	}
	SortByName(list)
	return list, nil
}

// SetRole grants or revokes a role. Only admins may change roles, and an
// admin's own admin role cannot be revoked.
func (s *Session) SetRole(ctx context.Context, target *domain.User, role domain.Role, enabled bool) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: unknown role %q", domain.ErrBadRequest, role)
	}
	current, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if !CanAlterPermission(IsAdmin(current), target, current) {
		return fmt.Errorf("%w: cannot change roles of %s", domain.ErrPermissionDenied, target.DisplayName())
	}
	if target.IRI == current.IRI && role == domain.RoleAdmin && !enabled {
		return fmt.Errorf("%w: cannot revoke own admin role", domain.ErrPermissionDenied)
	}

	if err := s.api.SetRole(ctx, target.ID, role, enabled); err != nil {
		return err
	}
	logger.Get().Info("role changed", "user", target.ID, "role", role, "enabled", enabled)
	if target.IRI == current.IRI {
		s.Reload()
	}
	return nil
}

package api

import (
	"context"
	"net/http"

	"github.com/Ning0612/mercury/internal/domain"
)

// CurrentUser returns the logged in user
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.call(ctx, request{method: http.MethodGet, path: "users/current", accept: contentJSON}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Users lists all users
func (c *Client) Users(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := c.call(ctx, request{method: http.MethodGet, path: "users/", accept: contentJSON}, &out)
	return out, err
}

// SetRole grants or revokes a role of a user
func (c *Client) SetRole(ctx context.Context, userID string, role domain.Role, enabled bool) error {
	body, err := jsonBody(map[string]any{"id": userID, string(role): enabled})
	if err != nil {
		return err
	}
	return c.call(ctx, request{
		method:      http.MethodPatch,
		path:        "users/",
		body:        body,
		contentType: contentJSON,
	}, nil)
}

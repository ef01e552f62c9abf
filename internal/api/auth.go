package api

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Ning0612/mercury/internal/config"
)

// NewTokenSource builds the token source for the configured credentials.
// Client credentials take precedence over a static bearer token; nil is
// returned when neither is configured.
func NewTokenSource(ctx context.Context, auth config.AuthConfig) oauth2.TokenSource {
	if auth.UsesClientCredentials() {
		cc := &clientcredentials.Config{
			ClientID:     auth.ClientID,
			ClientSecret: auth.ClientSecret,
			TokenURL:     auth.TokenURL,
			Scopes:       auth.Scopes,
		}
		return cc.TokenSource(ctx)
	}
	if auth.BearerToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: auth.BearerToken, TokenType: "Bearer"})
	}
	return nil
}

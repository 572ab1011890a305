package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
)

// Scopes requested from GitHub. gist is needed for secret config gists and
// repo for Dependabot alerts.
var Scopes = []string{"read:user", "gist", "repo"}

// OAuth drives the GitHub OAuth web flow
type OAuth struct {
	config *oauth2.Config
}

// NewOAuth creates the flow for a GitHub OAuth app
func NewOAuth(clientID, clientSecret, callbackURL string) *OAuth {
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  callbackURL,
			Scopes:       Scopes,
		},
	}
}

// WithEndpoint replaces the GitHub endpoint, for GitHub Enterprise or tests
func (o *OAuth) WithEndpoint(endpoint oauth2.Endpoint) *OAuth {
	o.config.Endpoint = endpoint
	return o
}

// AuthCodeURL returns the GitHub authorization URL carrying state
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", apperrors.NewBadRequestError("missing authorization code")
	}

	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return "", apperrors.NewUnauthorizedError("failed to exchange authorization code: " + err.Error())
	}
	if !token.Valid() {
		return "", apperrors.NewUnauthorizedError("GitHub returned no access token")
	}
	return token.AccessToken, nil
}

// NewState returns a random value for the state parameter
func NewState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

package transport

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/agentstation/courtsync/pkg/errors"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request) error
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) error {
	return nil
}

// BearerAuth sends a fixed bearer token.
type BearerAuth struct {
	Token string
}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request) error {
	if a.Token == "" {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}

// HeaderAuth sends a fixed value in a custom header.
type HeaderAuth struct {
	Header string
	Value  string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request) error {
	req.Header.Set(a.Header, a.Value)
	return nil
}

// TokenSourceAuth sends a bearer token obtained from an oauth2.TokenSource.
// Tokens are cached by the source until they expire.
type TokenSourceAuth struct {
	Source oauth2.TokenSource
}

// NewClientCredentials returns an authenticator that uses the OAuth2
// client-credentials grant against tokenURL.
func NewClientCredentials(ctx context.Context, tokenURL, clientID, clientSecret string) *TokenSourceAuth {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return &TokenSourceAuth{Source: cfg.TokenSource(ctx)}
}

// Apply implements the Authenticator interface for TokenSourceAuth.
func (a *TokenSourceAuth) Apply(req *http.Request) error {
	token, err := a.Source.Token()
	if err != nil {
		return errors.NewAuthenticationError("client_credentials", "failed to obtain access token", err)
	}
	token.SetAuthHeader(req)
	return nil
}

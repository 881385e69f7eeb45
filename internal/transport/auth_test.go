package transport

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"golang.org/x/oauth2"

	pkgerrors "github.com/agentstation/courtsync/pkg/errors"
)

// TestNoAuth tests that NoAuth applies no authentication.
func TestNoAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}

	if err := (&NoAuth{}).Apply(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Header) != 0 {
		t.Errorf("Expected no headers, got %d", len(req.Header))
	}
}

// TestBearerAuth tests fixed bearer token authentication.
func TestBearerAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}

	_ = (&BearerAuth{Token: "abc"}).Apply(req)

	if got := req.Header.Get("Authorization"); got != "Bearer abc" {
		t.Errorf("Expected Authorization header 'Bearer abc', got '%s'", got)
	}

	empty := &http.Request{Header: make(http.Header)}
	_ = (&BearerAuth{}).Apply(empty)
	if empty.Header.Get("Authorization") != "" {
		t.Error("Empty token should not set Authorization")
	}
}

// TestHeaderAuth tests custom header authentication.
func TestHeaderAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}

	_ = (&HeaderAuth{Header: "X-Api-Key", Value: "secret"}).Apply(req)

	if got := req.Header.Get("X-Api-Key"); got != "secret" {
		t.Errorf("Expected X-Api-Key header 'secret', got '%s'", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("Should not have Authorization header")
	}
}

type staticSource struct {
	token *oauth2.Token
	err   error
}

func (s staticSource) Token() (*oauth2.Token, error) {
	return s.token, s.err
}

// TestTokenSourceAuth tests that tokens from the source are applied.
func TestTokenSourceAuth(t *testing.T) {
	t.Run("applies token", func(t *testing.T) {
		auth := &TokenSourceAuth{Source: staticSource{token: &oauth2.Token{
			AccessToken: "tok",
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(time.Hour),
		}}}
		req := &http.Request{Header: make(http.Header)}

		if err := auth.Apply(req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Expected 'Bearer tok', got '%s'", got)
		}
	})

	t.Run("source failure is an authentication error", func(t *testing.T) {
		auth := &TokenSourceAuth{Source: staticSource{err: errors.New("invalid_client")}}
		req := &http.Request{Header: make(http.Header)}

		err := auth.Apply(req)
		var authErr *pkgerrors.AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("Expected AuthenticationError, got %v", err)
		}
		if !pkgerrors.IsUnauthorized(err) {
			t.Error("Expected error to match ErrUnauthorized")
		}
	})
}

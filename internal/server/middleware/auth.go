package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/agentstation/courtsync/internal/server/response"
	"github.com/agentstation/courtsync/pkg/errors"
)

// Authority and scope required to trigger a sync.
const (
	RoleMaintainRefData = "ROLE_MAINTAIN_REF_DATA"
	ScopeWrite          = "write"
)

// AuthConfig configures bearer token validation. Tokens signed with RS256
// are checked against PublicKey, HS256 tokens against Secret. At least one
// must be set.
type AuthConfig struct {
	Secret    []byte
	PublicKey *rsa.PublicKey
	Issuer    string
}

// Validate checks that a verification key is configured.
func (c AuthConfig) Validate() error {
	if len(c.Secret) == 0 && c.PublicKey == nil {
		return errors.NewConfigError("auth", "a jwt secret or public key is required", nil)
	}
	return nil
}

// ParsePublicKey decodes a PEM encoded RSA public key.
func ParsePublicKey(pem string) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, errors.NewConfigError("auth", "invalid jwt public key", err)
	}
	return key, nil
}

// Scopes is the token scope claim. It accepts both a JSON array and a
// space separated string.
type Scopes []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scopes) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*s = strings.Fields(joined)
	return nil
}

// Claims are the claims read from an access token.
type Claims struct {
	Authorities []string `json:"authorities,omitempty"`
	Scope       Scopes   `json:"scope,omitempty"`
	ClientID    string   `json:"client_id,omitempty"`
	UserName    string   `json:"user_name,omitempty"`
	jwt.RegisteredClaims
}

// Has reports whether the claims carry the authority and scope.
func (c *Claims) Has(authority, scope string) bool {
	return slices.Contains(c.Authorities, authority) && slices.Contains(c.Scope, scope)
}

type claimsKey struct{}

// ClaimsFromContext returns the claims of the authenticated request, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

// Validator verifies access tokens.
type Validator struct {
	config AuthConfig
	parser *jwt.Parser
}

// NewValidator creates a Validator.
func NewValidator(config AuthConfig) (*Validator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	return &Validator{config: config, parser: jwt.NewParser(opts...)}, nil
}

// Validate parses and verifies a token.
func (v *Validator) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, v.key)
	if err != nil {
		return nil, errors.NewAuthenticationError("bearer", "invalid token", err)
	}
	if !parsed.Valid {
		return nil, errors.NewAuthenticationError("bearer", "invalid token", nil)
	}
	return claims, nil
}

func (v *Validator) key(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA:
		if v.config.PublicKey != nil {
			return v.config.PublicKey, nil
		}
	case *jwt.SigningMethodHMAC:
		if len(v.config.Secret) > 0 {
			return v.config.Secret, nil
		}
	}
	return nil, jwt.ErrTokenUnverifiable
}

// RequireAuthority rejects requests without a valid bearer token (401) and
// requests whose token lacks the authority or scope (403).
func RequireAuthority(validator *Validator, authority, scope string, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("Unauthorized access - missing token")
				response.Unauthorized(w, "Missing or invalid Authorization header", "Provide a bearer token")
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("path", r.URL.Path).
					Msg("Unauthorized access - invalid token")
				response.Unauthorized(w, "Invalid or expired token", "")
				return
			}

			if !claims.Has(authority, scope) {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("client_id", claims.ClientID).
					Strs("authorities", claims.Authorities).
					Msg("Forbidden - missing authority or scope")
				response.Forbidden(w, "Access denied", "Requires "+authority+" with scope "+scope)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

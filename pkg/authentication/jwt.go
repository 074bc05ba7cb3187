// Package authentication validates bearer tokens and resolves the
// caller's authorization context from token claims.
package authentication

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/authorization"
)

// Principal identifies an authenticated caller.
type Principal struct {
	Subject  string
	TokenID  string
	ClientID string
}

// TokenValidator validates a bearer token. An invalid token yields
// (nil, nil, nil) — not an error; errors are reserved for faults such as
// an unreachable key service.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*Principal, *authorization.ClientAuthorizations, error)
}

// JWTValidator validates HMAC-signed JWTs and maps their claims onto the
// client's authorization context.
type JWTValidator struct {
	secret   []byte
	audience string
	logger   hclog.Logger
}

// NewJWTValidator creates a validator for tokens signed with the given
// shared secret. An empty audience disables audience checking.
func NewJWTValidator(secret []byte, audience string, logger hclog.Logger) *JWTValidator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &JWTValidator{
		secret:   secret,
		audience: audience,
		logger:   logger.Named("jwt-validator"),
	}
}

type gatewayClaims struct {
	jwt.RegisteredClaims
	ClaimSetName             string   `json:"claimSetName"`
	NamespacePrefixes        []string `json:"namespacePrefixes"`
	EducationOrganizationIDs []int64  `json:"educationOrganizationIds"`
	ApplicationID            string   `json:"applicationId"`
	ClientID                 string   `json:"clientId"`
}

// Validate implements TokenValidator.
func (v *JWTValidator) Validate(
	_ context.Context, token string,
) (*Principal, *authorization.ClientAuthorizations, error) {
	var claims gatewayClaims

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, options...)
	if err != nil || !parsed.Valid {
		v.logger.Debug("token validation failed", "error", err)
		return nil, nil, nil
	}

	principal := &Principal{
		Subject:  claims.Subject,
		TokenID:  claims.ID,
		ClientID: claims.ClientID,
	}
	client := &authorization.ClientAuthorizations{
		TokenID:                  claims.ID,
		ClaimSetName:             claims.ClaimSetName,
		NamespacePrefixes:        claims.NamespacePrefixes,
		EducationOrganizationIDs: claims.EducationOrganizationIDs,
		ApplicationID:            claims.ApplicationID,
	}
	return principal, client, nil
}

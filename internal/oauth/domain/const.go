// Package domain defines the authorization-server domain models.
// It covers OAuth clients, grants, authorization codes, refresh token
// rotation chains, and access/ID token claim building.
package domain

import "strings"

// Supported values for the token endpoint grant_type parameter.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypePassword          = "password"
)

// TokenTypeBearer is the token_type returned by the token endpoint.
const TokenTypeBearer = "Bearer"

// Well-known scopes with claim side effects.
const (
	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
	ScopeEmail   = "email"
)

// CodeChallengeMethodS256 is the only supported PKCE challenge method.
const CodeChallengeMethodS256 = "S256"

// SplitScopes parses a space-separated scope string.
func SplitScopes(s string) []string {
	return strings.Fields(s)
}

// JoinScopes renders scopes as a space-separated string.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// HasScope reports whether the scope list contains the given scope.
func HasScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

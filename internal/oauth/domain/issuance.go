package domain

import (
	"github.com/google/uuid"
)

// AuthorizeInput contains the parameters of an authorization request. The
// handler resolves the tenant and the authenticated principal before calling
// the use case.
type AuthorizeInput struct {
	TenantID            uuid.UUID
	SubjectID           uuid.UUID
	ClientID            uuid.UUID
	RedirectURI         string
	Scopes              []string
	Resources           []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizeOutput carries the issued authorization code back to the handler,
// which redirects the user agent to the redirect URI.
type AuthorizeOutput struct {
	Code        string
	State       string
	RedirectURI string
}

// TokenInput contains the parameters of a token request. Fields are populated
// from the form body depending on grant_type; unused fields stay zero.
type TokenInput struct {
	GrantType    string
	TenantID     uuid.UUID
	ClientID     uuid.UUID
	ClientSecret string

	// authorization_code
	Code         string
	RedirectURI  string
	CodeVerifier string

	// refresh_token
	RefreshToken string

	// password
	Username string
	Password string

	Scopes []string
}

// TokenOutput is the token endpoint response payload.
type TokenOutput struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int64
	RefreshToken string
	IDToken      string
	Scope        string
}

// RevokeInput contains the parameters of a revocation request.
type RevokeInput struct {
	Token         string
	TokenTypeHint string
	ClientID      uuid.UUID
}

// CreateClientOutput carries a newly registered client together with its
// plaintext secret, shown to the operator exactly once.
type CreateClientOutput struct {
	Client      *Client
	PlainSecret string
}

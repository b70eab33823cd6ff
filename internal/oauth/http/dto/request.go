// Package dto provides data transfer objects for the OAuth endpoints.
package dto

import (
	"strings"

	validation "github.com/jellydator/validation"

	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
	customValidation "github.com/allisson/authd/internal/validation"
)

// TokenRequest contains the form parameters of a token request. Only the
// fields relevant to the requested grant_type are set.
type TokenRequest struct {
	GrantType    string `form:"grant_type"`
	ClientID     string `form:"client_id"`
	ClientSecret string `form:"client_secret"`
	Code         string `form:"code"`
	RedirectURI  string `form:"redirect_uri"`
	CodeVerifier string `form:"code_verifier"`
	RefreshToken string `form:"refresh_token"`
	Username     string `form:"username"`
	Password     string `form:"password"`
	Scope        string `form:"scope"`
}

// Validate checks if the token request is valid.
func (r *TokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.GrantType,
			validation.Required,
			validation.In(
				oauthDomain.GrantTypeAuthorizationCode,
				oauthDomain.GrantTypeRefreshToken,
				oauthDomain.GrantTypeClientCredentials,
				oauthDomain.GrantTypePassword,
			),
		),
		validation.Field(&r.ClientID,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}

// Scopes splits the space-delimited scope parameter.
func (r *TokenRequest) Scopes() []string {
	return strings.Fields(r.Scope)
}

// AuthorizeRequest contains the query parameters of an authorization request.
// The resource parameter may repeat (RFC 8707).
type AuthorizeRequest struct {
	ResponseType        string   `form:"response_type"`
	ClientID            string   `form:"client_id"`
	RedirectURI         string   `form:"redirect_uri"`
	Scope               string   `form:"scope"`
	Resources           []string `form:"resource"`
	State               string   `form:"state"`
	CodeChallenge       string   `form:"code_challenge"`
	CodeChallengeMethod string   `form:"code_challenge_method"`
}

// Validate checks if the authorization request is valid.
func (r *AuthorizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ResponseType,
			validation.Required,
			validation.In("code"),
		),
		validation.Field(&r.ClientID,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.RedirectURI,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.CodeChallenge,
			customValidation.Base64URL,
		),
	)
}

// Scopes splits the space-delimited scope parameter.
func (r *AuthorizeRequest) Scopes() []string {
	return strings.Fields(r.Scope)
}

// RevokeRequest contains the form parameters of a revocation request.
type RevokeRequest struct {
	Token         string `form:"token"`
	TokenTypeHint string `form:"token_type_hint"`
	ClientID      string `form:"client_id"`
}

// Validate checks if the revocation request is valid.
func (r *RevokeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token,
			validation.Required,
		),
		validation.Field(&r.ClientID,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}

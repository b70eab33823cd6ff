package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenClaims is the claim set of a single token.
type TokenClaims map[string]any

// ClaimDestination is a bitmask naming the token(s) a claim belongs in.
type ClaimDestination int

const (
	DestinationNone        ClaimDestination = 0
	DestinationAccessToken ClaimDestination = 1
	DestinationIDToken     ClaimDestination = 2
	DestinationBoth                         = DestinationAccessToken | DestinationIDToken
)

// claimRule routes one optional claim. An empty requiredScope means the claim
// is always emitted when a value exists.
type claimRule struct {
	destination   ClaimDestination
	requiredScope string
}

// claimRules routes the optional claims. Registered claims (iss, sub, aud,
// exp, iat, jti) and scope are emitted directly by BuildClaims. The security
// stamp is internal state and never leaves the server.
var claimRules = map[string]claimRule{
	"tid":                {destination: DestinationBoth},
	"preferred_username": {destination: DestinationIDToken, requiredScope: ScopeProfile},
	"name":               {destination: DestinationIDToken, requiredScope: ScopeProfile},
	"email":              {destination: DestinationIDToken, requiredScope: ScopeEmail},
	"security_stamp":     {destination: DestinationNone},
}

// ClaimsInput carries the values claims are built from. Optional fields left
// empty are omitted from the output.
type ClaimsInput struct {
	Issuer         string
	Subject        string
	Audience       string
	TenantID       uuid.UUID
	Scopes         []string
	Resources      []string // Resource indicators; override the access token audience
	Username       string
	Email          string
	SecurityStamp  string
	AccessTokenTTL time.Duration
}

// BuildClaims produces the claim sets for the access token and the ID token.
// The ID token set is nil unless the openid scope was granted.
//
// When resource indicators were bound to the authorization, they become the
// access token audience; the ID token audience stays the client.
func BuildClaims(input ClaimsInput) (access TokenClaims, id TokenClaims) {
	now := time.Now().UTC()
	expiresAt := now.Add(input.AccessTokenTTL)

	access = registeredClaims(input, now, expiresAt)
	access["scope"] = JoinScopes(input.Scopes)
	if len(input.Resources) > 0 {
		access["aud"] = audienceClaim(input.Resources)
	}

	if HasScope(input.Scopes, ScopeOpenID) {
		id = registeredClaims(input, now, expiresAt)
	}

	for name, value := range optionalClaimValues(input) {
		rule, ok := claimRules[name]
		if !ok || value == "" {
			continue
		}
		if rule.requiredScope != "" && !HasScope(input.Scopes, rule.requiredScope) {
			continue
		}
		if rule.destination&DestinationAccessToken != 0 {
			access[name] = value
		}
		if rule.destination&DestinationIDToken != 0 && id != nil {
			id[name] = value
		}
	}
	return access, id
}

func registeredClaims(input ClaimsInput, now, expiresAt time.Time) TokenClaims {
	return TokenClaims{
		"iss": input.Issuer,
		"sub": input.Subject,
		"aud": input.Audience,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"jti": uuid.Must(uuid.NewV7()).String(),
	}
}

// audienceClaim renders the aud value: a bare string for a single audience,
// an array otherwise, per RFC 7519 section 4.1.3.
func audienceClaim(resources []string) any {
	if len(resources) == 1 {
		return resources[0]
	}
	return resources
}

func optionalClaimValues(input ClaimsInput) map[string]string {
	return map[string]string{
		"tid":                input.TenantID.String(),
		"preferred_username": input.Username,
		"name":               input.Username,
		"email":              input.Email,
		"security_stamp":     input.SecurityStamp,
	}
}

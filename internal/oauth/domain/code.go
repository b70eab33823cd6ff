package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// AuthorizationCode is the short-lived record bound to an opaque code value.
// The code itself is the lookup key, it never appears in the record.
// JSON tags back the Redis serialization.
type AuthorizationCode struct {
	SubjectID           uuid.UUID `json:"subject_id"`
	ClientID            uuid.UUID `json:"client_id"`
	TenantID            uuid.UUID `json:"tenant_id"`
	GrantID             uuid.UUID `json:"grant_id"`
	Scopes              []string  `json:"scopes"`
	Resources           []string  `json:"resources,omitempty"`
	RedirectURI         string    `json:"redirect_uri"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	CreatedAt           time.Time `json:"created_at"`

	// ConsumedAt marks a tombstone left behind after a successful exchange.
	// Consuming a tombstone means the code was redeemed twice.
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// Tombstone returns a consumed copy of the record, stored back under the code
// so a second redemption can be told apart from an unknown code.
func (a *AuthorizationCode) Tombstone(at time.Time) *AuthorizationCode {
	tombstone := *a
	tombstone.ConsumedAt = &at
	return &tombstone
}

// RequiresPKCE reports whether a code_verifier must accompany the exchange.
func (a *AuthorizationCode) RequiresPKCE() bool {
	return a.CodeChallenge != ""
}

// VerifyPKCE checks the code_verifier against the stored challenge using the
// S256 transformation. Constant-time comparison.
func (a *AuthorizationCode) VerifyPKCE(verifier string) bool {
	if a.CodeChallengeMethod != CodeChallengeMethodS256 {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(a.CodeChallenge)) == 1
}

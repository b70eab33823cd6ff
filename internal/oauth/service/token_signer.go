package service

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/allisson/authd/internal/errors"
	keysService "github.com/allisson/authd/internal/keys/service"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

// tokenSigner signs claim sets with the tenant's current signing key.
type tokenSigner struct {
	keyManager keysService.KeyManager
}

// Sign serializes the claims into an RS256 JWT signed with the tenant's
// current key. The kid header carries the key id so resource servers can
// select the matching JWKS entry.
func (s *tokenSigner) Sign(ctx context.Context, tenantID uuid.UUID, claims oauthDomain.TokenClaims) (string, error) {
	key, err := s.keyManager.CurrentSigningKey(ctx, &tenantID)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to get current signing key")
	}

	privateKey, err := key.PrivateKey()
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	token.Header["kid"] = key.ID.String()

	signed, err := token.SignedString(privateKey)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// NewTokenSigner creates a new TokenSigner backed by the given key manager.
func NewTokenSigner(keyManager keysService.KeyManager) TokenSigner {
	return &tokenSigner{keyManager: keyManager}
}

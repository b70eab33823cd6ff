// Package domain defines signing key material and its lifecycle rules.
//
// At most one key per tenant (or one global key) is current at a time. Retired
// keys remain in the validation set until their grace period elapses so tokens
// signed just before a rotation stay verifiable.
package domain

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/authd/internal/errors"
)

// AlgorithmRS256 is the only signing algorithm currently issued.
const AlgorithmRS256 = "RS256"

// rsaKeyBits is the modulus size for generated signing keys.
const rsaKeyBits = 2048

// SigningKey represents an asymmetric signing key pair with lifecycle metadata.
// The private half never leaves the server; only the public half is published
// via JWKS. Key material is never mutated after creation.
type SigningKey struct {
	ID            uuid.UUID  // Key identifier, doubles as the JWKS "kid"
	TenantID      *uuid.UUID // Owning tenant, nil for the global key
	Algorithm     string     // Signing algorithm (RS256)
	PrivateKeyPEM string     // PKCS#8 PEM, never logged or served
	PublicKeyPEM  string     // PKIX PEM
	CreatedAt     time.Time
	ExpiresAt     time.Time  // End of the signing window
	RetiredAt     *time.Time // When rotated out early (nil while current)
}

// IsExpired returns true if the key's signing window has elapsed.
func (k *SigningKey) IsExpired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}

// InValidationWindow returns true while the key may still verify tokens:
// until ExpiresAt plus the grace period has elapsed.
func (k *SigningKey) InValidationWindow(now time.Time, gracePeriod time.Duration) bool {
	return now.Before(k.ExpiresAt.Add(gracePeriod))
}

// PrivateKey parses the PKCS#8 PEM into an RSA private key.
func (k *SigningKey) PrivateKey() (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(k.PrivateKeyPEM))
	if block == nil {
		return nil, apperrors.New("failed to decode private key PEM")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse private key")
	}

	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, apperrors.New("private key is not an RSA key")
	}
	return rsaKey, nil
}

// PublicKey parses the PKIX PEM into an RSA public key.
func (k *SigningKey) PublicKey() (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(k.PublicKeyPEM))
	if block == nil {
		return nil, apperrors.New("failed to decode public key PEM")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse public key")
	}

	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, apperrors.New("public key is not an RSA key")
	}
	return rsaKey, nil
}

// NewSigningKey generates a fresh RSA key pair valid for the given lifetime.
func NewSigningKey(tenantID *uuid.UUID, lifetime time.Duration) (*SigningKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate signing key")
	}

	privateDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal private key")
	}
	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal public key")
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER})
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})

	now := time.Now().UTC()

	return &SigningKey{
		ID:            uuid.Must(uuid.NewV7()),
		TenantID:      tenantID,
		Algorithm:     AlgorithmRS256,
		PrivateKeyPEM: string(privatePEM),
		PublicKeyPEM:  string(publicPEM),
		CreatedAt:     now,
		ExpiresAt:     now.Add(lifetime),
	}, nil
}

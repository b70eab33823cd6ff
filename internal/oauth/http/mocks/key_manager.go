package mocks

import (
	"context"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	keysDomain "github.com/allisson/authd/internal/keys/domain"
)

// MockKeyManager is a mock implementation of KeyManager for testing.
type MockKeyManager struct {
	mock.Mock
}

// CurrentSigningKey mocks the CurrentSigningKey method of KeyManager.
func (m *MockKeyManager) CurrentSigningKey(ctx context.Context, tenantID *uuid.UUID) (*keysDomain.SigningKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.SigningKey), args.Error(1)
}

// ValidationKeys mocks the ValidationKeys method of KeyManager.
func (m *MockKeyManager) ValidationKeys(ctx context.Context, tenantID *uuid.UUID) ([]*keysDomain.SigningKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*keysDomain.SigningKey), args.Error(1)
}

// JWKS mocks the JWKS method of KeyManager.
func (m *MockKeyManager) JWKS(ctx context.Context, tenantID *uuid.UUID) (*jose.JSONWebKeySet, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jose.JSONWebKeySet), args.Error(1)
}

// Rotate mocks the Rotate method of KeyManager.
func (m *MockKeyManager) Rotate(ctx context.Context, tenantID *uuid.UUID) (*keysDomain.SigningKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.SigningKey), args.Error(1)
}

// RotateDue mocks the RotateDue method of KeyManager.
func (m *MockKeyManager) RotateDue(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Revoke mocks the Revoke method of KeyManager.
func (m *MockKeyManager) Revoke(ctx context.Context, tenantID *uuid.UUID, keyID uuid.UUID) error {
	args := m.Called(ctx, tenantID, keyID)
	return args.Error(0)
}

// PurgeExpired mocks the PurgeExpired method of KeyManager.
func (m *MockKeyManager) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

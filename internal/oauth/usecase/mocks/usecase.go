// Package mocks provides mock implementations for testing OAuth consumers.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

// MockClientUseCase is a mock implementation of ClientUseCase for testing.
type MockClientUseCase struct {
	mock.Mock
}

// Create mocks the Create method of ClientUseCase.
func (m *MockClientUseCase) Create(
	ctx context.Context,
	input *oauthDomain.CreateClientInput,
) (*oauthDomain.CreateClientOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.CreateClientOutput), args.Error(1)
}

// Get mocks the Get method of ClientUseCase.
func (m *MockClientUseCase) Get(ctx context.Context, id uuid.UUID) (*oauthDomain.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Client), args.Error(1)
}

// SetActive mocks the SetActive method of ClientUseCase.
func (m *MockClientUseCase) SetActive(ctx context.Context, id uuid.UUID, isActive bool) error {
	args := m.Called(ctx, id, isActive)
	return args.Error(0)
}

// MockRefreshTokenRepository is a mock implementation of RefreshTokenRepository for testing.
type MockRefreshTokenRepository struct {
	mock.Mock
}

// Create mocks the Create method of RefreshTokenRepository.
func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *oauthDomain.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// GetByTokenHash mocks the GetByTokenHash method of RefreshTokenRepository.
func (m *MockRefreshTokenRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*oauthDomain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.RefreshToken), args.Error(1)
}

// Revoke mocks the Revoke method of RefreshTokenRepository.
func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// RevokeByGrant mocks the RevokeByGrant method of RefreshTokenRepository.
func (m *MockRefreshTokenRepository) RevokeByGrant(
	ctx context.Context,
	grantID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	args := m.Called(ctx, grantID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// RevokeByChain mocks the RevokeByChain method of RefreshTokenRepository.
func (m *MockRefreshTokenRepository) RevokeByChain(
	ctx context.Context,
	chainID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	args := m.Called(ctx, chainID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// ListActiveByUser mocks the ListActiveByUser method of RefreshTokenRepository.
func (m *MockRefreshTokenRepository) ListActiveByUser(
	ctx context.Context,
	tenantID, userID uuid.UUID,
) ([]*oauthDomain.RefreshToken, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*oauthDomain.RefreshToken), args.Error(1)
}

// RevokeAllForUser mocks the RevokeAllForUser method of RefreshTokenRepository.
func (m *MockRefreshTokenRepository) RevokeAllForUser(
	ctx context.Context,
	tenantID, userID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	args := m.Called(ctx, tenantID, userID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// DeleteExpired mocks the DeleteExpired method of RefreshTokenRepository.
func (m *MockRefreshTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

// MockTokenUseCase is a mock implementation of TokenUseCase for testing.
type MockTokenUseCase struct {
	mock.Mock
}

// Token mocks the Token method of TokenUseCase.
func (m *MockTokenUseCase) Token(
	ctx context.Context,
	input *oauthDomain.TokenInput,
) (*oauthDomain.TokenOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.TokenOutput), args.Error(1)
}

// Revoke mocks the Revoke method of TokenUseCase.
func (m *MockTokenUseCase) Revoke(ctx context.Context, input *oauthDomain.RevokeInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

// Logout mocks the Logout method of TokenUseCase.
func (m *MockTokenUseCase) Logout(ctx context.Context, tenantID, userID uuid.UUID) error {
	args := m.Called(ctx, tenantID, userID)
	return args.Error(0)
}

// MockAuthorizeUseCase is a mock implementation of AuthorizeUseCase for testing.
type MockAuthorizeUseCase struct {
	mock.Mock
}

// Authorize mocks the Authorize method of AuthorizeUseCase.
func (m *MockAuthorizeUseCase) Authorize(
	ctx context.Context,
	input *oauthDomain.AuthorizeInput,
) (*oauthDomain.AuthorizeOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.AuthorizeOutput), args.Error(1)
}

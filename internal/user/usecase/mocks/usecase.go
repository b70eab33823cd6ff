// Package mocks provides mock implementations for testing principal consumers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	userDomain "github.com/allisson/authd/internal/user/domain"
)

// MockUserUseCase is a mock implementation of UserUseCase for testing.
type MockUserUseCase struct {
	mock.Mock
}

// Create mocks the Create method of UserUseCase.
func (m *MockUserUseCase) Create(
	ctx context.Context,
	input *userDomain.CreateUserInput,
) (*userDomain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

// Get mocks the Get method of UserUseCase.
func (m *MockUserUseCase) Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

// VerifyCredentials mocks the VerifyCredentials method of UserUseCase.
func (m *MockUserUseCase) VerifyCredentials(
	ctx context.Context,
	tenantID uuid.UUID,
	username string,
	password string,
) (*userDomain.User, error) {
	args := m.Called(ctx, tenantID, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

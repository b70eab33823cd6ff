// Package mocks provides mock implementations for testing tenant consumers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	tenantDomain "github.com/allisson/authd/internal/tenant/domain"
)

// MockTenantUseCase is a mock implementation of TenantUseCase for testing.
type MockTenantUseCase struct {
	mock.Mock
}

// Create mocks the Create method of TenantUseCase.
func (m *MockTenantUseCase) Create(
	ctx context.Context,
	input *tenantDomain.CreateTenantInput,
) (*tenantDomain.Tenant, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenantDomain.Tenant), args.Error(1)
}

// Get mocks the Get method of TenantUseCase.
func (m *MockTenantUseCase) Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenantDomain.Tenant), args.Error(1)
}

// Disable mocks the Disable method of TenantUseCase.
func (m *MockTenantUseCase) Disable(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

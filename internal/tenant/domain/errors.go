package domain

import (
	"github.com/allisson/authd/internal/errors"
)

// Tenant errors.
var (
	// ErrTenantNotFound indicates a tenant with the specified ID or domain was not found.
	ErrTenantNotFound = errors.Wrap(errors.ErrNotFound, "tenant not found")

	// ErrTenantInactive indicates the tenant exists but has been disabled.
	ErrTenantInactive = errors.Wrap(errors.ErrForbidden, "tenant is inactive")
)

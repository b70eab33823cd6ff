package app

import (
	"fmt"

	"github.com/allisson/authd/internal/tenant"
	tenantRepository "github.com/allisson/authd/internal/tenant/repository"
	tenantUseCase "github.com/allisson/authd/internal/tenant/usecase"
)

// TenantRepository returns the tenant repository.
func (c *Container) TenantRepository() (tenantUseCase.TenantRepository, error) {
	var err error
	c.tenantRepoInit.Do(func() {
		c.tenantRepo, err = c.initTenantRepository()
		if err != nil {
			c.initErrors["tenantRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantRepo"]; exists {
		return nil, storedErr
	}
	return c.tenantRepo, nil
}

// TenantUseCase returns the tenant use case.
func (c *Container) TenantUseCase() (tenantUseCase.TenantUseCase, error) {
	var err error
	c.tenantUCInit.Do(func() {
		c.tenantUC, err = c.initTenantUseCase()
		if err != nil {
			c.initErrors["tenantUC"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantUC"]; exists {
		return nil, storedErr
	}
	return c.tenantUC, nil
}

// TenantResolver returns the request tenant resolver.
func (c *Container) TenantResolver() (*tenant.Resolver, error) {
	var err error
	c.tenantResolverInit.Do(func() {
		c.tenantResolver, err = c.initTenantResolver()
		if err != nil {
			c.initErrors["tenantResolver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantResolver"]; exists {
		return nil, storedErr
	}
	return c.tenantResolver, nil
}

// initTenantRepository creates the tenant repository based on the database driver.
func (c *Container) initTenantRepository() (tenantUseCase.TenantRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tenant repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return tenantRepository.NewPostgreSQLTenantRepository(db), nil
	case "mysql":
		return tenantRepository.NewMySQLTenantRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTenantUseCase creates the tenant use case with its dependencies.
func (c *Container) initTenantUseCase() (tenantUseCase.TenantUseCase, error) {
	tenantRepo, err := c.TenantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant repository for tenant use case: %w", err)
	}

	return tenantUseCase.NewTenantUseCase(tenantRepo), nil
}

// initTenantResolver creates the tenant resolver with its dependencies.
func (c *Container) initTenantResolver() (*tenant.Resolver, error) {
	tenantRepo, err := c.TenantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant repository for tenant resolver: %w", err)
	}

	return tenant.NewResolver(tenantRepo), nil
}

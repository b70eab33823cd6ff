package app

import (
	"fmt"

	userRepository "github.com/allisson/authd/internal/user/repository"
	userService "github.com/allisson/authd/internal/user/service"
	userUseCase "github.com/allisson/authd/internal/user/usecase"
)

// UserRepository returns the user repository.
func (c *Container) UserRepository() (userUseCase.UserRepository, error) {
	var err error
	c.userRepoInit.Do(func() {
		c.userRepo, err = c.initUserRepository()
		if err != nil {
			c.initErrors["userRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userRepo"]; exists {
		return nil, storedErr
	}
	return c.userRepo, nil
}

// PasswordService returns the password hashing service.
func (c *Container) PasswordService() (userService.PasswordService, error) {
	c.passwordServiceInit.Do(func() {
		c.passwordService = userService.NewPasswordService()
	})
	return c.passwordService, nil
}

// UserUseCase returns the user use case.
func (c *Container) UserUseCase() (userUseCase.UserUseCase, error) {
	var err error
	c.userUCInit.Do(func() {
		c.userUC, err = c.initUserUseCase()
		if err != nil {
			c.initErrors["userUC"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userUC"]; exists {
		return nil, storedErr
	}
	return c.userUC, nil
}

// initUserRepository creates the user repository based on the database driver.
func (c *Container) initUserRepository() (userUseCase.UserRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return userRepository.NewPostgreSQLUserRepository(db), nil
	case "mysql":
		return userRepository.NewMySQLUserRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initUserUseCase creates the user use case with its dependencies.
func (c *Container) initUserUseCase() (userUseCase.UserUseCase, error) {
	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for user use case: %w", err)
	}

	passwordService, err := c.PasswordService()
	if err != nil {
		return nil, fmt.Errorf("failed to get password service for user use case: %w", err)
	}

	return userUseCase.NewUserUseCase(userRepo, passwordService), nil
}

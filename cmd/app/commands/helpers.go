// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"

	"github.com/allisson/authd/internal/app"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// parseTenantScope converts a tenant flag value into a key scope.
// An empty string selects the global scope (nil).
func parseTenantScope(tenantStr string) (*uuid.UUID, error) {
	if tenantStr == "" {
		return nil, nil
	}

	tenantID, err := uuid.Parse(tenantStr)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %s", tenantStr)
	}

	return &tenantID, nil
}

// parseGrantTypes converts a comma-separated string into a validated slice
// of grant types.
func parseGrantTypes(input string) ([]string, error) {
	parts := strings.Split(input, ",")
	grantTypes := make([]string, 0, len(parts))

	for _, part := range parts {
		grantType := strings.TrimSpace(part)
		if grantType == "" {
			continue
		}

		switch grantType {
		case oauthDomain.GrantTypeAuthorizationCode,
			oauthDomain.GrantTypeRefreshToken,
			oauthDomain.GrantTypeClientCredentials,
			oauthDomain.GrantTypePassword:
			grantTypes = append(grantTypes, grantType)
		default:
			return nil, fmt.Errorf(
				"invalid grant type: %s (valid options: authorization_code, refresh_token, client_credentials, password)",
				grantType,
			)
		}
	}

	if len(grantTypes) == 0 {
		return nil, fmt.Errorf("at least one grant type is required")
	}

	return grantTypes, nil
}

// splitURIs converts a comma-separated string into a slice of redirect URIs.
func splitURIs(input string) []string {
	parts := strings.Split(input, ",")
	uris := make([]string, 0, len(parts))
	for _, part := range parts {
		if uri := strings.TrimSpace(part); uri != "" {
			uris = append(uris, uri)
		}
	}
	return uris
}

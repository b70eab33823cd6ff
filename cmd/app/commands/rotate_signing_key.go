package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	keysDomain "github.com/allisson/authd/internal/keys/domain"
	keysService "github.com/allisson/authd/internal/keys/service"
)

// RunRotateSigningKey retires the current signing key for the scope and
// installs a fresh one. The retired key keeps validating tokens until its
// grace period elapses. An empty tenant selects the global key.
//
// Requirements: Database must be migrated and accessible.
func RunRotateSigningKey(
	ctx context.Context,
	keyManager keysService.KeyManager,
	logger *slog.Logger,
	writer io.Writer,
	tenantStr string,
	format string,
) error {
	tenantID, err := parseTenantScope(tenantStr)
	if err != nil {
		return err
	}

	scope := "global"
	if tenantID != nil {
		scope = tenantID.String()
	}
	logger.Info("rotating signing key", slog.String("scope", scope))

	key, err := keyManager.Rotate(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to rotate signing key: %w", err)
	}

	if format == "json" {
		outputKeyJSON(key, scope, writer)
	} else {
		outputKeyText(key, scope, writer)
	}

	logger.Info("signing key rotated successfully",
		slog.String("key_id", key.ID.String()),
		slog.String("scope", scope),
		slog.String("algorithm", key.Algorithm),
	)

	return nil
}

// outputKeyText outputs the result in human-readable text format.
func outputKeyText(key *keysDomain.SigningKey, scope string, writer io.Writer) {
	_, _ = fmt.Fprintln(writer, "\nSigning key rotated successfully!")
	_, _ = fmt.Fprintf(writer, "Key ID: %s\n", key.ID.String())
	_, _ = fmt.Fprintf(writer, "Scope: %s\n", scope)
	_, _ = fmt.Fprintf(writer, "Algorithm: %s\n", key.Algorithm)
	_, _ = fmt.Fprintf(writer, "Expires at: %s\n", key.ExpiresAt.Format(time.RFC3339))
}

// outputKeyJSON outputs the result in JSON format for machine consumption.
func outputKeyJSON(key *keysDomain.SigningKey, scope string, writer io.Writer) {
	result := map[string]string{
		"key_id":     key.ID.String(),
		"scope":      scope,
		"algorithm":  key.Algorithm,
		"expires_at": key.ExpiresAt.Format(time.RFC3339),
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
}

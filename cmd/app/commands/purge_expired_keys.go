package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	keysService "github.com/allisson/authd/internal/keys/service"
)

// RunPurgeExpiredKeys removes signing keys that left their validation window.
// Tokens signed with purged keys were already rejected; this reclaims storage.
//
// Requirements: Database must be migrated and accessible.
func RunPurgeExpiredKeys(
	ctx context.Context,
	keyManager keysService.KeyManager,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("purging expired signing keys")

	count, err := keyManager.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge expired keys: %w", err)
	}

	if format == "json" {
		outputPurgeJSON(count, writer)
	} else {
		_, _ = fmt.Fprintf(writer, "Purged %d expired signing key(s)\n", count)
	}

	logger.Info("purge completed", slog.Int64("count", count))

	return nil
}

// outputPurgeJSON outputs the result in JSON format for machine consumption.
func outputPurgeJSON(count int64, writer io.Writer) {
	result := map[string]int64{
		"count": count,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	oauthUseCase "github.com/allisson/authd/internal/oauth/usecase"
)

// RunCleanExpiredTokens deletes refresh token records past their retention
// window. Revocation markers in Redis outlive the SQL rows, so a replayed
// token stays rejected after cleanup.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredTokens(
	ctx context.Context,
	refreshTokenRepo oauthUseCase.RefreshTokenRepository,
	logger *slog.Logger,
	writer io.Writer,
	retention time.Duration,
	format string,
) error {
	if retention <= 0 {
		return fmt.Errorf("retention must be positive, got: %s", retention)
	}

	cutoff := time.Now().Add(-retention)

	logger.Info("cleaning expired refresh tokens",
		slog.String("retention", retention.String()),
		slog.Time("cutoff", cutoff),
	)

	count, err := refreshTokenRepo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean expired tokens: %w", err)
	}

	if format == "json" {
		outputCleanExpiredJSON(count, retention, writer)
	} else {
		_, _ = fmt.Fprintf(writer, "Deleted %d expired refresh token(s) past the %s retention window\n", count, retention)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.String("retention", retention.String()),
	)

	return nil
}

// outputCleanExpiredJSON outputs the result in JSON format for machine consumption.
func outputCleanExpiredJSON(count int64, retention time.Duration, writer io.Writer) {
	result := map[string]interface{}{
		"count":     count,
		"retention": retention.String(),
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
}

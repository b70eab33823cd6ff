package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/google/uuid"

	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
	oauthUseCase "github.com/allisson/authd/internal/oauth/usecase"
)

// RunCreateClient registers a new OAuth client within a tenant. Outputs the
// client ID and the plaintext secret (shown only once) in either text or JSON
// format.
//
// Requirements: Database must be migrated and accessible.
func RunCreateClient(
	ctx context.Context,
	clientUC oauthUseCase.ClientUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantStr string,
	name string,
	redirectURIsStr string,
	grantTypesStr string,
	isConfidential bool,
	format string,
) error {
	tenantID, err := uuid.Parse(tenantStr)
	if err != nil {
		return fmt.Errorf("invalid tenant ID: %s", tenantStr)
	}

	logger.Info("creating new client",
		slog.String("tenant_id", tenantID.String()),
		slog.String("name", name),
	)

	grantTypes, err := parseGrantTypes(grantTypesStr)
	if err != nil {
		return err
	}

	redirectURIs := splitURIs(redirectURIsStr)
	if slices.Contains(grantTypes, oauthDomain.GrantTypeAuthorizationCode) && len(redirectURIs) == 0 {
		return fmt.Errorf("at least one redirect URI is required for the authorization_code grant")
	}

	input := &oauthDomain.CreateClientInput{
		TenantID:       tenantID,
		Name:           name,
		RedirectURIs:   redirectURIs,
		GrantTypes:     grantTypes,
		IsConfidential: isConfidential,
	}

	output, err := clientUC.Create(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if format == "json" {
		outputClientJSON(output, writer)
	} else {
		outputClientText(output, writer)
	}

	logger.Info("client created successfully",
		slog.String("client_id", output.Client.ID.String()),
		slog.String("name", name),
		slog.Bool("is_confidential", isConfidential),
	)

	return nil
}

// outputClientText outputs the result in human-readable text format.
func outputClientText(output *oauthDomain.CreateClientOutput, writer io.Writer) {
	_, _ = fmt.Fprintln(writer, "\nClient created successfully!")
	_, _ = fmt.Fprintf(writer, "Client ID: %s\n", output.Client.ID.String())
	if output.PlainSecret != "" {
		_, _ = fmt.Fprintf(writer, "Secret: %s\n", output.PlainSecret)
		_, _ = fmt.Fprintln(writer, "\nIMPORTANT: The secret is shown only once. Store it securely.")
	}
}

// outputClientJSON outputs the result in JSON format for machine consumption.
func outputClientJSON(output *oauthDomain.CreateClientOutput, writer io.Writer) {
	result := map[string]string{
		"client_id": output.Client.ID.String(),
	}
	if output.PlainSecret != "" {
		result["secret"] = output.PlainSecret
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	tenantDomain "github.com/allisson/authd/internal/tenant/domain"
	tenantUseCase "github.com/allisson/authd/internal/tenant/usecase"
)

// RunCreateTenant provisions a new tenant with the given name and subdomain
// label. Outputs the tenant ID in either text or JSON format.
//
// Requirements: Database must be migrated and accessible.
func RunCreateTenant(
	ctx context.Context,
	tenantUC tenantUseCase.TenantUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name string,
	domain string,
	isActive bool,
	format string,
) error {
	logger.Info("creating new tenant",
		slog.String("name", name),
		slog.String("domain", domain),
	)

	input := &tenantDomain.CreateTenantInput{
		Name:     name,
		Domain:   domain,
		IsActive: isActive,
	}

	tenant, err := tenantUC.Create(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	if format == "json" {
		outputTenantJSON(tenant, writer)
	} else {
		outputTenantText(tenant, writer)
	}

	logger.Info("tenant created successfully",
		slog.String("tenant_id", tenant.ID.String()),
		slog.String("domain", tenant.Domain),
		slog.Bool("is_active", tenant.IsActive),
	)

	return nil
}

// outputTenantText outputs the result in human-readable text format.
func outputTenantText(tenant *tenantDomain.Tenant, writer io.Writer) {
	_, _ = fmt.Fprintln(writer, "\nTenant created successfully!")
	_, _ = fmt.Fprintf(writer, "Tenant ID: %s\n", tenant.ID.String())
	_, _ = fmt.Fprintf(writer, "Name: %s\n", tenant.Name)
	_, _ = fmt.Fprintf(writer, "Domain: %s\n", tenant.Domain)
	_, _ = fmt.Fprintf(writer, "Active: %t\n", tenant.IsActive)
}

// outputTenantJSON outputs the result in JSON format for machine consumption.
func outputTenantJSON(tenant *tenantDomain.Tenant, writer io.Writer) {
	result := map[string]interface{}{
		"tenant_id": tenant.ID.String(),
		"name":      tenant.Name,
		"domain":    tenant.Domain,
		"is_active": tenant.IsActive,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
}

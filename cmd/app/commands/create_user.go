package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	userDomain "github.com/allisson/authd/internal/user/domain"
	userUseCase "github.com/allisson/authd/internal/user/usecase"
)

// RunCreateUser provisions a new principal within a tenant. When the password
// is omitted the command prompts for it interactively. Outputs the user ID in
// either text or JSON format. The password is never echoed back or logged.
//
// Requirements: Database must be migrated and accessible.
func RunCreateUser(
	ctx context.Context,
	userUC userUseCase.UserUseCase,
	logger *slog.Logger,
	tenantStr string,
	username string,
	email string,
	password string,
	format string,
	io IOTuple,
) error {
	tenantID, err := uuid.Parse(tenantStr)
	if err != nil {
		return fmt.Errorf("invalid tenant ID: %s", tenantStr)
	}

	logger.Info("creating new user",
		slog.String("tenant_id", tenantID.String()),
		slog.String("username", username),
	)

	if password == "" {
		password, err = promptForPassword(io)
		if err != nil {
			return fmt.Errorf("failed to get password: %w", err)
		}
	}

	input := &userDomain.CreateUserInput{
		Username: username,
		Email:    email,
		Password: password,
		TenantID: tenantID,
	}

	user, err := userUC.Create(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if format == "json" {
		outputUserJSON(user, io.Writer)
	} else {
		outputUserText(user, io.Writer)
	}

	logger.Info("user created successfully",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username),
		slog.String("tenant_id", user.TenantID.String()),
	)

	return nil
}

// promptForPassword interactively prompts for a password and confirmation.
func promptForPassword(io IOTuple) (string, error) {
	reader := bufio.NewReader(io.Reader)
	writer := io.Writer

	_, _ = fmt.Fprint(writer, "Enter password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password = strings.TrimSpace(password)

	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	_, _ = fmt.Fprint(writer, "Confirm password: ")
	confirm, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	confirm = strings.TrimSpace(confirm)

	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}

	return password, nil
}

// outputUserText outputs the result in human-readable text format.
func outputUserText(user *userDomain.User, writer io.Writer) {
	_, _ = fmt.Fprintln(writer, "\nUser created successfully!")
	_, _ = fmt.Fprintf(writer, "User ID: %s\n", user.ID.String())
	_, _ = fmt.Fprintf(writer, "Username: %s\n", user.Username)
	_, _ = fmt.Fprintf(writer, "Tenant ID: %s\n", user.TenantID.String())
}

// outputUserJSON outputs the result in JSON format for machine consumption.
func outputUserJSON(user *userDomain.User, writer io.Writer) {
	result := map[string]string{
		"user_id":   user.ID.String(),
		"username":  user.Username,
		"tenant_id": user.TenantID.String(),
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
}

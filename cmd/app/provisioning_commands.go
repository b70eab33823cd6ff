package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/authd/cmd/app/commands"
	"github.com/allisson/authd/internal/app"
	"github.com/allisson/authd/internal/config"
)

func getProvisioningCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-tenant",
			Usage: "Provision a new tenant",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Human-readable tenant name",
				},
				&cli.StringFlag{
					Name:     "domain",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Subdomain label, unique across tenants (e.g., acme)",
				},
				&cli.BoolFlag{
					Name:    "active",
					Aliases: []string{"a"},
					Value:   true,
					Usage:   "Whether the tenant is resolvable immediately",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				tenantUseCase, err := container.TenantUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateTenant(
					ctx,
					tenantUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("domain"),
					cmd.Bool("active"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "create-user",
			Usage: "Provision a new principal within a tenant",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "tenant",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Tenant ID (UUID)",
				},
				&cli.StringFlag{
					Name:     "username",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Username, unique within the tenant",
				},
				&cli.StringFlag{
					Name:    "email",
					Aliases: []string{"e"},
					Usage:   "Email address (optional, backs the email claim)",
				},
				&cli.StringFlag{
					Name:    "password",
					Aliases: []string{"p"},
					Usage:   "Password (omit to be prompted)",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				userUseCase, err := container.UserUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateUser(
					ctx,
					userUseCase,
					container.Logger(),
					cmd.String("tenant"),
					cmd.String("username"),
					cmd.String("email"),
					cmd.String("password"),
					cmd.String("format"),
					commands.DefaultIO(),
				)
			},
		},
		{
			Name:  "create-client",
			Usage: "Register a new OAuth client within a tenant",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "tenant",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Tenant ID (UUID)",
				},
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Human-readable client name",
				},
				&cli.StringFlag{
					Name:    "redirect-uris",
					Aliases: []string{"r"},
					Usage:   "Comma-separated redirect URIs (required for authorization_code)",
				},
				&cli.StringFlag{
					Name:    "grant-types",
					Aliases: []string{"g"},
					Value:   "authorization_code,refresh_token",
					Usage:   "Comma-separated grant types the client may use",
				},
				&cli.BoolFlag{
					Name:    "confidential",
					Aliases: []string{"c"},
					Value:   true,
					Usage:   "Whether the client holds a secret and must authenticate",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				clientUseCase, err := container.ClientUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateClient(
					ctx,
					clientUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("tenant"),
					cmd.String("name"),
					cmd.String("redirect-uris"),
					cmd.String("grant-types"),
					cmd.Bool("confidential"),
					cmd.String("format"),
				)
			},
		},
	}
}

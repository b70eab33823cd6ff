package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/authd/cmd/app/commands"
	"github.com/allisson/authd/internal/app"
	"github.com/allisson/authd/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "rotate-signing-key",
			Usage: "Retire the current signing key and install a fresh one",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "tenant",
					Aliases: []string{"t"},
					Value:   "",
					Usage:   "Tenant ID (UUID) whose key to rotate; omit for the global key",
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

				keyManager, err := container.KeyManager()
				if err != nil {
					return err
				}

				return commands.RunRotateSigningKey(
					ctx,
					keyManager,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("tenant"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "purge-expired-keys",
			Usage: "Remove signing keys that left their validation window",
			Flags: []cli.Flag{
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

				keyManager, err := container.KeyManager()
				if err != nil {
					return err
				}

				return commands.RunPurgeExpiredKeys(
					ctx,
					keyManager,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
	}
}

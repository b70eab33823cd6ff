package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/authd/cmd/app/commands"
	"github.com/allisson/authd/internal/app"
	"github.com/allisson/authd/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "clean-expired-tokens",
			Usage: "Delete refresh tokens past their retention window",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "days",
					Aliases: []string{"d"},
					Value:   0,
					Usage:   "Override the retention window in days (0 uses the configured retention)",
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

				refreshTokenRepo, err := container.RefreshTokenRepository()
				if err != nil {
					return err
				}

				retention := cfg.RefreshTokenRetention
				if days := cmd.Int("days"); days > 0 {
					retention = time.Duration(days) * 24 * time.Hour
				}

				return commands.RunCleanExpiredTokens(
					ctx,
					refreshTokenRepo,
					container.Logger(),
					commands.DefaultIO().Writer,
					retention,
					cmd.String("format"),
				)
			},
		},
	}
}

package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/kagimori/cmd/app/commands"
	"github.com/allisson/kagimori/internal/app"
	"github.com/allisson/kagimori/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the KMS API and metrics servers",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Create the kv_store table of the postgres or mysql storage driver",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "migrations-dir",
					Value: "migrations",
					Usage: "Directory holding the postgresql/ and mysql/ migration sets",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(
					container.Logger(),
					cmd.String("migrations-dir"),
					cfg.SQLDriver(),
					cfg.DBConnectionString,
				)
			},
		},
	}
}

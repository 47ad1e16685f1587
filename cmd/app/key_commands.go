package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/kagimori/cmd/app/commands"
	"github.com/allisson/kagimori/internal/app"
	"github.com/allisson/kagimori/internal/config"
	cryptoService "github.com/allisson/kagimori/internal/crypto/service"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func idFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "id",
		Aliases:  []string{"i"},
		Required: true,
		Usage:    "Key identifier",
	}
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-kek",
			Usage: "Generate a Key Encryption Key and print its keyring entry",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "algorithm",
					Aliases: []string{"alg"},
					Value:   "aes-siv",
					Usage:   "KEK algorithm (aes-siv, chacha20-poly1305, xchacha20-poly1305)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Usage: "Wrap the key with this KMS key (e.g., gcpkms://..., base64key://...)",
				},
				&cli.StringFlag{
					Name:  "format",
					Value: "env",
					Usage: "Output format: 'env' (KEKS/ACTIVE_KEK_ID) or 'yaml' (keyring file entry)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateKek(
					ctx,
					cryptoService.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("algorithm"),
					cmd.String("kms-key-uri"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-key",
			Usage: "Create the next DEK version of an identifier",
			Flags: []cli.Flag{idFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				encryptor, err := container.Encryptor()
				if err != nil {
					return err
				}
				return commands.RunRotateKey(
					ctx,
					encryptor,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "key-status",
			Usage: "Show the latest DEK version of an identifier",
			Flags: []cli.Flag{idFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				encryptor, err := container.Encryptor()
				if err != nil {
					return err
				}
				return commands.RunKeyStatus(
					ctx,
					encryptor,
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
	}
}

package commands

import (
	"context"
	"fmt"

	"lastautoindex/internal/app"
	"lastautoindex/internal/platform/config"

	"github.com/urfave/cli/v3"
)

var Config = register(func(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "site configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "write a default configuration file",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := a.ConfigPath
					if path == "" {
						layout, err := a.Layout()
						if err != nil {
							return err
						}
						path = config.DefaultPath(layout.Base)
					}
					if err := config.WriteSample(path); err != nil {
						return err
					}
					fmt.Println("Wrote", path)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "print the resolved configuration, secrets masked",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.Bootstrap(ctx); err != nil {
						return err
					}
					out, err := config.Masked(a.Config)
					if err != nil {
						return err
					}
					fmt.Print(out)
					return nil
				},
			},
		},
	}
})

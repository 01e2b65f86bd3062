package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"lastautoindex/internal/app"

	"github.com/urfave/cli/v3"
)

var User = register(func(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "login account commands",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "create or replace a login account",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "password",
						Usage: "account password, read from stdin when empty",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return fmt.Errorf("usage: %s user add NAME", a.Name)
					}
					if err := a.Bootstrap(ctx); err != nil {
						return err
					}

					pass := cmd.String("password")
					if pass == "" {
						fmt.Print("Password: ")
						line, err := bufio.NewReader(os.Stdin).ReadString('\n')
						if err != nil && line == "" {
							return fmt.Errorf("failed to read password: %w", err)
						}
						pass = strings.TrimRight(line, "\r\n")
					}

					if err := a.AddUser(ctx, name, pass); err != nil {
						return err
					}
					fmt.Printf("User %s saved\n", name)
					return nil
				},
			},
		},
	}
})

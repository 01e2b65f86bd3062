package main

import (
	"context"
	"fmt"
	"os"

	"lastautoindex/internal/app"
	"lastautoindex/internal/app/commands"
	"lastautoindex/internal/build"
	"lastautoindex/internal/fault"

	"github.com/urfave/cli/v3"
)

func main() {
	a := app.New()
	bi := build.Info()

	rootCommand := &cli.Command{
		Name:    bi.Name,
		Version: bi.Version,
		Usage:   "LastAutoIndex serves a themed directory index and keeps an eye on new releases.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log",
				Aliases: []string{"l"},
				Usage:   "override log level (debug|info|warn|error|none), default from config",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file, falls back to <base>/config.yaml",
			},
			&cli.StringFlag{
				Name:  "install-dir",
				Usage: "install location, its parent is the base directory (default: executable's directory)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "temporarily override port in config",
			},
			&cli.BoolFlag{
				Name:    "migrate",
				Aliases: []string{"m"},
				Hidden:  true,
				Usage:   "skip migration guard (for the migrator)",
			},
			&cli.BoolFlag{
				Name:   "build-vars",
				Hidden: true,
				Usage:  "print build variables and exit",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("build-vars") {
				fmt.Println(bi.PrintJSON())
				os.Exit(0)
			}
			return a.Init(ctx, cmd)
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a.Log.Info("Ran with no arguments.")
			fmt.Printf("%s version %s\n", bi.Name, bi.Version)
			fmt.Printf("Use '%s help' to see available commands.\n", bi.Name)
			return nil
		},
		Commands: commands.All(a),
	}

	err := rootCommand.Run(context.Background(), os.Args)
	a.Close()
	if err == nil {
		return
	}
	for _, p := range a.Faults.Problems() {
		fmt.Fprintln(os.Stderr, "warning:", p)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	if fault.IsFatal(err) {
		os.Exit(2)
	}
	os.Exit(1)
}

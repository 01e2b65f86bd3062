package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"lastautoindex/internal/app"
	"lastautoindex/internal/platform/paths"

	"github.com/urfave/cli/v3"
)

var Paths = register(func(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "paths",
		Usage: "print the resolved directories and the URIs they are served at",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.Bootstrap(ctx); err != nil {
				return err
			}
			cfg := a.Config
			uris := paths.ResolveURIs(a.Dirs, paths.Request{
				Scheme:       "http",
				Host:         cfg.Host,
				Port:         cfg.Port,
				DocumentRoot: cfg.DocumentRoot,
			}, cfg.Theme)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "base\t%s\t%s\n", a.Dirs.Base, uris.Base)
			fmt.Fprintf(w, "system\t%s\t\n", a.Dirs.System)
			fmt.Fprintf(w, "public\t%s\t%s\n", a.Dirs.Public, uris.Public)
			fmt.Fprintf(w, "themes\t%s\t%s\n", a.Dirs.Themes, uris.Themes)
			fmt.Fprintf(w, "theme\t%s\t%s\n", a.Dirs.Theme, uris.Theme)
			fmt.Fprintf(w, "config\t%s\t\n", cfg.File)
			fmt.Fprintf(w, "storage\t%s\t\n", a.StorageDir)
			return w.Flush()
		},
	}
})

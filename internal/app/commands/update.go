package commands

import (
	"context"
	"fmt"

	"lastautoindex/internal/app"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
)

var (
	headline = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var Update = register(func(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "check for new releases",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "notify",
				Usage: "toggle update notifications",
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "check for updates now (throttled like the web page)",
			},
			&cli.StringFlag{
				Name:  "ignore",
				Usage: "stop reporting `TAG` and anything older",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("notify") {
				enabled, err := a.ToggleNotifications()
				if err != nil {
					return fmt.Errorf("failed to update notification setting: %w", err)
				}
				if enabled {
					fmt.Println("Update notifications are now enabled.")
				} else {
					fmt.Println("Update notifications are now disabled.")
				}
				return nil
			}

			if err := a.Bootstrap(ctx); err != nil {
				return err
			}

			ignore := cmd.String("ignore")
			if !cmd.Bool("check") && ignore == "" {
				return a.Notify(ctx)
			}
			if a.IsDev() {
				fmt.Println("Dev build detected, skipping update check.")
				return nil
			}

			res, err := a.CheckForUpdate(ctx, ignore)
			if err != nil {
				return fmt.Errorf("failed to check for updates: %w", err)
			}
			if ignore != "" {
				fmt.Printf("Ignoring %s and older releases.\n", ignore)
			}
			if !res.HasUpdate {
				fmt.Println("No updates available.")
				return nil
			}

			fmt.Println(headline.Render(fmt.Sprintf("Update available: %s (running %s)", res.Update.Tag, a.Version)))
			if res.Update.URL != "" {
				fmt.Println(muted.Render(res.Update.URL))
			}
			for _, r := range res.OldReleases {
				fmt.Println(muted.Render("  older: " + r.Tag))
			}
			return nil
		},
	}
})

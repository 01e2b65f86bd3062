package commands

import (
	"context"
	"fmt"

	"lastautoindex/internal/app"
	"lastautoindex/internal/platform/http/router"
	"lastautoindex/internal/platform/http/server"
	"lastautoindex/internal/ui"

	"github.com/Data-Corruption/stdx/xnet"
	"github.com/urfave/cli/v3"
)

var Service = register(func(a *app.App) *cli.Command {
	if !a.ServiceEnabled {
		return nil
	}
	return &cli.Command{
		Name:  "service",
		Usage: "service management commands",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if a.Name == "" || a.StorageDir == "" {
				return fmt.Errorf("app name or storage path not found")
			}
			serviceName := a.Name + ".service"

			fmt.Printf("Service Cheat Sheet\n\n")
			fmt.Printf("    Status:  systemctl --user status %s\n", serviceName)
			fmt.Printf("    Enable:  systemctl --user enable %s\n", serviceName)
			fmt.Printf("    Disable: systemctl --user disable %s\n\n", serviceName)
			fmt.Printf("    Start:   systemctl --user start %s\n", serviceName)
			fmt.Printf("    Stop:    systemctl --user stop %s\n", serviceName)
			fmt.Printf("    Restart: systemctl --user restart %s\n\n", serviceName)
			fmt.Printf("    Logs:    journalctl --user -u %s -n 200 --no-pager\n\n", serviceName)

			pids, err := app.Instances(a.RuntimeDir)
			if err != nil {
				return fmt.Errorf("failed to list instances: %w", err)
			}
			fmt.Printf("    Running instances: %v\n", pids)

			starts, err := a.ServiceStarts()
			if err != nil {
				return err
			}
			fmt.Printf("    Service starts:    %d\n", starts)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:        "run",
				Description: "Runs the index server in the foreground. Typically called by systemd.",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.Bootstrap(ctx); err != nil {
						return err
					}

					// wait for network (systemd user mode Wants/After is unreliable)
					if err := xnet.Wait(ctx, 0); err != nil {
						return fmt.Errorf("failed to wait for network: %w", err)
					}

					// reported, the index serves without sign in
					_ = a.CheckSiteDB(ctx)

					if _, err := a.RecordStart(); err != nil {
						a.Log.Warnf("failed to record service start: %v", err)
					}

					tmpl, err := ui.NewTemplates()
					if err != nil {
						return err
					}
					if err := server.New(a, router.New(a, tmpl)); err != nil {
						return fmt.Errorf("failed to create server: %w", err)
					}

					// blocks until server stops or shutdown signal received
					if err := a.Server.Listen(); err != nil {
						return fmt.Errorf("server stopped with error: %w", err)
					}
					fmt.Println("server stopped gracefully")
					return nil
				},
			},
		},
	}
})

package app

import (
	"context"
	"fmt"

	"lastautoindex/internal/platform/database"
	"lastautoindex/internal/update"
)

// CheckForUpdate runs the update check for the CLI. State that a browser would
// keep in cookies lives in the state database instead, so the CLI is throttled
// the same way. ignore, when not empty, silences that release first.
// Dev builds return an empty result without checking.
func (a *App) CheckForUpdate(ctx context.Context, ignore string) (update.Result, error) {
	if a.Version == "" {
		return update.Result{}, fmt.Errorf("app version is not set")
	}
	if a.IsDev() {
		return update.Result{}, nil
	}
	if a.DB == nil {
		return update.Result{}, fmt.Errorf("state database is not initialized")
	}

	res := a.Checker(database.NewStateStore(a.DB)).Run(ctx, ignore)

	if err := database.UpdatePreferences(a.DB, func(p *database.Preferences) error {
		p.UpdateAvailable = res.HasUpdate
		if res.Update != nil {
			p.LatestSeen = res.Update.Tag
		}
		return nil
	}); err != nil {
		return res, fmt.Errorf("failed to store update state: %w", err)
	}
	return res, nil
}

// Notify prints a one line notice when an update is available and
// notifications are enabled. Failures are only logged, the user might be offline.
func (a *App) Notify(ctx context.Context) error {
	prefs, err := database.ViewPreferences(a.DB)
	if err != nil {
		return fmt.Errorf("failed to view preferences: %w", err)
	}
	if !prefs.UpdateNotifications {
		return nil
	}

	res, err := a.CheckForUpdate(ctx, "")
	if err != nil {
		a.Log.Errorf("Update check failed: %v", err)
		return nil
	}
	if res.HasUpdate {
		fmt.Printf("Update available (%s)! Run '%s update --check' for details.\n", res.Update.Tag, a.Name)
	}
	return nil
}

// ToggleNotifications flips the notification preference and returns the new value.
func (a *App) ToggleNotifications() (bool, error) {
	var enabled bool
	err := database.UpdatePreferences(a.DB, func(p *database.Preferences) error {
		p.UpdateNotifications = !p.UpdateNotifications
		enabled = p.UpdateNotifications
		return nil
	})
	return enabled, err
}

// RecordStart bumps the service start counter and returns the new value.
func (a *App) RecordStart() (int, error) {
	var n int
	err := database.UpdatePreferences(a.DB, func(p *database.Preferences) error {
		p.StartCounter++
		n = p.StartCounter
		return nil
	})
	return n, err
}

// ServiceStarts returns how often the service has been started.
func (a *App) ServiceStarts() (int, error) {
	prefs, err := database.ViewPreferences(a.DB)
	if err != nil {
		return 0, fmt.Errorf("failed to view preferences: %w", err)
	}
	return prefs.StartCounter, nil
}

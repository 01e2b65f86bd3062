package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lastautoindex/internal/platform/login"
	"lastautoindex/internal/platform/sitedb"
)

const pingTimeout = 5 * time.Second

var ErrEmptyCredentials = errors.New("user name and password must not be empty")

// CheckSiteDB pings the site database when login is enabled. A failure is a
// standard error: the index still serves, only sign in is affected.
func (a *App) CheckSiteDB(ctx context.Context) error {
	if a.SiteDB == nil || !a.SiteDB.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := a.SiteDB.Ping(ctx); err != nil {
		err = fmt.Errorf("site database is unreachable: %w", err)
		a.Faults.Standard(err)
		return err
	}
	a.debugf("Site database reachable")
	return nil
}

// AddUser creates or replaces a login account. Bootstrap must have succeeded
// and login must be enabled.
func (a *App) AddUser(ctx context.Context, name, pass string) error {
	if a.Config == nil {
		return ErrNotBootstrapped
	}
	if a.SiteDB == nil || !a.SiteDB.Enabled() {
		return fmt.Errorf("%w: set use_login in %s", login.ErrDisabled, a.Config.File)
	}
	name = strings.TrimSpace(name)
	if name == "" || pass == "" {
		return ErrEmptyCredentials
	}
	hash, err := login.HashPassword(pass)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := a.SiteDB.PutUser(ctx, sitedb.User{Name: name, PasswordHash: hash}); err != nil {
		return fmt.Errorf("failed to store user %q: %w", name, err)
	}
	a.debugf("Stored user %s", name)
	return nil
}

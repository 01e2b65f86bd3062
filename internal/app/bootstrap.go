package app

import (
	"net/http"

	"lastautoindex/internal/platform/paths"
	"lastautoindex/internal/update"
)

// Page is everything the rendering layer gets for one request.
type Page struct {
	Name, Version string
	Theme         string
	Dirs          paths.Dirs
	URIs          paths.URIs
	LoginEnabled  bool
	User          string // signed in user, empty when anonymous
	Update        update.Result
}

// Page runs the per-request half of the bootstrap: URI derivation and the
// cookie throttled update check. Bootstrap must have succeeded.
func (a *App) Page(w http.ResponseWriter, r *http.Request) (*Page, error) {
	if a.Config == nil {
		return nil, ErrNotBootstrapped
	}

	req := paths.RequestFromHTTP(r, a.Config.DocumentRoot)
	p := &Page{
		Name:         a.Name,
		Version:      a.Version,
		Theme:        paths.ThemeName(a.Config.Theme),
		Dirs:         a.Dirs,
		URIs:         paths.ResolveURIs(a.Dirs, req, a.Config.Theme),
		LoginEnabled: a.Login.Enabled(),
	}
	if p.LoginEnabled {
		p.User, _ = a.Login.CurrentUser(r)
	}

	if a.IsDev() {
		return p, nil
	}
	jar := a.Cookies.Jar(w, r)
	p.Update = a.Checker(jar).Run(r.Context(), r.URL.Query().Get(update.IgnoreCookie))
	return p, nil
}

// Checker returns an update checker over store, configured from the site config.
func (a *App) Checker(store update.Store) *update.Checker {
	c := &update.Checker{
		Store:   store,
		Source:  a.ReleaseSource,
		Repo:    a.Repo,
		Version: a.Version,
		Log:     a.Log,
		Metrics: a.Metrics,
	}
	if a.Config != nil {
		c.Policy.FlaggedRecheck = a.Config.UpdateRecheck
		c.Timeout = a.Config.UpdateTimeout
	}
	return c
}

// Package app implements the application, following the dependency injection pattern.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"

	"lastautoindex/internal/build"
	"lastautoindex/internal/fault"
	"lastautoindex/internal/platform/config"
	"lastautoindex/internal/platform/cookie"
	"lastautoindex/internal/platform/database"
	"lastautoindex/internal/platform/login"
	"lastautoindex/internal/platform/paths"
	"lastautoindex/internal/platform/release"
	"lastautoindex/internal/platform/sitedb"
	"lastautoindex/internal/update"
	"lastautoindex/pkg/x"

	"github.com/Data-Corruption/lmdb-go/wrap"
	"github.com/Data-Corruption/stdx/xhttp"
	"github.com/Data-Corruption/stdx/xlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/mod/semver"
)

type CleanupFunc func() error

// SiteStore is what login needs from the site database.
type SiteStore interface {
	sitedb.Database
	login.Users
}

// ConnectFunc opens the site database when login is enabled.
type ConnectFunc func(ctx context.Context, p config.Database) (SiteStore, error)

func connectMongo(ctx context.Context, p config.Database) (SiteStore, error) {
	db, err := sitedb.Connect(ctx, p)
	if err != nil {
		return nil, err
	}
	return db, nil
}

/*
App represents the application, following the dependency injection pattern.

It provides:
  - build-time variables
  - process-wide services, computed once by Init and Bootstrap
  - lifecycle management
*/
type App struct {
	// build-time variables
	Name, Version, ContactURL string
	Repo                      release.Repo
	ServiceEnabled            bool

	// flags, set by Init from the command line
	ConfigPath   string // --config, empty means <base>/config.yaml
	InstallDir   string // --install-dir, empty means the executable's directory
	PortOverride int    // --port
	logOverride  bool

	// injected services, etc.

	DB            *wrap.DB // process-local state (LMDB)
	Log           *xlog.Logger
	Faults        *fault.Reporter
	Server        *xhttp.Server
	BaseURL       string // listen URL, e.g. "http://localhost:8080"
	UserAgent     string // e.g. "Mozilla/5.0 (compatible; <Name>/1.2; +<ContactURL>)"
	StorageDir    string // (e.g., ~/.<Name>)
	RuntimeDir    string // (e.g., XDG_RUNTIME_DIR/<Name>, fallback to /tmp/<Name>-USER)
	TempDir       string // (e.g., StorageDir/tmp)
	ReleaseSource release.ReleaseSource

	// set by Bootstrap
	Config   *config.Config
	Dirs     paths.Dirs
	SiteDB   sitedb.Database
	Login    *login.Login
	Cookies  *cookie.Codec
	Registry *prometheus.Registry
	Metrics  *update.Metrics

	ConnectDB ConnectFunc // sitedb.Connect when nil

	// lifecycle management
	cleanup     []CleanupFunc
	cleanupOnce sync.Once
	bootOnce    sync.Once
	bootErr     error
	// Inside commands, you can use <-a.Context.Done() to check for cancellation.
	Context context.Context
}

// New returns an App filled with build-time variables.
func New() *App {
	bi := build.Info()
	return &App{
		Name:           bi.Name,
		Version:        bi.Version,
		ContactURL:     bi.ContactURL,
		Repo:           release.Repo{Owner: bi.RepoOwner, Name: bi.RepoName},
		ServiceEnabled: bi.ServiceEnabled,
	}
}

// Init prepares storage, the logger and the state database. It runs for every
// command, so it must not depend on the site configuration.
func (a *App) Init(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	a.ConfigPath = cmd.String("config")
	a.InstallDir = cmd.String("install-dir")
	a.PortOverride = int(cmd.Int("port"))

	// paths
	var err error
	if a.StorageDir, err = getStoragePath(a.Name); err != nil {
		return ctx, err
	}
	if a.RuntimeDir, err = getRuntimePath(a.Name); err != nil {
		return ctx, err
	}
	a.TempDir = filepath.Join(a.StorageDir, "tmp")
	if err := os.MkdirAll(a.TempDir, 0755); err != nil {
		return ctx, fmt.Errorf("failed to create temp dir: %w", err)
	}

	// migration guard before touching anything
	if !cmd.Bool("migrate") {
		if err := a.mguard(); err != nil {
			return ctx, fmt.Errorf("failed to setup migration guard: %w", err)
		}
	} else {
		fmt.Printf("%s version %s\n", a.Name, a.Version)
	}

	// logger
	a.logOverride = cmd.String("log") != ""
	a.Log, err = xlog.New(filepath.Join(a.StorageDir, "logs"), x.Ternary(a.logOverride, cmd.String("log"), "none"))
	if err != nil {
		return ctx, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.AddCleanup(a.Log.Close)
	a.Faults = fault.NewReporter(a.Log)

	a.Log.Debugf("Starting %s, version: %s, storage path: %s, runtime path: %s",
		a.Name, a.Version, a.StorageDir, a.RuntimeDir)

	// state database
	if a.DB, err = database.New(filepath.Join(a.StorageDir, "db"), a.Log); err != nil {
		return ctx, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.AddCleanup(func() error {
		a.DB.Close()
		return nil
	})
	a.Log.Debug("Database initialized")

	a.UserAgent = userAgent(a.Name, a.Version, a.ContactURL)

	ctx = xlog.IntoContext(ctx, a.Log)
	a.Context = ctx
	return ctx, nil
}

// Bootstrap loads and validates the site configuration, resolves directories
// and wires the site database and login. It runs at most once. Any error it
// returns is fatal (see fault.IsFatal).
func (a *App) Bootstrap(ctx context.Context) error {
	a.bootOnce.Do(func() { a.bootErr = a.bootstrap(ctx) })
	return a.bootErr
}

func (a *App) bootstrap(ctx context.Context) error {
	if a.Faults == nil {
		a.Faults = fault.NewReporter(a.Log)
	}

	layout, err := a.Layout()
	if err != nil {
		return a.Faults.Fatal(err)
	}

	// configuration
	loader := &config.Loader{DefaultPath: config.DefaultPath(layout.Base), Reporter: a.Faults}
	cfg, err := loader.Load(a.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg, a.Faults); err != nil {
		return err
	}
	if cfg.DocumentRoot == "" {
		cfg.DocumentRoot = layout.Base
	}
	if a.PortOverride != 0 {
		cfg.Port = a.PortOverride
	}
	a.Config = cfg
	a.Dirs = paths.DirsFromBase(layout.Base, cfg.Theme)
	a.debugf("Loaded configuration from %s, base directory %s", cfg.File, a.Dirs.Base)

	if a.Log != nil && !a.logOverride && cfg.LogLevel != "" {
		if err := a.Log.SetLevel(cfg.LogLevel); err != nil {
			a.Faults.Standard(fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err))
		}
	}

	// database and login
	if cfg.UseLogin {
		connect := a.ConnectDB
		if connect == nil {
			connect = connectMongo
		}
		store, err := connect(ctx, cfg.Database)
		if err != nil {
			return a.Faults.Fatal(fmt.Errorf("failed to connect to site database: %w", err))
		}
		a.SiteDB = store
		a.Login = login.New(store, []byte(cfg.CookieKey), cfg.SecureCookies)
		a.AddCleanup(func() error { return store.Close(context.Background()) })
	} else {
		a.SiteDB = sitedb.Disabled{}
		a.Login = login.Disabled()
	}

	a.Cookies = cookie.NewCodec([]byte(cfg.CookieKey), cfg.SecureCookies)

	if a.ReleaseSource == nil {
		a.ReleaseSource = release.NewGitHubReleaseSource(cfg.ReleaseFeedURL, a.UserAgent)
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = update.NewMetrics(a.Registry)

	a.BaseURL = listenURL(cfg.Host, cfg.Port)
	return nil
}

// Layout resolves the directory layout from the install location, without a theme.
// It works before Bootstrap.
func (a *App) Layout() (paths.Dirs, error) {
	installDir := a.InstallDir
	if installDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return paths.Dirs{}, fmt.Errorf("failed to locate executable: %w", err)
		}
		installDir = filepath.Dir(exe)
	}
	return paths.ResolveDirs(installDir, "")
}

// IsDev reports whether the running binary is a development build.
func (a *App) IsDev() bool {
	return build.BuildInfo{Version: a.Version}.IsDev()
}

func (a *App) Close() {
	a.cleanupOnce.Do(func() {
		// call cleanup funcs in reverse order
		for i := len(a.cleanup) - 1; i >= 0; i-- {
			if err := a.cleanup[i](); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to clean up: %v\n", err)
			}
		}
	})
}

func (a *App) AddCleanup(f func() error) {
	a.cleanup = append(a.cleanup, f)
}

func (a *App) debugf(format string, args ...any) {
	if a.Log != nil {
		a.Log.Debugf(format, args...)
	}
}

var ErrNotBootstrapped = errors.New("app is not bootstrapped")

func userAgent(name, version, contactURL string) string {
	mmVer := strings.TrimPrefix(semver.MajorMinor(version), "v")
	if mmVer == "" {
		mmVer = "dev"
	}
	return fmt.Sprintf("Mozilla/5.0 (compatible; %s/%s; +%s)", name, mmVer, contactURL)
}

// getStoragePath calculates the storage path for the application (~/.appName).
func getStoragePath(appName string) (string, error) {
	home, err := x.GetUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "."+appName), nil
}

// getRuntimePath calculates the runtime path for the application.
// Prefers XDG_RUNTIME_DIR, falls back to /tmp/appName-USER.
func getRuntimePath(appName string) (string, error) {
	// prefer XDG_RUNTIME_DIR (typically /run/user/UID)
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, appName), nil
	}

	// include username to avoid conflicts in shared /tmp
	username := os.Getenv("USER")
	if username == "" {
		u, err := user.Current()
		if err != nil {
			return "", fmt.Errorf("cannot determine current user: %w", err)
		}
		username = u.Username
	}

	return filepath.Join("/tmp", appName+"-"+username), nil
}

// listenURL is the address the service prints once listening. 80 and 443 are
// left out of the URL.
func listenURL(host string, port int) string {
	host = x.Ternary(host != "", host, "localhost")
	hidePort := port == 80 || port == 443
	scheme := x.Ternary(port == 443, "https", "http")
	return fmt.Sprintf("%s://%s%s", scheme, host, x.Ternary(hidePort, "", fmt.Sprintf(":%d", port)))
}

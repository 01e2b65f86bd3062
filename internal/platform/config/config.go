// Package config loads and validates the site configuration file.
//
// The file lives at <base>/config.yaml unless an explicit path is given.
// Any format viper understands (yaml, json, toml) is accepted, and every
// key can be overridden with an LAI_<KEY> environment variable.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lastautoindex/internal/fault"

	"github.com/spf13/viper"
)

const (
	FileName  = "config.yaml"
	EnvPrefix = "LAI"
)

// Option names.
const (
	KeyUseLogin       = "use_login"
	KeyTheme          = "theme"
	KeyDatabaseHost   = "database_host"
	KeyDatabaseUser   = "database_user"
	KeyDatabasePass   = "database_pass"
	KeyDatabaseName   = "database_name"
	KeyDocumentRoot   = "document_root"
	KeyCookieKey      = "cookie_key"
	KeySecureCookies  = "secure_cookies"
	KeyHost           = "host"
	KeyPort           = "port"
	KeyLogLevel       = "log_level"
	KeyReleaseFeedURL = "release_feed_url"
	KeyUpdateRecheck  = "update_recheck"
	KeyUpdateTimeout  = "update_timeout"
)

// RequiredKeys must be present in every configuration.
var RequiredKeys = []string{KeyUseLogin}

// databaseKeys are required, and must be non-empty, when use_login is true.
var databaseKeys = []string{KeyDatabaseHost, KeyDatabaseUser, KeyDatabasePass, KeyDatabaseName}

var (
	ErrNoConfig       = errors.New("no configuration file exists")
	ErrMissingOptions = errors.New("configuration file is broken (options are missing)")
	ErrDatabaseVars   = errors.New("database var(s) are not set")
)

// Database holds the connection parameters used when login is enabled.
type Database struct {
	Host string
	User string
	Pass string
	Name string
}

// Config is the loaded site configuration.
type Config struct {
	File string // canonical path of the file that was loaded

	UseLogin bool
	Theme    string // raw value, may be empty
	Database Database

	DocumentRoot   string
	CookieKey      string
	SecureCookies  bool
	Host           string
	Port           int
	LogLevel       string
	ReleaseFeedURL string
	UpdateRecheck  time.Duration
	UpdateTimeout  time.Duration

	present map[string]bool
}

// Has reports whether the option was present in the file or environment.
func (c *Config) Has(key string) bool {
	return c.present[key]
}

// DefaultPath returns the default config location for an install rooted at baseDir.
func DefaultPath(baseDir string) string {
	return filepath.Join(baseDir, FileName)
}

// Loader reads configuration files, reporting problems through a fault.Reporter.
type Loader struct {
	DefaultPath string
	Reporter    *fault.Reporter
}

// Load reads the configuration at path. A path that isn't an existing file is a
// standard error and the default path is tried instead. A missing default file is fatal.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		if isFile(path) {
			return l.read(path)
		}
		l.Reporter.Standard(fmt.Errorf("configuration file %q doesn't exist", path))
	}
	if !isFile(l.DefaultPath) {
		return nil, l.Reporter.Fatal(fmt.Errorf("%w (looked for %s)", ErrNoConfig, l.DefaultPath))
	}
	return l.read(l.DefaultPath)
}

func (l *Loader) read(path string) (*Config, error) {
	canonical, err := canonicalPath(path)
	if err != nil {
		return nil, l.Reporter.Fatal(fmt.Errorf("failed to resolve config path %s: %w", path, err))
	}

	v := viper.New()
	v.SetConfigFile(canonical)
	if filepath.Ext(canonical) == "" {
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, l.Reporter.Fatal(fmt.Errorf("failed to read config file %s: %w", canonical, err))
	}

	cfg := fromViper(v)
	cfg.File = canonical
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeySecureCookies, false)
	v.SetDefault(KeyHost, "localhost")
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyReleaseFeedURL, "https://api.github.com")
	v.SetDefault(KeyUpdateRecheck, 10*time.Minute)
	v.SetDefault(KeyUpdateTimeout, 10*time.Second)
}

func fromViper(v *viper.Viper) *Config {
	present := make(map[string]bool)
	for _, key := range append(append([]string{KeyUseLogin, KeyTheme}, databaseKeys...), KeyDocumentRoot, KeyCookieKey) {
		present[key] = v.IsSet(key)
	}
	return &Config{
		UseLogin: v.GetBool(KeyUseLogin),
		Theme:    strings.TrimSpace(v.GetString(KeyTheme)),
		Database: Database{
			Host: v.GetString(KeyDatabaseHost),
			User: v.GetString(KeyDatabaseUser),
			Pass: v.GetString(KeyDatabasePass),
			Name: v.GetString(KeyDatabaseName),
		},
		DocumentRoot:   v.GetString(KeyDocumentRoot),
		CookieKey:      v.GetString(KeyCookieKey),
		SecureCookies:  v.GetBool(KeySecureCookies),
		Host:           v.GetString(KeyHost),
		Port:           v.GetInt(KeyPort),
		LogLevel:       v.GetString(KeyLogLevel),
		ReleaseFeedURL: v.GetString(KeyReleaseFeedURL),
		UpdateRecheck:  v.GetDuration(KeyUpdateRecheck),
		UpdateTimeout:  v.GetDuration(KeyUpdateTimeout),
		present:        present,
	}
}

// Validate checks the configuration for missing options. Every missing required
// option is reported as a standard error before the fatal one, so the user sees
// the complete list. Database options are checked here too when login is on.
func Validate(cfg *Config, rep *fault.Reporter) error {
	missing := 0
	for _, key := range RequiredKeys {
		if !cfg.Has(key) {
			rep.Standard(fmt.Errorf("configuration option %q doesn't exist", key))
			missing++
		}
	}
	if missing > 0 {
		return rep.Fatal(ErrMissingOptions)
	}

	if cfg.UseLogin {
		var unset []string
		values := map[string]string{
			KeyDatabaseHost: cfg.Database.Host,
			KeyDatabaseUser: cfg.Database.User,
			KeyDatabasePass: cfg.Database.Pass,
			KeyDatabaseName: cfg.Database.Name,
		}
		for _, key := range databaseKeys {
			if !cfg.Has(key) || values[key] == "" {
				unset = append(unset, key)
			}
		}
		if len(unset) > 0 {
			return rep.Fatal(fmt.Errorf("%w: %s", ErrDatabaseVars, strings.Join(unset, ", ")))
		}
	}
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

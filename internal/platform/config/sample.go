package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const sampleHeader = `# LastAutoIndex configuration.
# Every option can be overridden with an LAI_<OPTION> environment variable.
# database_* options are required when use_login is true.
`

// sample mirrors the file layout, it is only used for writing.
type sample struct {
	UseLogin       bool   `yaml:"use_login"`
	Theme          string `yaml:"theme"`
	DatabaseHost   string `yaml:"database_host"`
	DatabaseUser   string `yaml:"database_user"`
	DatabasePass   string `yaml:"database_pass"`
	DatabaseName   string `yaml:"database_name"`
	DocumentRoot   string `yaml:"document_root,omitempty"`
	CookieKey      string `yaml:"cookie_key"`
	SecureCookies  bool   `yaml:"secure_cookies"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	LogLevel       string `yaml:"log_level"`
	ReleaseFeedURL string `yaml:"release_feed_url"`
	UpdateRecheck  string `yaml:"update_recheck"`
	UpdateTimeout  string `yaml:"update_timeout"`
}

func toSample(c *Config) sample {
	return sample{
		UseLogin:       c.UseLogin,
		Theme:          c.Theme,
		DatabaseHost:   c.Database.Host,
		DatabaseUser:   c.Database.User,
		DatabasePass:   c.Database.Pass,
		DatabaseName:   c.Database.Name,
		DocumentRoot:   c.DocumentRoot,
		CookieKey:      c.CookieKey,
		SecureCookies:  c.SecureCookies,
		Host:           c.Host,
		Port:           c.Port,
		LogLevel:       c.LogLevel,
		ReleaseFeedURL: c.ReleaseFeedURL,
		UpdateRecheck:  c.UpdateRecheck.String(),
		UpdateTimeout:  c.UpdateTimeout.String(),
	}
}

// Defaults returns the configuration written by WriteSample.
func Defaults() *Config {
	return &Config{
		UseLogin:       false,
		Theme:          "default",
		Host:           "localhost",
		Port:           8080,
		LogLevel:       "warn",
		ReleaseFeedURL: "https://api.github.com",
		UpdateRecheck:  10 * time.Minute,
		UpdateTimeout:  10 * time.Second,
	}
}

// WriteSample writes a default configuration file to path. It refuses to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	data, err := yaml.Marshal(toSample(Defaults()))
	if err != nil {
		return fmt.Errorf("failed to marshal sample config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return os.WriteFile(path, append([]byte(sampleHeader), data...), 0o600)
}

// Masked renders the configuration as YAML with the database password hidden.
func Masked(c *Config) (string, error) {
	s := toSample(c)
	if s.DatabasePass != "" {
		s.DatabasePass = "********"
	}
	if s.CookieKey != "" {
		s.CookieKey = "********"
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("# %s\n%s", c.File, data), nil
}

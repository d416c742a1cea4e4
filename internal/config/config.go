// Package config handles the XDG configuration directory, its files, and
// the optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "moviecat"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// ConfigFile is the optional settings filename.
	ConfigFile = "config.yaml"
)

// Backend names.
const (
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `yaml:"-"`

	// Debug enables debug logging.
	Debug bool `yaml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `yaml:"-"`

	Backend   string          `yaml:"backend"`
	Firestore FirestoreConfig `yaml:"firestore"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Reindex   ReindexConfig   `yaml:"reindex"`
}

// FirestoreConfig locates the hosted movie collection.
type FirestoreConfig struct {
	Project    string `yaml:"project"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`

	// Endpoint overrides the API root, e.g. http://localhost:8080/ for the
	// emulator. Requests to a custom endpoint are unauthenticated.
	Endpoint string `yaml:"endpoint"`
}

// SQLiteConfig locates the local database file.
type SQLiteConfig struct {
	// Path is relative to the config directory unless absolute.
	Path string `yaml:"path"`
}

// ReindexConfig tunes position writes.
type ReindexConfig struct {
	// Parallelism is the number of concurrent position writes.
	Parallelism int `yaml:"parallelism"`

	// VersionCheck conditions writes on the version read during the scan.
	VersionCheck bool `yaml:"version_check"`
}

// New creates a new Config with default settings and the default or
// specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/moviecat or $HOME/.config/moviecat.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:     dir,
		Backend: BackendFirestore,
		Firestore: FirestoreConfig{
			Database:   "(default)",
			Collection: "movies",
		},
		SQLite: SQLiteConfig{Path: "movies.db"},
		Reindex: ReindexConfig{
			Parallelism:  1,
			VersionCheck: true,
		},
	}, nil
}

// Load creates a Config like New, then applies config.yaml (if present)
// and environment overrides, and validates the result.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cfg.Path())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MOVIECAT_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("MOVIECAT_PROJECT"); v != "" {
		c.Firestore.Project = v
	}
	if host := os.Getenv("FIRESTORE_EMULATOR_HOST"); host != "" {
		c.Firestore.Endpoint = "http://" + strings.TrimSuffix(host, "/") + "/"
	}
}

// Validate checks settings that would otherwise fail later with a less
// useful error.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendFirestore:
		if c.Firestore.Project == "" {
			return fmt.Errorf("firestore project not set (set firestore.project in %s or MOVIECAT_PROJECT)", ConfigFile)
		}
		if c.Firestore.Collection == "" {
			return fmt.Errorf("firestore collection must not be empty")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path must not be empty")
		}
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
	if c.Reindex.Parallelism < 1 {
		return fmt.Errorf("invalid reindex parallelism: %d", c.Reindex.Parallelism)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Path returns the path to config.yaml.
func (c *Config) Path() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// SQLitePath returns the resolved SQLite database path.
func (c *Config) SQLitePath() string {
	if filepath.IsAbs(c.SQLite.Path) {
		return c.SQLite.Path
	}
	return filepath.Join(c.Dir, c.SQLite.Path)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// NeedsOAuth reports whether the configured backend authenticates with the
// stored OAuth token.
func (c *Config) NeedsOAuth() bool {
	return c.Backend == BackendFirestore && c.Firestore.Endpoint == ""
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

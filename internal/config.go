package internal

import (
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/vrindex/internal/index"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Index   IndexConfig       `yaml:"index"`
	Sources SourcesConfig     `yaml:"sources"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Queue   QueueConfig       `yaml:"queue"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Sources.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Queue.Validate(); err != nil {
		return err
	}
	// A reload re-adds every name of the changed file, which the error
	// policy refuses.
	if c.Sources.Watch && strings.EqualFold(c.Index.Overwrite, index.Error.String()) {
		return fmt.Errorf("index: overwrite policy %q cannot be combined with sources.watch", c.Index.Overwrite)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// IndexConfig shapes the in-memory index.
type IndexConfig struct {
	Name      string `yaml:"name"`
	Overwrite string `yaml:"overwrite"`
	LinkDepth int    `yaml:"link_depth"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.LinkDepth, validation.Min(1)),
	); err != nil {
		return err
	}
	if _, err := index.ParsePolicy(c.Overwrite); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}

// Options turns the section into index options.
func (c *IndexConfig) Options() []index.Option {
	p, _ := index.ParsePolicy(c.Overwrite)
	opts := []index.Option{index.WithName(c.Name), index.WithOverwrite(p)}
	if c.LinkDepth > 0 {
		opts = append(opts, index.WithLinkDepth(c.LinkDepth))
	}
	return opts
}

// SourcesConfig holds the directory of XML sources loaded at startup.
type SourcesConfig struct {
	Path      string `yaml:"path"`
	Watch     bool   `yaml:"watch"`
	Namespace string `yaml:"namespace"`
}

// Validate validates the sources configuration.
func (c *SourcesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Namespace, validation.Required, validation.By(absoluteName)),
	)
}

func absoluteName(v any) error {
	s, _ := v.(string)
	if s != "" && s[0] != '/' {
		return fmt.Errorf("must start with /")
	}
	return nil
}

// SQLiteConfig holds SQLite journal configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// QueueConfig bounds the snapshot history.
//
// Keep is the number of journaled snapshots retained (0 keeps all). Restore is
// how many of the newest are loaded back into the queue at startup.
type QueueConfig struct {
	Keep    int `yaml:"keep"`
	Restore int `yaml:"restore"`
}

// Validate validates the queue configuration.
func (c *QueueConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Keep, validation.Min(0)),
		validation.Field(&c.Restore, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Index: IndexConfig{
			Name:      index.DefaultName,
			Overwrite: index.Overwrite.String(),
			LinkDepth: index.DefaultLinkDepth,
		},
		Sources: SourcesConfig{
			Path:      "./sources",
			Watch:     true,
			Namespace: index.Root,
		},
		SQLite: SQLiteConfig{
			Path: "./vrindex.db",
		},
		Queue: QueueConfig{
			Keep:    1000,
			Restore: 100,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

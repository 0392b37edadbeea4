package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/berkana/internal/autosave"
	"github.com/starford/berkana/internal/catalog"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Data     DataConfig        `yaml:"data"`
	Catalog  CatalogConfig     `yaml:"catalog"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Autosave AutosaveConfig    `yaml:"autosave"`
	Events   EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Data, &c.Catalog, &c.SQLite, &c.Auth, &c.Autosave, &c.Events,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
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

// DataConfig holds the path to the data directory that contains notes/
// and diet/.
type DataConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NotesPath returns the notes root.
func (c *DataConfig) NotesPath() string { return filepath.Join(c.Path, "notes") }

// DietPath returns the diet root.
func (c *DataConfig) DietPath() string { return filepath.Join(c.Path, "diet") }

// CatalogConfig holds food catalog configuration.
type CatalogConfig struct {
	Path        string `yaml:"path"`
	SearchLimit int    `yaml:"search_limit"`
	MinQuery    int    `yaml:"min_query"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.SearchLimit, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&c.MinQuery, validation.Required, validation.Min(1)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
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

// AutosaveConfig holds how long deferred writes wait for further edits.
type AutosaveConfig struct {
	NoteDelay   time.Duration `yaml:"note_delay"`
	RenameDelay time.Duration `yaml:"rename_delay"`
	DayDelay    time.Duration `yaml:"day_delay"`
}

// Validate validates the autosave configuration.
func (c *AutosaveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.NoteDelay, validation.Required, validation.Max(time.Minute)),
		validation.Field(&c.RenameDelay, validation.Required, validation.Max(time.Minute)),
		validation.Field(&c.DayDelay, validation.Required, validation.Max(time.Minute)),
	)
}

// Delays converts the configuration for the autosaver.
func (c *AutosaveConfig) Delays() autosave.Delays {
	return autosave.Delays{Note: c.NoteDelay, Rename: c.RenameDelay, Day: c.DayDelay}
}

// EventsConfig holds change-feed tuning.
type EventsConfig struct {
	GraphThrottle time.Duration `yaml:"graph_throttle"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
	WatchSettle   time.Duration `yaml:"watch_settle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.GraphThrottle, validation.Required),
		validation.Field(&c.WatchSettle, validation.Required),
		validation.Field(&c.Heartbeat, validation.Min(time.Duration(0))),
	)
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
		Data: DataConfig{
			Path: "./data",
		},
		Catalog: CatalogConfig{
			Path:        "./foods.csv",
			SearchLimit: catalog.DefaultSearchLimit,
			MinQuery:    catalog.DefaultMinQuery,
		},
		SQLite: SQLiteConfig{
			Path: "./berkana.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Autosave: AutosaveConfig{
			NoteDelay:   autosave.DefaultNoteDelay,
			RenameDelay: autosave.DefaultRenameDelay,
			DayDelay:    autosave.DefaultDayDelay,
		},
		Events: EventsConfig{
			GraphThrottle: 2 * time.Second,
			Heartbeat:     25 * time.Second,
			WatchSettle:   150 * time.Millisecond,
		},
	}
}

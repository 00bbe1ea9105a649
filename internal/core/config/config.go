// Package config handles configuration loading and validation for lens.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/core/styles"
	"gopkg.in/yaml.v3"
)

// StoreKind selects the history store backend.
type StoreKind string

// Supported history stores.
const (
	StoreJSONFile StoreKind = "jsonfile"
	StoreSQLite   StoreKind = "sqlite"
	StoreMemory   StoreKind = "memory"
)

// IsValid reports whether k names a supported store.
func (k StoreKind) IsValid() bool {
	switch k {
	case StoreJSONFile, StoreSQLite, StoreMemory:
		return true
	default:
		return false
	}
}

// HistoryFileName is the jsonfile store's file inside the data directory.
const HistoryFileName = "history.json"

// Config holds the application configuration.
type Config struct {
	Backend   BackendConfig       `yaml:"backend"`
	History   HistoryConfig       `yaml:"history"`
	Database  DatabaseConfig      `yaml:"database"`
	Defaults  DefaultsConfig      `yaml:"defaults"`
	Languages map[string][]string `yaml:"languages"` // language -> path globs
	Render    RenderConfig        `yaml:"render"`
	DataDir   string              `yaml:"-"` // set by caller, not from config file
}

// BackendConfig points lens at the analysis service.
type BackendConfig struct {
	URL          string        `yaml:"url"`
	Timeout      time.Duration `yaml:"timeout"`       // per request
	Retries      int           `yaml:"retries"`       // extra attempts for network errors and 5xx
	RetryBackoff time.Duration `yaml:"retry_backoff"` // wait before the first retry, doubled after each
}

// HistoryConfig selects and tunes the session history store.
type HistoryConfig struct {
	Store       StoreKind `yaml:"store"`
	MaxSessions int       `yaml:"max_sessions"` // 0 = unlimited
}

// DatabaseConfig tunes the sqlite store's connection pool.
type DatabaseConfig struct {
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	BusyTimeout  time.Duration `yaml:"busy_timeout"`
}

// DefaultsConfig seeds fresh drafts.
type DefaultsConfig struct {
	Language string `yaml:"language"`
	Persona  string `yaml:"persona"`
}

// ThemeStyle is the render style that derives glamour colors from the theme.
const ThemeStyle = "theme"

// RenderConfig controls terminal rendering of reviews and replies.
type RenderConfig struct {
	Style  string         `yaml:"style"` // glamour style name, path to a JSON style, or "theme"
	Width  int            `yaml:"width"`
	Theme  string         `yaml:"theme"`  // built-in palette for CLI colors
	Colors styles.Palette `yaml:"colors"` // per-color overrides of the theme
}

// Palette returns the theme palette with color overrides applied.
func (r RenderConfig) Palette() (styles.Palette, error) {
	base, ok := styles.GetPalette(r.Theme)
	if !ok {
		return styles.Palette{}, fmt.Errorf("render.theme %q must be one of %s", r.Theme, strings.Join(styles.ThemeNames(), ", "))
	}
	p := base.Merge(r.Colors)
	if err := p.Validate(); err != nil {
		return styles.Palette{}, fmt.Errorf("render.colors: %w", err)
	}
	return p, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			URL:          "http://127.0.0.1:5000",
			Timeout:      2 * time.Minute,
			Retries:      0,
			RetryBackoff: time.Second,
		},
		History: HistoryConfig{
			Store:       StoreJSONFile,
			MaxSessions: 0,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			BusyTimeout:  5 * time.Second,
		},
		Defaults: DefaultsConfig{
			Language: string(review.LanguagePython),
			Persona:  string(review.PersonaStandard),
		},
		Languages: map[string][]string{
			string(review.LanguagePython):     {"**/*.py", "**/*.pyi"},
			string(review.LanguageJavaScript): {"**/*.js", "**/*.mjs", "**/*.cjs", "**/*.jsx"},
			string(review.LanguageSQL):        {"**/*.sql"},
		},
		Render: RenderConfig{
			Style: ThemeStyle,
			Width: 100,
			Theme: styles.DefaultTheme,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Backend.URL == "" {
		c.Backend.URL = defaults.Backend.URL
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = defaults.Backend.Timeout
	}
	if c.Backend.RetryBackoff == 0 {
		c.Backend.RetryBackoff = defaults.Backend.RetryBackoff
	}
	if c.History.Store == "" {
		c.History.Store = defaults.History.Store
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Defaults.Language == "" {
		c.Defaults.Language = defaults.Defaults.Language
	}
	if c.Defaults.Persona == "" {
		c.Defaults.Persona = defaults.Defaults.Persona
	}
	if c.Render.Style == "" {
		c.Render.Style = defaults.Render.Style
	}
	if c.Render.Width == 0 {
		c.Render.Width = defaults.Render.Width
	}
	if c.Render.Theme == "" {
		c.Render.Theme = defaults.Render.Theme
	}

	// User globs replace the built-in ones per language.
	merged := make(map[string][]string, len(defaults.Languages)+len(c.Languages))
	for lang, globs := range defaults.Languages {
		merged[lang] = globs
	}
	for lang, globs := range c.Languages {
		merged[lang] = globs
	}
	c.Languages = merged
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url cannot be empty")
	}
	if _, err := url.Parse(c.Backend.URL); err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout cannot be negative")
	}
	if c.Backend.Retries < 0 {
		return fmt.Errorf("backend.retries cannot be negative")
	}
	if c.Backend.RetryBackoff < 0 {
		return fmt.Errorf("backend.retry_backoff cannot be negative")
	}

	if !c.History.Store.IsValid() {
		return fmt.Errorf("history.store %q must be one of jsonfile, sqlite, memory", c.History.Store)
	}
	if c.History.MaxSessions < 0 {
		return fmt.Errorf("history.max_sessions cannot be negative")
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}

	if _, err := c.DefaultDraft(); err != nil {
		return err
	}

	for lang := range c.Languages {
		if _, err := review.ParseLanguage(lang); err != nil {
			return fmt.Errorf("languages: %w", err)
		}
	}

	if c.Render.Width < 0 {
		return fmt.Errorf("render.width cannot be negative")
	}
	if _, err := c.Render.Palette(); err != nil {
		return err
	}

	return nil
}

// DefaultDraft returns the empty draft seeded with the configured language
// and persona.
func (c *Config) DefaultDraft() (review.Draft, error) {
	lang, err := review.ParseLanguage(c.Defaults.Language)
	if err != nil {
		return review.Draft{}, fmt.Errorf("defaults.language: %w", err)
	}
	persona, err := review.ParsePersona(c.Defaults.Persona)
	if err != nil {
		return review.Draft{}, fmt.Errorf("defaults.persona: %w", err)
	}
	return review.Draft{Language: lang, Persona: persona}, nil
}

// HistoryFile returns the path to the jsonfile history store.
func (c *Config) HistoryFile() string {
	return filepath.Join(c.DataDir, HistoryFileName)
}

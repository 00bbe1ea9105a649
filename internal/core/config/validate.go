package config

import (
	"cmp"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// the backend URL, language globs, render style and file accessibility. The
// configPath argument specifies the config file location to validate (empty
// string skips config file check). This calls Validate() first for basic
// structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		criterio.Run("backend.url", c.Backend.URL, validateBackendURL),
		c.validateLanguageGlobs(),
		criterio.Run("render.style", c.Render.Style, validateRenderStyle),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.History.Store == StoreMemory {
		warnings = append(warnings, ValidationWarning{
			Category: "History",
			Item:     "history.store",
			Message:  "memory store keeps no history between runs",
		})
	}

	if u, err := url.Parse(c.Backend.URL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		warnings = append(warnings, ValidationWarning{
			Category: "Backend",
			Item:     "backend.url",
			Message:  "code is sent over plain http to a non-local host",
		})
	}

	if c.Backend.Retries > 0 && c.Backend.Timeout > 0 && c.Backend.RetryBackoff >= c.Backend.Timeout {
		warnings = append(warnings, ValidationWarning{
			Category: "Backend",
			Item:     "backend.retry_backoff",
			Message:  "retry backoff is not shorter than the request timeout",
		})
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		warnings = append(warnings, ValidationWarning{
			Category: "Database",
			Item:     "database.max_idle_conns",
			Message:  "max_idle_conns exceeds max_open_conns and will be capped",
		})
	}

	for lang, globs := range c.Languages {
		if len(globs) == 0 {
			warnings = append(warnings, ValidationWarning{
				Category: "Languages",
				Item:     lang,
				Message:  "no globs defined, the language is never inferred from file paths",
			})
		}
	}
	slices.SortFunc(warnings, func(a, b ValidationWarning) int {
		return cmp.Or(strings.Compare(a.Category, b.Category), strings.Compare(a.Item, b.Item))
	})

	return warnings
}

// validateFileAccess checks the config file and the data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

// validateBackendURL requires an absolute http(s) URL with a host.
func validateBackendURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return errors.New("must not carry a query or fragment")
	}
	return nil
}

// validateLanguageGlobs checks glob syntax for every language pattern.
func (c *Config) validateLanguageGlobs() error {
	var errs criterio.FieldErrorsBuilder

	langs := make([]string, 0, len(c.Languages))
	for lang := range c.Languages {
		langs = append(langs, lang)
	}
	slices.Sort(langs)

	for _, lang := range langs {
		for i, glob := range c.Languages[lang] {
			if !doublestar.ValidatePattern(glob) {
				errs = errs.Append(fmt.Sprintf("languages.%s[%d]", lang, i), fmt.Errorf("invalid glob %q", glob))
			}
		}
	}
	return errs.ToError()
}

// validateRenderStyle accepts a built-in glamour style or a readable style file.
func validateRenderStyle(style string) error {
	if style == ThemeStyle || style == "auto" {
		return nil
	}
	if _, ok := glamourstyles.DefaultStyles[style]; ok {
		return nil
	}
	info, err := os.Stat(style)
	if err != nil {
		return fmt.Errorf("unknown style %q and no such file", style)
	}
	if info.IsDir() {
		return fmt.Errorf("style path %s is a directory", style)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

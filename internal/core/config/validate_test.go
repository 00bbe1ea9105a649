package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)

	fields := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_StructuralErrorFirst(t *testing.T) {
	cfg := validConfig(t)
	cfg.History.Store = "redis"

	err := cfg.ValidateDeep("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history.store")
}

func TestValidateDeep_BackendURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		ok   bool
	}{
		{name: "http loopback", url: "http://127.0.0.1:5000", ok: true},
		{name: "https with path", url: "https://review.example.com/v1", ok: true},
		{name: "missing scheme", url: "localhost:5000"},
		{name: "ftp", url: "ftp://example.com"},
		{name: "no host", url: "http://"},
		{name: "query", url: "http://localhost:5000?debug=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.Backend.URL = tt.url

			err := cfg.ValidateDeep("")
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, fieldsOf(t, err), "backend.url")
		})
	}
}

func TestValidateDeep_InvalidGlob(t *testing.T) {
	cfg := validConfig(t)
	cfg.Languages["sql"] = []string{"**/*.sql", "migrations/[.sql"}

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "languages.sql[1]", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "invalid glob")
}

func TestValidateDeep_RenderStyle(t *testing.T) {
	t.Run("built-in", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Render.Style = "light"
		assert.NoError(t, cfg.ValidateDeep(""))
	})

	t.Run("style file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "style.json")
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

		cfg := validConfig(t)
		cfg.Render.Style = path
		assert.NoError(t, cfg.ValidateDeep(""))
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Render.Style = "neon-dreams"
		assert.Contains(t, fieldsOf(t, cfg.ValidateDeep("")), "render.style")
	})
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

	cfg := validConfig(t)
	cfg.DataDir = tmpFile

	assert.Contains(t, fieldsOf(t, cfg.ValidateDeep("")), "data_dir")
}

func TestValidateDeep_ConfigFileIsDirectory(t *testing.T) {
	cfg := validConfig(t)
	assert.Contains(t, fieldsOf(t, cfg.ValidateDeep(t.TempDir())), "config_file")
}

func TestValidateDeep_MissingConfigFileIsFine(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.ValidateDeep(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestWarnings(t *testing.T) {
	t.Run("defaults are clean", func(t *testing.T) {
		assert.Empty(t, validConfig(t).Warnings())
	})

	t.Run("collected and sorted", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.History.Store = StoreMemory
		cfg.Backend.URL = "http://review.internal:5000"
		cfg.Languages["sql"] = nil
		cfg.Database.MaxIdleConns = 10

		var items []string
		for _, w := range cfg.Warnings() {
			items = append(items, w.Category+"/"+w.Item)
		}
		assert.Equal(t, []string{
			"Backend/backend.url",
			"Database/database.max_idle_conns",
			"History/history.store",
			"Languages/sql",
		}, items)
	})

	t.Run("https remote is fine", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Backend.URL = "https://review.example.com"
		assert.Empty(t, cfg.Warnings())
	})

	t.Run("backoff longer than timeout", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Backend.Retries = 2
		cfg.Backend.RetryBackoff = cfg.Backend.Timeout

		warnings := cfg.Warnings()
		require.Len(t, warnings, 1)
		assert.Equal(t, "backend.retry_backoff", warnings[0].Item)
	})
}

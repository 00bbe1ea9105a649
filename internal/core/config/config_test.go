package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/core/styles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), dataDir)
	require.NoError(t, err)

	want := DefaultConfig()
	want.DataDir = dataDir
	assert.Equal(t, &want, cfg)
	assert.Equal(t, filepath.Join(dataDir, "history.json"), cfg.HistoryFile())
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:5000", cfg.Backend.URL)
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: https://review.example.com
  retries: 2
  retry_backoff: 250ms
history:
  store: sqlite
  max_sessions: 50
defaults:
  language: JavaScript
  persona: security
languages:
  sql: ["db/**/*.ddl"]
render:
  width: 72
`)
	dataDir := t.TempDir()

	cfg, err := Load(path, dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, "https://review.example.com", cfg.Backend.URL)
	assert.Equal(t, 2, cfg.Backend.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.Backend.RetryBackoff)
	assert.Equal(t, 2*time.Minute, cfg.Backend.Timeout, "unset keys keep defaults")
	assert.Equal(t, StoreSQLite, cfg.History.Store)
	assert.Equal(t, 50, cfg.History.MaxSessions)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, ThemeStyle, cfg.Render.Style)
	assert.Equal(t, 72, cfg.Render.Width)

	assert.Equal(t, []string{"db/**/*.ddl"}, cfg.Languages["sql"])
	assert.Equal(t, []string{"**/*.py", "**/*.pyi"}, cfg.Languages["python"], "languages not named keep built-in globs")

	draft, err := cfg.DefaultDraft()
	require.NoError(t, err)
	assert.Equal(t, review.Draft{Language: review.LanguageJavaScript, Persona: review.PersonaSecurity}, draft)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "bad yaml", body: "backend: [", wantErr: "parse config file"},
		{name: "unknown store", body: "history:\n  store: redis", wantErr: "history.store"},
		{name: "negative retries", body: "backend:\n  retries: -1", wantErr: "backend.retries"},
		{name: "negative max sessions", body: "history:\n  max_sessions: -3", wantErr: "history.max_sessions"},
		{name: "unknown language", body: "defaults:\n  language: cobol", wantErr: "defaults.language"},
		{name: "unknown persona", body: "defaults:\n  persona: Pirate", wantErr: "defaults.persona"},
		{name: "unknown glob language", body: "languages:\n  rust: ['**/*.rs']", wantErr: "languages"},
		{name: "bad duration", body: "backend:\n  timeout: soon", wantErr: "parse config file"},
		{name: "unknown theme", body: "render:\n  theme: neon", wantErr: "render.theme"},
		{name: "bad color", body: "render:\n  colors:\n    primary: blue", wantErr: "render.colors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_EmptyDataDir(t *testing.T) {
	cfg := DefaultConfig()
	require.ErrorContains(t, cfg.Validate(), "data directory")
}

func TestInferLanguage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Languages["sql"] = append(cfg.Languages["sql"], "db/migrations/*.up")

	tests := []struct {
		path string
		want review.Language
		ok   bool
	}{
		{path: "main.py", want: review.LanguagePython, ok: true},
		{path: "/home/me/src/app/views.py", want: review.LanguagePython, ok: true},
		{path: "web/static/app.mjs", want: review.LanguageJavaScript, ok: true},
		{path: "queries/report.sql", want: review.LanguageSQL, ok: true},
		{path: "db/migrations/0001.up", want: review.LanguageSQL, ok: true},
		{path: "other/0001.up"},
		{path: "README.md"},
		{path: "-"},
		{path: ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := cfg.InferLanguage(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderPalette(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Render.Theme = "gruvbox"
	cfg.Render.Colors = styles.Palette{Error: "#ff0000"}

	p, err := cfg.Render.Palette()
	require.NoError(t, err)

	gruvbox, _ := styles.GetPalette("gruvbox")
	assert.Equal(t, "#ff0000", p.Error)
	assert.Equal(t, gruvbox.Primary, p.Primary)
}

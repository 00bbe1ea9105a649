package config

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/colonyops/lens/internal/core/review"
)

// InferLanguage returns the language whose globs match path. Languages are
// tried in their declaration order so overlapping globs resolve the same way
// every time. A glob matches either the full slash-separated path or, for
// patterns starting with "**/", the file's base name.
func (c *Config) InferLanguage(path string) (review.Language, bool) {
	if path == "" || path == "-" {
		return "", false
	}

	p := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(path)), "/")
	base := filepath.Base(p)

	for _, lang := range review.Languages() {
		for _, glob := range c.Languages[string(lang)] {
			if ok, _ := doublestar.Match(glob, p); ok {
				return lang, true
			}
			if strings.HasPrefix(glob, "**/") {
				if ok, _ := doublestar.Match(strings.TrimPrefix(glob, "**/"), base); ok {
					return lang, true
				}
			}
		}
	}
	return "", false
}

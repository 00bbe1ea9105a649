// Package logging carries request-scoped log fields through contexts.
package logging

import (
	"github.com/rs/zerolog"
)

// Component derives a logger tagged with a component name that picks up
// request fields from contexts passed to Event.Ctx.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger().Hook(ContextHook{})
}

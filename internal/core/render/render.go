// Package render turns backend markdown into content that is safe to display.
// Review and chat text is untrusted: the reviewed code may be attacker supplied
// and the backend echoes it back, so every path strips anything that could
// execute in the target surface.
package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/x/ansi"
	"github.com/colonyops/lens/internal/core/review"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	DefaultStyle = "dark"
	DefaultWidth = 100
	minWidth     = 20
)

// Content is rendered output.
type Content struct {
	Text string
	// Degraded is set when rendering failed and Text holds the escaped raw
	// input instead.
	Degraded bool
}

// Options configures a Renderer.
type Options struct {
	Style  string                   // glamour style name or path to a JSON style
	Styles *glamouransi.StyleConfig // takes precedence over Style when set
	Width  int                      // default terminal word wrap
}

// Renderer renders markdown for HTML and terminal surfaces. It is safe for
// concurrent use.
type Renderer struct {
	opts    Options
	policy  *bluemonday.Policy
	convert func(src []byte, w io.Writer) error
	log     zerolog.Logger
}

// New creates a renderer. Zero options fall back to DefaultStyle and
// DefaultWidth.
func New(opts Options, log zerolog.Logger) *Renderer {
	if opts.Style == "" {
		opts.Style = DefaultStyle
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	return &Renderer{
		opts:    opts,
		policy:  htmlPolicy(),
		convert: md.Convert,
		log:     log.With().Str("component", "render").Logger(),
	}
}

var languageClass = regexp.MustCompile(`^language-[a-zA-Z0-9_+-]+$`)

func htmlPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(languageClass).OnElements("code")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// HTML renders markdown to sanitized HTML. Raw HTML in the source is never
// passed through.
func (r *Renderer) HTML(markdown string) Content {
	var buf bytes.Buffer
	if err := r.convert([]byte(markdown), &buf); err != nil {
		r.logFailure("html", err)
		return Content{
			Text:     "<pre>" + html.EscapeString(markdown) + "</pre>",
			Degraded: true,
		}
	}

	return Content{Text: string(r.policy.SanitizeBytes(buf.Bytes()))}
}

// Terminal renders markdown for a terminal with the given word wrap. A width
// of zero or less uses the configured default.
func (r *Renderer) Terminal(markdown string, width int) Content {
	if width <= 0 {
		width = r.opts.Width
	}
	width = max(width, minWidth)

	clean := StripControl(markdown)

	// TermRenderer keeps internal buffers, so one is built per call.
	style := glamour.WithStylePath(r.opts.Style)
	if r.opts.Styles != nil {
		style = glamour.WithStyles(*r.opts.Styles)
	}
	tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		r.logFailure("terminal", err)
		return Content{Text: clean, Degraded: true}
	}

	out, err := tr.Render(clean)
	if err != nil {
		r.logFailure("terminal", err)
		return Content{Text: clean, Degraded: true}
	}

	return Content{Text: strings.Trim(out, "\n")}
}

func (r *Renderer) logFailure(surface string, err error) {
	r.log.Warn().
		Err(fmt.Errorf("%w: %w", review.ErrRender, err)).
		Str("surface", surface).
		Msg("markdown rendering failed, showing raw text")
}

// StripControl removes terminal escape sequences and control characters
// other than newline and tab from s.
func StripControl(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20, r == 0x7f, r >= 0x80 && r <= 0x9f:
			return -1
		default:
			return r
		}
	}, s)
}

// Package printer writes styled status lines for CLI commands. Commands pull
// the printer from their context so tests can capture output.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/colonyops/lens/internal/core/styles"
)

// Printer writes human readable output. Status lines go to err so stdout
// stays clean for rendered reviews and JSON.
type Printer struct {
	out io.Writer
	err io.Writer
}

// New creates a printer writing results to out and status lines to err.
func New(out, err io.Writer) *Printer {
	return &Printer{out: out, err: err}
}

type ctxKey struct{}

// NewContext returns ctx carrying p.
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the printer stored in ctx, or one writing to stdout and stderr.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stdout, os.Stderr)
}

// Out returns the writer for command results.
func (p *Printer) Out() io.Writer { return p.out }

// Printf writes an unstyled line to the result writer.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) Headerf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.out, styles.HeaderStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Mutedf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.err, styles.MutedStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Successf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.err, styles.SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Infof(format string, args ...any) {
	_, _ = fmt.Fprintln(p.err, styles.MutedStyle.Render("• ")+fmt.Sprintf(format, args...))
}

func (p *Printer) Warnf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.err, styles.WarningStyle.Render("! "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.err, styles.ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Divider writes a horizontal rule of the given width.
func (p *Printer) Divider(width int) {
	_, _ = fmt.Fprintln(p.out, styles.DividerStyle.Render(strings.Repeat("─", max(width, 1))))
}

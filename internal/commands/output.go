package commands

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/colonyops/lens/internal/core/render"
	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/core/styles"
	"github.com/colonyops/lens/internal/printer"
)

// markdownWriter prints backend markdown either for the terminal or as a
// sanitized HTML fragment.
type markdownWriter struct {
	p        *printer.Printer
	renderer *render.Renderer
	html     bool
	width    int
}

func (w markdownWriter) write(markdown string) {
	var c render.Content
	if w.html {
		c = w.renderer.HTML(markdown)
	} else {
		c = w.renderer.Terminal(markdown, w.width)
	}
	if c.Degraded {
		w.p.Warnf("could not render markdown, showing plain text")
	}
	w.p.Printf("%s", strings.TrimRight(c.Text, "\n"))
}

// session prints a session header, its review and its conversation.
func (w markdownWriter) session(s review.Session, conversation []review.Message) {
	if w.html {
		out := w.p.Out()
		_, _ = fmt.Fprintf(out, "<article class=\"session\" data-id=\"%s\">\n", html.EscapeString(s.ID))
		_, _ = fmt.Fprintln(out, "<section class=\"review\">")
		w.write(s.Review)
		_, _ = fmt.Fprintln(out, "</section>")
		for _, m := range conversation {
			_, _ = fmt.Fprintf(out, "<section class=\"message %s\">\n", m.Role)
			w.write(m.Content)
			_, _ = fmt.Fprintln(out, "</section>")
		}
		_, _ = fmt.Fprintln(out, "</article>")
		return
	}

	w.p.Headerf("Session %s", s.ID)
	w.p.Mutedf("%s · %s · %s", s.Language, s.Persona, s.CreatedAt.Local().Format("2006-01-02 15:04"))
	w.write(s.Review)

	for _, m := range conversation {
		w.p.Divider(w.dividerWidth())
		w.message(m)
	}
}

func (w markdownWriter) message(m review.Message) {
	if w.html {
		w.write(m.Content)
		return
	}
	label := styles.AssistantStyle.Render("Reviewer")
	if m.Role == review.RoleUser {
		label = styles.UserStyle.Render("You")
	}
	w.p.Printf("%s", label)
	w.write(m.Content)
}

func (w markdownWriter) dividerWidth() int {
	if w.width > 0 {
		return w.width
	}
	return render.DefaultWidth
}

// fence wraps code in a fenced markdown block tagged with lang. The fence is
// longer than any backtick run inside code.
func fence(code, lang string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}

	marker := strings.Repeat("`", max(3, longest+1))
	return marker + lang + "\n" + strings.TrimRight(code, "\n") + "\n" + marker + "\n"
}

// writeRaw prints text unchanged, ensuring a trailing newline.
func writeRaw(w io.Writer, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/colonyops/lens/internal/core/config"
	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/core/styles"
	"golang.org/x/term"
)

// stdinPath is the --file value that reads code from stdin.
const stdinPath = "-"

// readCode returns the code named by path: a file, stdinPath, or stdin when
// path is empty and stdin is not a terminal. ok is false when there was
// nothing to read.
func readCode(path string, stdin io.Reader) (code string, ok bool, err error) {
	switch {
	case path == stdinPath:
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", false, fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), true, nil
	case isTerminal(stdin):
		return "", false, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", false, fmt.Errorf("read stdin: %w", err)
	}
	return string(data), true, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// draftInput is the set of flags shared by commands that build a draft.
type draftInput struct {
	file     string
	language string
	persona  string
}

// build returns a draft seeded from the configured defaults and overridden
// by the flags. Without --language the language is inferred from the file
// name. ok reports whether any code was read.
func (in draftInput) build(cfg *config.Config, stdin io.Reader) (review.Draft, bool, error) {
	draft, err := cfg.DefaultDraft()
	if err != nil {
		return review.Draft{}, false, err
	}

	switch {
	case in.language != "":
		lang, err := review.ParseLanguage(in.language)
		if err != nil {
			return review.Draft{}, false, err
		}
		draft.Language = lang
	case in.file != "" && in.file != stdinPath:
		if lang, ok := cfg.InferLanguage(in.file); ok {
			draft.Language = lang
		}
	}

	if in.persona != "" {
		persona, err := review.ParsePersona(in.persona)
		if err != nil {
			return review.Draft{}, false, err
		}
		draft.Persona = persona
	}

	code, ok, err := readCode(in.file, stdin)
	if err != nil {
		return review.Draft{}, false, err
	}
	draft.Code = code
	return draft, ok, nil
}

// promptDraft asks for the code, language and persona interactively.
// Returns huh.ErrUserAborted when the form is cancelled.
func promptDraft(d *review.Draft) error {
	language := string(d.Language)
	persona := string(d.Persona)

	langs := make([]string, 0, len(review.Languages()))
	for _, l := range review.Languages() {
		langs = append(langs, string(l))
	}
	personas := make([]string, 0, len(review.Personas()))
	for _, p := range review.Personas() {
		personas = append(personas, string(p))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language").
				Options(huh.NewOptions(langs...)...).
				Value(&language),
			huh.NewSelect[string]().
				Title("Reviewer persona").
				Options(huh.NewOptions(personas...)...).
				Value(&persona),
			huh.NewText().
				Title("Code").
				Description("Paste the code to review").
				Lines(12).
				Validate(requireCode).
				Value(&d.Code),
		),
	).WithTheme(styles.FormTheme())

	if err := form.Run(); err != nil {
		return err
	}

	d.Language = review.Language(language)
	d.Persona = review.Persona(persona)
	return nil
}

func requireCode(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("code is required")
	}
	return nil
}

package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/lens"
	"github.com/colonyops/lens/internal/printer"
	"github.com/urfave/cli/v3"
)

type ReviewCmd struct {
	flags *Flags
	app   *lens.App

	input draftInput
	html  bool
	width int
}

// NewReviewCmd creates a new review command.
func NewReviewCmd(flags *Flags, app *lens.App) *ReviewCmd {
	return &ReviewCmd{flags: flags, app: app}
}

// Register adds the review command to the application.
func (cmd *ReviewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "review",
		Usage:     "Request a code review",
		UsageText: "lens review [options]",
		Description: `Sends code to the review backend and prints the review.

Code is read from --file, from stdin when piped, or from an interactive form
when neither is available. Without --language the language is inferred from
the file name using the configured glob patterns.

Examples:
  lens review -f app.py
  cat query.sql | lens review -l sql -p security
  lens review                    # open the interactive form`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "file to review (- reads stdin)",
				Destination: &cmd.input.file,
			},
			&cli.StringFlag{
				Name:        "language",
				Aliases:     []string{"l"},
				Usage:       "language of the code (python, javascript, sql)",
				Destination: &cmd.input.language,
			},
			&cli.StringFlag{
				Name:        "persona",
				Aliases:     []string{"p"},
				Usage:       "reviewer persona (Standard, Beginner, Security, Performance)",
				Destination: &cmd.input.persona,
			},
			&cli.BoolFlag{
				Name:        "html",
				Usage:       "print the review as sanitized HTML",
				Destination: &cmd.html,
			},
			&cli.IntFlag{
				Name:        "width",
				Usage:       "word wrap width for terminal output",
				Destination: &cmd.width,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ReviewCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	draft, ok, err := cmd.input.build(cmd.app.Config, c.Root().Reader)
	if err != nil {
		return err
	}

	if !ok {
		if err := promptDraft(&draft); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("draft form: %w", err)
		}
	}

	orch := cmd.app.Orchestrator
	if err := orch.SetDraft(draft); err != nil {
		return err
	}

	var sess review.Session
	title := fmt.Sprintf("Reviewing %s code as %s...", draft.Language, draft.Persona)
	err = withSpinner(ctx, c.Root().ErrWriter, title, func(ctx context.Context) error {
		var err error
		sess, err = orch.RequestReview(ctx)
		return err
	})
	if err != nil {
		return err
	}

	w := markdownWriter{p: p, renderer: cmd.app.Renderer, html: cmd.html, width: cmd.width}
	w.session(sess, nil)

	p.Successf("Saved session %s", shortID(sess.ID))
	return nil
}

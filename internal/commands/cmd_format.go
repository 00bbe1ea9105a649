package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/colonyops/lens/internal/lens"
	"github.com/colonyops/lens/internal/printer"
	"github.com/urfave/cli/v3"
)

type FormatCmd struct {
	flags *Flags
	app   *lens.App

	input draftInput
	write bool
}

// NewFormatCmd creates a new format command.
func NewFormatCmd(flags *Flags, app *lens.App) *FormatCmd {
	return &FormatCmd{flags: flags, app: app}
}

// Register adds the format command to the application.
func (cmd *FormatCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "format",
		Usage:     "Format code with the backend formatter",
		UsageText: "lens format [options]",
		Description: `Sends code to the backend formatter and prints the result.

Examples:
  lens format -f app.py
  lens format -f app.py --write
  cat query.sql | lens format -l sql`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "file to format (- reads stdin)",
				Destination: &cmd.input.file,
			},
			&cli.StringFlag{
				Name:        "language",
				Aliases:     []string{"l"},
				Usage:       "language of the code (python, javascript, sql)",
				Destination: &cmd.input.language,
			},
			&cli.BoolFlag{
				Name:        "write",
				Aliases:     []string{"w"},
				Usage:       "write the result back to --file",
				Destination: &cmd.write,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *FormatCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if cmd.write && (cmd.input.file == "" || cmd.input.file == stdinPath) {
		return errors.New("--write requires --file")
	}

	draft, ok, err := cmd.input.build(cmd.app.Config, c.Root().Reader)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no code provided; use --file or pipe code on stdin")
	}

	orch := cmd.app.Orchestrator
	if err := orch.SetDraft(draft); err != nil {
		return err
	}

	var formatted string
	err = withSpinner(ctx, c.Root().ErrWriter, "Formatting...", func(ctx context.Context) error {
		var err error
		formatted, err = orch.FormatDraft(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if cmd.write {
		info, err := os.Stat(cmd.input.file)
		if err != nil {
			return err
		}
		if err := os.WriteFile(cmd.input.file, []byte(formatted), info.Mode().Perm()); err != nil {
			return fmt.Errorf("write %s: %w", cmd.input.file, err)
		}
		p.Successf("Formatted %s", cmd.input.file)
		return nil
	}

	return writeRaw(p.Out(), formatted)
}

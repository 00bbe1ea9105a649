package commands

import (
	"context"

	"github.com/colonyops/lens/internal/lens"
	"github.com/colonyops/lens/internal/printer"
	"github.com/urfave/cli/v3"
)

type ShowCmd struct {
	flags *Flags
	app   *lens.App

	html  bool
	width int
}

// NewShowCmd creates a new show command.
func NewShowCmd(flags *Flags, app *lens.App) *ShowCmd {
	return &ShowCmd{flags: flags, app: app}
}

// Register adds the show command to the application.
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Print a session's review and conversation",
		UsageText: "lens show [options] <id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "html",
				Usage:       "print as sanitized HTML",
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

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	orch := cmd.app.Orchestrator

	sess, err := resolveSession(orch.Sessions(), c.Args().First())
	if err != nil {
		return err
	}
	if err := orch.SelectSession(sess.ID); err != nil {
		return err
	}

	view := orch.Snapshot()

	w := markdownWriter{p: printer.Ctx(ctx), renderer: cmd.app.Renderer, html: cmd.html, width: cmd.width}
	w.session(*view.Active, view.Conversation)
	return nil
}

package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/colonyops/lens/internal/core/backend"
	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/lens"
	"github.com/colonyops/lens/internal/printer"
	"github.com/urfave/cli/v3"
)

type AskCmd struct {
	flags *Flags
	app   *lens.App

	width int
}

// NewAskCmd creates a new ask command.
func NewAskCmd(flags *Flags, app *lens.App) *AskCmd {
	return &AskCmd{flags: flags, app: app}
}

// Register adds the ask command to the application.
func (cmd *AskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ask",
		Usage:     "Ask a follow-up question about a review",
		UsageText: "lens ask <id> <question...>",
		Description: `Sends the question together with the session's code, review and earlier
conversation to the backend and prints the reply. The exchange is saved to
the session, including a failed one.

Examples:
  lens ask 3f2a "why is the loop quadratic?"`,
		Flags: []cli.Flag{
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

func (cmd *AskCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	orch := cmd.app.Orchestrator

	args := c.Args().Slice()
	if len(args) < 2 {
		return errors.New("usage: lens ask <id> <question...>")
	}

	sess, err := resolveSession(orch.Sessions(), args[0])
	if err != nil {
		return err
	}
	if err := orch.SelectSession(sess.ID); err != nil {
		return err
	}

	var reply string
	err = withSpinner(ctx, c.Root().ErrWriter, "Waiting for the reviewer...", func(ctx context.Context) error {
		var err error
		reply, err = orch.Conversation().Ask(ctx, strings.Join(args[1:], " "))
		return err
	})

	var failure *backend.Failure
	switch {
	case err == nil:
	case errors.As(err, &failure):
		// the synthetic error reply was stored and is shown below
	default:
		return err
	}

	w := markdownWriter{p: p, renderer: cmd.app.Renderer, width: cmd.width}
	w.message(review.AssistantMessage(reply))

	return err
}

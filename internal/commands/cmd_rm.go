package commands

import (
	"context"
	"errors"

	"github.com/colonyops/lens/internal/lens"
	"github.com/colonyops/lens/internal/printer"
	"github.com/urfave/cli/v3"
)

type RmCmd struct {
	flags *Flags
	app   *lens.App
}

// NewRmCmd creates a new rm command.
func NewRmCmd(flags *Flags, app *lens.App) *RmCmd {
	return &RmCmd{flags: flags, app: app}
}

// Register adds the rm command to the application.
func (cmd *RmCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "rm",
		Usage:     "Delete sessions from the history",
		UsageText: "lens rm <id>...",
		Action:    cmd.run,
	})

	return app
}

func (cmd *RmCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	orch := cmd.app.Orchestrator

	refs := c.Args().Slice()
	if len(refs) == 0 {
		return errors.New("usage: lens rm <id>...")
	}

	var errs []error
	for _, ref := range refs {
		sess, err := resolveSession(orch.Sessions(), ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := orch.DeleteSession(ctx, sess.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		p.Successf("Deleted session %s", shortID(sess.ID))
	}

	return errors.Join(errs...)
}

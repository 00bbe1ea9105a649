package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/lens"
	"github.com/colonyops/lens/internal/printer"
	"github.com/urfave/cli/v3"
)

// DeriveCmd requests an artifact computed from a reviewed session: fixed
// code or generated tests. It registers one command per kind.
type DeriveCmd struct {
	flags *Flags
	app   *lens.App

	raw    bool
	output string
	width  int
}

// NewDeriveCmd creates the fix and tests commands.
func NewDeriveCmd(flags *Flags, app *lens.App) *DeriveCmd {
	return &DeriveCmd{flags: flags, app: app}
}

// Register adds the fix and tests commands to the application.
func (cmd *DeriveCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		cmd.command(review.ArtifactFix, "fix", "Generate fixed code for a reviewed session"),
		cmd.command(review.ArtifactTests, "tests", "Generate unit tests for a reviewed session"),
	)
	return app
}

func (cmd *DeriveCmd) command(kind review.ArtifactKind, name, usage string) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		UsageText: "lens " + name + " [options] <id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "raw",
				Usage:       "print the code without rendering",
				Destination: &cmd.raw,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "write the code to a file instead of printing it",
				Destination: &cmd.output,
			},
			&cli.IntFlag{
				Name:        "width",
				Usage:       "word wrap width for terminal output",
				Destination: &cmd.width,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return cmd.run(ctx, c, kind)
		},
	}
}

func (cmd *DeriveCmd) run(ctx context.Context, c *cli.Command, kind review.ArtifactKind) error {
	p := printer.Ctx(ctx)
	orch := cmd.app.Orchestrator

	sess, err := resolveSession(orch.Sessions(), c.Args().First())
	if err != nil {
		return err
	}
	if err := orch.SelectSession(sess.ID); err != nil {
		return err
	}

	var code string
	title := fmt.Sprintf("Requesting %s for session %s...", kind, shortID(sess.ID))
	err = withSpinner(ctx, c.Root().ErrWriter, title, func(ctx context.Context) error {
		var err error
		code, err = orch.RequestDerived(ctx, kind)
		return err
	})
	if err != nil {
		return err
	}

	switch {
	case cmd.output != "":
		if err := os.WriteFile(cmd.output, []byte(code), 0o644); err != nil {
			return err
		}
		p.Successf("Wrote %s", cmd.output)
	case cmd.raw:
		return writeRaw(p.Out(), code)
	default:
		w := markdownWriter{p: p, renderer: cmd.app.Renderer, width: cmd.width}
		w.write(fence(code, string(sess.Language)))
	}
	return nil
}

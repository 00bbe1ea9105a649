package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/lens"
	"github.com/colonyops/lens/internal/printer"
	"github.com/colonyops/lens/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// HistoryCmd moves the review history in and out of lens as JSON.
type HistoryCmd struct {
	flags *Flags
	app   *lens.App

	output string
	reader iojson.FileReader[[]json.RawMessage]
}

// NewHistoryCmd creates the export and import commands.
func NewHistoryCmd(flags *Flags, app *lens.App) *HistoryCmd {
	return &HistoryCmd{flags: flags, app: app}
}

// Register adds the export and import commands to the application.
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "export",
			Usage:     "Write the review history as JSON",
			UsageText: "lens export [-o file]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "output",
					Aliases:     []string{"o"},
					Usage:       "write to a file instead of stdout",
					Destination: &cmd.output,
				},
			},
			Action: cmd.runExport,
		},
		&cli.Command{
			Name:      "import",
			Usage:     "Merge exported sessions into the history",
			UsageText: "lens import [-f file]",
			Description: `Reads a JSON array of sessions, as written by 'lens export', and adds the
ones whose id is not in the history yet. Invalid records are skipped.`,
			Flags:  []cli.Flag{cmd.reader.Flag()},
			Action: cmd.runImport,
		},
	)

	return app
}

func (cmd *HistoryCmd) runExport(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	sessions := cmd.app.Orchestrator.Sessions()

	if cmd.output == "" {
		return iojson.WriteWith(p.Out(), c.Root().ErrWriter, sessions)
	}

	data, err := review.MarshalSessions(sessions)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cmd.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", cmd.output, err)
	}

	p.Successf("Exported %d session(s) to %s", len(sessions), cmd.output)
	return nil
}

func (cmd *HistoryCmd) runImport(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if cmd.reader.Stdin == nil && !isTerminal(c.Root().Reader) {
		cmd.reader.Stdin = c.Root().Reader
	}

	raw, err := cmd.reader.Read()
	if err != nil {
		return err
	}

	sessions, errs := review.DecodeSessions(raw)
	for _, err := range errs {
		p.Warnf("skipped %v", err)
	}

	added, err := cmd.app.Orchestrator.ImportSessions(ctx, sessions)
	if err != nil {
		return err
	}

	p.Successf("Imported %d of %d session(s) from %s", added, len(raw), cmd.reader.Source())
	return nil
}

package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/colonyops/lens/internal/core/config"
	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/core/styles"
	"github.com/colonyops/lens/internal/data/jsonfile"
	"github.com/colonyops/lens/internal/lens"
	"github.com/colonyops/lens/internal/printer"
	"github.com/colonyops/lens/pkg/iojson"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

// titleWidth caps the code excerpt shown per session.
const titleWidth = 48

type LsCmd struct {
	flags *Flags
	app   *lens.App

	// flags
	jsonOutput bool
	watch      bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags, app *lens.App) *LsCmd {
	return &LsCmd{flags: flags, app: app}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List review sessions",
		UsageText: "lens ls [--json] [--watch]",
		Description: `Displays the review history, newest first.

Use --json for one JSON object per line. Use --watch to list again whenever
the history file changes (jsonfile store only).`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "watch",
				Usage:       "list again when the history changes",
				Destination: &cmd.watch,
			},
		},
		Action: cmd.run,
	})

	return app
}

// sessionInfo is the --json shape of a listed session.
type sessionInfo struct {
	ID        string          `json:"id"`
	Language  review.Language `json:"language"`
	Persona   review.Persona  `json:"persona"`
	Title     string          `json:"title"`
	Turns     int             `json:"turns"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if err := cmd.list(p, cmd.app.Orchestrator.Sessions()); err != nil {
		return err
	}
	if !cmd.watch {
		return nil
	}

	if cmd.app.Config.History.Store != config.StoreJSONFile {
		return fmt.Errorf("--watch requires the %s history store", config.StoreJSONFile)
	}

	watcher, err := jsonfile.NewWatcher(cmd.app.Config.HistoryFile(), log.Logger)
	if err != nil {
		return fmt.Errorf("watch history: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	p.Mutedf("Watching %s (ctrl+c to stop)", cmd.app.Config.HistoryFile())

	for range watcher.Changes(ctx) {
		p.Printf("")
		if err := cmd.list(p, cmd.app.Store.LoadAll(ctx)); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *LsCmd) list(p *printer.Printer, sessions []review.Session) error {
	out := p.Out()

	if cmd.jsonOutput {
		for _, s := range sessions {
			info := sessionInfo{
				ID:        s.ID,
				Language:  s.Language,
				Persona:   s.Persona,
				Title:     s.Title(0),
				Turns:     len(s.Conversation) / 2,
				CreatedAt: s.CreatedAt,
			}
			if err := iojson.WriteLine(out, info); err != nil {
				return fmt.Errorf("encode session: %w", err)
			}
		}
		return nil
	}

	if len(sessions) == 0 {
		p.Infof("No sessions found")
		return nil
	}

	writeTable(out, sessions)
	return nil
}

func writeTable(out io.Writer, sessions []review.Session) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tLANGUAGE\tPERSONA\tTURNS\tCODE")

	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			styles.IDStyle.Render(shortID(s.ID)),
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			s.Language,
			s.Persona,
			len(s.Conversation)/2,
			s.Title(titleWidth),
		)
	}

	_ = w.Flush()
}

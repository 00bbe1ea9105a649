package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/lens/internal/commands"
	"github.com/colonyops/lens/internal/core/backend"
	"github.com/colonyops/lens/internal/core/config"
	"github.com/colonyops/lens/internal/core/eventbus"
	"github.com/colonyops/lens/internal/core/render"
	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/core/styles"
	"github.com/colonyops/lens/internal/data/db"
	"github.com/colonyops/lens/internal/data/jsonfile"
	"github.com/colonyops/lens/internal/data/memory"
	"github.com/colonyops/lens/internal/data/stores"
	"github.com/colonyops/lens/internal/integration/reviewapi"
	"github.com/colonyops/lens/internal/lens"
	"github.com/colonyops/lens/internal/printer"
	"github.com/colonyops/lens/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

// busBuffer is the number of undelivered events the bus holds.
const busBuffer = 64

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		logCloser func()
		lensApp   = &lens.App{}
		database  *db.DB
		busCancel context.CancelFunc
		busDone   chan struct{}
	)

	flags := &commands.Flags{}
	p := printer.New(os.Stdout, os.Stderr)
	ctx = printer.NewContext(ctx, p)

	app := &cli.Command{
		Name:      "lens",
		Usage:     "Review code with an AI reviewer",
		UsageText: "lens [global options] command [command options]",
		Description: `Lens sends code to a review backend and keeps a history of review
sessions. Each session can be continued with follow-up questions and used to
generate fixed code or unit tests.

Run 'lens review' to start a review.
Run 'lens ls' to list earlier sessions.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("LENS_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file, - for stderr (defaults to <data-dir>/lens.log)",
				Sources:     cli.EnvVars("LENS_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("LENS_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("LENS_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "backend-url",
				Usage:       "review backend base URL (overrides backend.url)",
				Sources:     cli.EnvVars("LENS_BACKEND_URL"),
				Destination: &flags.BackendURL,
			},
			&cli.StringFlag{
				Name:        "store",
				Usage:       "history store: jsonfile, sqlite or memory (overrides history.store)",
				Sources:     cli.EnvVars("LENS_STORE"),
				Destination: &flags.Store,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "lens.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.BackendURL != "" {
				cfg.Backend.URL = flags.BackendURL
			}
			if flags.Store != "" {
				cfg.History.Store = config.StoreKind(flags.Store)
			}
			if err := cfg.Validate(); err != nil {
				return ctx, fmt.Errorf("invalid config: %w", err)
			}
			flags.Config = cfg

			// Validate has already checked the palette.
			palette, _ := cfg.Render.Palette()
			styles.SetTheme(palette)

			renderOpts := render.Options{Style: cfg.Render.Style, Width: cfg.Render.Width}
			if cfg.Render.Style == config.ThemeStyle {
				glamourStyle := styles.GlamourStyle()
				renderOpts.Styles = &glamourStyle
			}
			renderer := render.New(renderOpts, log.Logger)

			var store review.Store
			store, database, err = openStore(cfg)
			if err != nil {
				return ctx, err
			}

			gw := backend.WithRetry(
				reviewapi.New(cfg.Backend.URL, log.Logger,
					reviewapi.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
				),
				backend.RetryPolicy{Attempts: cfg.Backend.Retries, Backoff: cfg.Backend.RetryBackoff},
			)

			bus := eventbus.New(busBuffer)
			eventbus.RegisterDebugLogger(bus, log.Logger)
			eventbus.NewNotificationRouter(bus).Register()
			bus.SubscribeNoticePublished(func(n eventbus.NoticePublishedPayload) {
				// errors are returned by the command itself
				switch n.Level {
				case eventbus.NoticeWarning:
					p.Warnf("%s", n.Message)
				case eventbus.NoticeInfo:
					p.Infof("%s", n.Message)
				}
			})

			var busCtx context.Context
			busCtx, busCancel = context.WithCancel(context.Background())
			busDone = make(chan struct{})
			go func() {
				defer close(busDone)
				bus.Start(busCtx)
			}()

			defaults, err := cfg.DefaultDraft()
			if err != nil {
				return ctx, err
			}

			orch := lens.NewOrchestrator(ctx, gw, store, bus, log.Logger, lens.Options{
				MaxSessions: cfg.History.MaxSessions,
				Defaults:    defaults,
			})

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*lensApp = *lens.NewApp(orch, cfg, renderer, store, bus, database)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			// Deliver pending notices before exiting
			if busCancel != nil {
				busCancel()
				<-busDone
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewReviewCmd(flags, lensApp).Register(app)
	app = commands.NewLsCmd(flags, lensApp).Register(app)
	app = commands.NewShowCmd(flags, lensApp).Register(app)
	app = commands.NewAskCmd(flags, lensApp).Register(app)
	app = commands.NewDeriveCmd(flags, lensApp).Register(app)
	app = commands.NewFormatCmd(flags, lensApp).Register(app)
	app = commands.NewRmCmd(flags, lensApp).Register(app)
	app = commands.NewHistoryCmd(flags, lensApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		p.Errorf("%s", err)
		exitCode = 1
	}

	stop()
	os.Exit(exitCode)
}

// openStore builds the configured history store. The database is only
// opened for the sqlite store.
func openStore(cfg *config.Config) (review.Store, *db.DB, error) {
	storeLog := log.With().Str("component", "history").Logger()

	switch cfg.History.Store {
	case config.StoreSQLite:
		database, err := db.Open(cfg.DataDir, db.OpenOptions{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			BusyTimeout:  cfg.Database.BusyTimeout,
			Logger:       log.Logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return stores.NewHistoryStore(database, storeLog), database, nil
	case config.StoreMemory:
		return memory.NewHistoryStore(), nil, nil
	default:
		return jsonfile.NewHistoryStore(cfg.HistoryFile(), storeLog), nil, nil
	}
}

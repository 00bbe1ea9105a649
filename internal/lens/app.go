package lens

import (
	"github.com/colonyops/lens/internal/core/config"
	"github.com/colonyops/lens/internal/core/eventbus"
	"github.com/colonyops/lens/internal/core/render"
	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/data/db"
)

// App is the central entry point for all lens operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Orchestrator *Orchestrator
	Config       *config.Config
	Renderer     *render.Renderer
	Store        review.Store
	Bus          *eventbus.EventBus
	DB           *db.DB // nil unless the sqlite store is in use
}

// NewApp constructs an App from explicit dependencies.
func NewApp(
	orch *Orchestrator,
	cfg *config.Config,
	renderer *render.Renderer,
	store review.Store,
	bus *eventbus.EventBus,
	database *db.DB,
) *App {
	return &App{
		Orchestrator: orch,
		Config:       cfg,
		Renderer:     renderer,
		Store:        store,
		Bus:          bus,
		DB:           database,
	}
}

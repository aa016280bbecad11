package app

import (
	"context"
	"database/sql"

	"github.com/zeitblick/zeitblick/internal/config"
	"github.com/zeitblick/zeitblick/internal/event_bus"
	"github.com/zeitblick/zeitblick/internal/utils"
	"github.com/zeitblick/zeitblick/pkg/personio"
	"github.com/zeitblick/zeitblick/pkg/session"
	"github.com/zeitblick/zeitblick/pkg/timesheet"
	"github.com/zeitblick/zeitblick/pkg/troi"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Bus *event_bus.EventBus

	SessionRepo    session.Repo
	SessionService session.Service
	SessionHandler *session.Handler

	TroiClient     troi.Client
	PersonioClient personio.Client

	TimesheetService *timesheet.ServiceImpl
	TimesheetHandler *timesheet.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and
// handlers. ctx bounds every background refresh and is cancelled on
// shutdown.
func BuildDependencies(ctx context.Context, db *sql.DB, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Bus = event_bus.NewEventBus()

	deps.SessionRepo = session.NewRepo(db)
	deps.SessionService = session.NewService(deps.SessionRepo)
	deps.SessionHandler = session.NewHandler(deps.SessionService)

	deps.TroiClient = troi.NewClient(cfg.Troi.BaseURL, deps.SessionService)
	deps.PersonioClient = personio.NewClient(cfg.Personio)

	deps.TimesheetService = timesheet.NewService(ctx, deps.TroiClient, deps.PersonioClient, deps.SessionService, deps.Bus)
	deps.TimesheetHandler = timesheet.NewHandler(deps.TimesheetService)

	// An authentication failure observed by a background refresh evicts the
	// stored session as well, forcing re-authentication instead of a silent
	// stale state.
	deps.Bus.Subscribe(event_bus.SessionEvictedType, func(e event_bus.Event) error {
		if evicted, ok := e.Data.(event_bus.SessionEvicted); ok {
			return deps.SessionService.EvictSession(e.Context(), evicted.SessionUID)
		}
		return nil
	})

	deps.Clock = &utils.SystemClock{}

	return deps
}

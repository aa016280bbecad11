package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/zeitblick/zeitblick/internal/config"
	"github.com/zeitblick/zeitblick/internal/database"
)

// Application wires configuration, database, router, cron, and server
// lifecycle.
type Application struct {
	cfg    config.Application
	router *mux.Router
	srv    *http.Server
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication() (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}

	// DB + migrations
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(cfg.Database); err != nil {
		return nil, err
	}

	// ctx bounds all background refreshes; cancelled on Shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	r := mux.NewRouter()

	// Build dependencies (services, handlers...)
	deps := BuildDependencies(ctx, db, cfg)

	// Middleware chain
	SetupMiddleware(r, deps, cfg)

	// Routes
	RegisterRoutes(r, deps, cfg)

	// Periodic pruning of day buckets outside the sliding window
	c := cron.New()
	_, err = c.AddFunc(cfg.Cache.PruneCron, func() {
		deps.TimesheetService.PruneAll(cfg.Cache.WindowDays)
	})
	if err != nil {
		cancel()
		return nil, err
	}

	srv := &http.Server{
		Handler:      r,
		Addr:         ":8181",
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, router: r, srv: srv, cron: c, cancel: cancel}, nil
}

// Run starts the cron scheduler and the HTTP server, and blocks.
func (a *Application) Run() error {
	a.cron.Start()
	log.Infof("Starting server on %s", a.srv.Addr)
	return a.srv.ListenAndServe()
}

// Shutdown stops the cron scheduler, cancels background refreshes, and
// shuts the HTTP server down.
func (a *Application) Shutdown(ctx context.Context) error {
	a.cron.Stop()
	a.cancel()
	return a.srv.Shutdown(ctx)
}

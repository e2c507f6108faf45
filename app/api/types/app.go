package types

import (
	"context"
	"net/http"
	"time"

	"github.com/Macmachi/kasland/pkg/catalog"
	"github.com/Macmachi/kasland/pkg/config"
	"github.com/Macmachi/kasland/pkg/db"
	"github.com/Macmachi/kasland/pkg/engine"
	"github.com/Macmachi/kasland/pkg/scheduler"
	"go.uber.org/zap"
)

// App bundles the dependencies the public API handlers and the scheduled
// jobs share.
type App struct {
	Config    *config.Config
	Store     *db.Store
	Catalog   *catalog.Catalog
	Engine    *engine.Engine
	Scheduler *scheduler.Scheduler
	Logger    *zap.Logger

	Server *http.Server
}

// Start runs the scheduler and the HTTP server until the context is
// cancelled, then shuts both down.
func (a *App) Start(ctx context.Context) {
	a.Scheduler.Start()
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.Server.Shutdown(shutdownCtx)
	a.Scheduler.Stop(10 * time.Second)

	if err := a.Store.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}
	a.Logger.Info("Shutdown complete")
}

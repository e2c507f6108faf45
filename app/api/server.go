package api

import (
	"net/http"

	"github.com/Macmachi/kasland/app/api/controller"
	"github.com/Macmachi/kasland/app/api/types"
	"go.uber.org/zap"
)

// NewServer wires the router and attaches an http.Server to the app.
func NewServer(app *types.App) error {
	ctler := controller.NewController(app)
	router, err := ctler.NewRouter()
	if err != nil {
		return err
	}

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := app.Config.HTTPAddr

	app.Server = &http.Server{Addr: addr, Handler: controller.WithCORS(router)}
	app.Logger.Info("Starting server", zap.String("addr", addr))

	return nil
}

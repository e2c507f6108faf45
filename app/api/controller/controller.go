package controller

import (
	"encoding/json"
	"net/http"

	"github.com/Macmachi/kasland/app/api/types"
	"github.com/gorilla/mux"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/api/health", http.HandlerFunc(c.HandleHealth)).Methods(http.MethodGet)

	r.HandleFunc("/api/top_wallets", c.HandleTopWallets).Methods(http.MethodGet)
	r.HandleFunc("/api/kasland_status", c.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/all_parcels", c.HandleAllParcels).Methods(http.MethodGet)
	r.HandleFunc("/api/game_info", c.HandleGameInfo).Methods(http.MethodGet)
	r.HandleFunc("/api/energy_stats", c.HandleEnergyStats).Methods(http.MethodGet)
	r.HandleFunc("/api/current_events", c.HandleCurrentEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/parcels_for_sale", c.HandleParcelsForSale).Methods(http.MethodGet)

	return r, nil
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.App.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "database connection error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package controller

import (
	"net/http"
	"time"

	"github.com/Macmachi/kasland/pkg/db"
	"go.uber.org/zap"
)

type eventView struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	EndTime     int64  `json:"end_time"`
}

// HandleCurrentEvents lists the events whose window covers the current time.
func (c *Controller) HandleCurrentEvents(w http.ResponseWriter, r *http.Request) {
	now := time.Now().Unix()

	var events []db.Event
	err := c.App.Store.WithTx(r.Context(), func(tx *db.Tx) error {
		var err error
		events, err = tx.CurrentEvents(now)
		return err
	})
	if err != nil {
		c.App.Logger.Error("current events query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{
			ID:          e.ID,
			Type:        e.EventType,
			Description: e.Description,
			EndTime:     e.EndTime,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

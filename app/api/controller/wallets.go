package controller

import (
	"net/http"

	"github.com/Macmachi/kasland/pkg/db"
	"go.uber.org/zap"
)

type walletEntry struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
}

// HandleTopWallets returns the ten addresses holding the most zkaspa.
func (c *Controller) HandleTopWallets(w http.ResponseWriter, r *http.Request) {
	var leaders []db.WalletLeader
	err := c.App.Store.WithTx(r.Context(), func(tx *db.Tx) error {
		var err error
		leaders, err = tx.TopWalletsByZkaspa(10)
		return err
	})
	if err != nil {
		c.App.Logger.Error("top wallets query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]walletEntry, 0, len(leaders))
	for _, l := range leaders {
		out = append(out, walletEntry{Address: l.Address, Amount: l.Amount})
	}
	writeJSON(w, http.StatusOK, out)
}

const (
	fullMessage      = "All plots have been sold. If you do not have a plot yet, please purchase them directly from the sellers. To do this, kindly transfer the exact amount indicated to the player's wallet address. Do not send money to the game's wallet to acquire a plot."
	availableMessage = "Plots are available."
)

// HandleStatus reports whether every parcel already has an owner.
func (c *Controller) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var total, owned int
	err := c.App.Store.WithTx(r.Context(), func(tx *db.Tx) error {
		var err error
		total, owned, err = tx.ParcelTotals()
		return err
	})
	if err != nil {
		c.App.Logger.Error("status query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	isFull := total == owned
	msg := availableMessage
	if isFull {
		msg = fullMessage
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"is_full": isFull,
		"message": msg,
	})
}

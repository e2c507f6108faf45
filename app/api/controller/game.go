package controller

import (
	"net/http"
	"time"

	"github.com/Macmachi/kasland/pkg/db"
	"go.uber.org/zap"
)

type yesterdayStats struct {
	TotalEnergyProduction     *float64 `json:"total_energy_production"`
	TotalEnergyConsumption    *float64 `json:"total_energy_consumption"`
	TotalZkaspa               *float64 `json:"total_zkaspa"`
	PredictedZkaspaProduction *float64 `json:"predicted_zkaspa_production"`
}

// HandleGameInfo aggregates the headline game state: parcel counts, the
// community fund, the live production cycle and yesterday's snapshot.
func (c *Controller) HandleGameInfo(w http.ResponseWriter, r *http.Request) {
	prod, err := c.App.Engine.ProductionSnapshot(r.Context())
	if err != nil {
		c.App.Logger.Error("production snapshot failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	var (
		totalParcels  int
		totalAmount   float64
		uniqueOwners  int
		totalZkaspa   float64
		yesterdayStat *db.DailyStat
	)
	yesterday := time.Now().AddDate(0, 0, -1).Format(time.DateOnly)
	err = c.App.Store.WithTx(r.Context(), func(tx *db.Tx) error {
		var err error
		if totalParcels, _, err = tx.ParcelTotals(); err != nil {
			return err
		}
		if totalAmount, err = tx.TotalPurchaseAmount(); err != nil {
			return err
		}
		if uniqueOwners, err = tx.UniqueOwners(); err != nil {
			return err
		}
		if totalZkaspa, err = tx.TotalZkaspa(); err != nil {
			return err
		}
		yesterdayStat, err = tx.DailyStatFor(yesterday)
		return err
	})
	if err != nil {
		c.App.Logger.Error("game info query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	var ys yesterdayStats
	if yesterdayStat != nil {
		ys = yesterdayStats{
			TotalEnergyProduction:     &yesterdayStat.TotalEnergyProduction,
			TotalEnergyConsumption:    &yesterdayStat.TotalEnergyConsumption,
			TotalZkaspa:               &yesterdayStat.TotalZkaspa,
			PredictedZkaspaProduction: &yesterdayStat.PredictedZkaspaProduction,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_parcels":               totalParcels,
		"community_fund":              totalAmount * c.App.Config.CommunityFundingPercentage,
		"redistribution_amount":       totalAmount * c.App.Config.RedistributionPercentage,
		"unique_owners":               uniqueOwners,
		"total_energy_production":     prod.EnergyProduction,
		"total_energy_consumption":    prod.EnergyConsumption,
		"total_zkaspa":                totalZkaspa,
		"predicted_zkaspa_production": prod.ZkaspaProduction,
		"event_type":                  eventTypeOrNil(prod.EventType),
		"energy_multiplier":           prod.EnergyMultiplier,
		"zkaspa_multiplier":           prod.ZkaspaMultiplier,
		"yesterday_stats":             ys,
	})
}

// HandleEnergyStats returns the live production cycle without the ownership
// aggregates.
func (c *Controller) HandleEnergyStats(w http.ResponseWriter, r *http.Request) {
	prod, err := c.App.Engine.ProductionSnapshot(r.Context())
	if err != nil {
		c.App.Logger.Error("production snapshot failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	var totalZkaspa float64
	err = c.App.Store.WithTx(r.Context(), func(tx *db.Tx) error {
		var err error
		totalZkaspa, err = tx.TotalZkaspa()
		return err
	})
	if err != nil {
		c.App.Logger.Error("energy stats query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_energy_production":     prod.EnergyProduction,
		"total_energy_consumption":    prod.EnergyConsumption,
		"total_zkaspa":                totalZkaspa,
		"predicted_zkaspa_production": prod.ZkaspaProduction,
		"event_type":                  eventTypeOrNil(prod.EventType),
		"energy_multiplier":           prod.EnergyMultiplier,
		"zkaspa_multiplier":           prod.ZkaspaMultiplier,
	})
}

func eventTypeOrNil(eventType string) *string {
	if eventType == "" {
		return nil
	}
	return &eventType
}

package engine

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/Macmachi/kasland/pkg/catalog"
	"github.com/Macmachi/kasland/pkg/db"
)

// Bootstrap reconciles the store with the configured catalog at startup:
// tier and variant rows are upserted, changed fee frequencies restart fee
// clocks, per-parcel cached economics are refreshed, every owned parcel is
// re-resolved against the new catalog, the grid is grown to the configured
// size and the map size is persisted. Runs in one transaction.
func (e *Engine) Bootstrap(ctx context.Context) error {
	now := e.now().Unix()

	return e.store.WithTx(ctx, func(tx *db.Tx) error {
		stored, err := tx.BuildingTypes()
		if err != nil {
			return err
		}
		known := make(map[string]db.BuildingTypeRow, len(stored))
		for _, row := range stored {
			known[row.Name] = row
		}

		added := map[string]bool{}
		for _, tier := range e.cat.Tiers() {
			old, existed := known[tier.Name]
			if !existed {
				added[tier.Name] = true
			}

			maxCount := sql.NullInt64{}
			if tier.MaxCount > 0 {
				maxCount = sql.NullInt64{Int64: int64(tier.MaxCount), Valid: true}
			}
			err := tx.UpsertBuildingType(db.BuildingTypeRow{
				Name:              tier.Name,
				MinAmount:         tier.MinAmount,
				MaxAmount:         tier.MaxAmount,
				FeeAmount:         tier.FeeAmount,
				FeeFrequency:      int64(tier.FeeFrequencyDays),
				BuildingCategory:  tier.Category,
				EnergyProduction:  tier.EnergyProduction,
				EnergyConsumption: tier.EnergyConsumption,
				ZkaspaProduction:  tier.ZkaspaProduction,
				MaxCount:          maxCount,
			})
			if err != nil {
				return err
			}
			for _, v := range tier.Variants {
				err := tx.UpsertVariant(db.VariantRow{
					BuildingType: tier.Name, Variant: v.Name, Probability: v.Probability,
				})
				if err != nil {
					return err
				}
			}

			if existed && old.FeeFrequency != int64(tier.FeeFrequencyDays) {
				if err := tx.SyncFeeDates(tier.Name, int64(tier.FeeFrequencyDays), now); err != nil {
					return err
				}
				e.logger.Info("fee frequency changed, fee clocks restarted",
					zap.String("building_type", tier.Name),
					zap.Int64("old_days", old.FeeFrequency),
					zap.Int("new_days", tier.FeeFrequencyDays))
			}

			err = tx.SyncParcelStats(tier.Name, tier.FeeAmount, int64(tier.FeeFrequencyDays),
				tier.EnergyProduction, tier.EnergyConsumption, tier.ZkaspaProduction)
			if err != nil {
				return err
			}
		}

		if err := e.reresolveParcels(tx, added); err != nil {
			return err
		}
		if err := e.growGrid(tx); err != nil {
			return err
		}

		mapSize := (e.cfg.TotalParcels-1)/e.cfg.ParcelsPerRow + 1
		if mapSize < e.cfg.ParcelsPerRow {
			mapSize = e.cfg.ParcelsPerRow
		}
		return tx.SetParameter("map_size", fmt.Sprint(mapSize))
	})
}

// reresolveParcels re-evaluates tier and variant for every owned parcel
// against the current catalog. A parcel whose amount now maps to a different
// tier (or to a newly added one) moves; a parcel whose variant no longer
// exists redraws it. When nothing qualifies the current tier is retained.
func (e *Engine) reresolveParcels(tx *db.Tx, added map[string]bool) error {
	owned, err := tx.OwnedParcels()
	if err != nil {
		return err
	}

	for _, p := range owned {
		resolution, err := e.cat.Resolve(p.PurchaseAmount.Float64, p.BuildingVariant.String, tx.CountByBuildingType)
		if err != nil {
			return err
		}
		if resolution == nil {
			e.logger.Warn("no tier qualifies for parcel, keeping current",
				zap.Int64("parcel_id", p.ID),
				zap.String("building_type", p.BuildingType.String))
			continue
		}

		tier := resolution.Tier
		switch {
		case tier.Name != p.BuildingType.String || added[tier.Name]:
			if err := tx.SetBuilding(p.ID, tier.Name, resolution.Variant); err != nil {
				return err
			}
			err := tx.SyncParcelEconomics(p.ID, tier.FeeAmount, int64(tier.FeeFrequencyDays),
				tier.EnergyProduction, tier.EnergyConsumption, tier.ZkaspaProduction)
			if err != nil {
				return err
			}
			e.logger.Info("parcel re-resolved",
				zap.Int64("parcel_id", p.ID),
				zap.String("from", p.BuildingType.String),
				zap.String("to", tier.Name))

		case !tier.HasVariant(p.BuildingVariant.String):
			variant := catalog.PickVariant(tier, "")
			if err := tx.SetVariant(p.ID, variant); err != nil {
				return err
			}
			e.logger.Info("parcel variant redrawn",
				zap.Int64("parcel_id", p.ID),
				zap.String("old_variant", p.BuildingVariant.String),
				zap.String("new_variant", variant))
		}
	}
	return nil
}

// growGrid appends unowned parcels in row-major order until the configured
// total is reached. Existing parcels are never moved or removed.
func (e *Engine) growGrid(tx *db.Tx) error {
	total, _, err := tx.ParcelTotals()
	if err != nil {
		return err
	}
	if total >= e.cfg.TotalParcels {
		return nil
	}

	maxIndex, err := tx.MaxParcelIndex(e.cfg.ParcelsPerRow)
	if err != nil {
		return err
	}

	coords := make([][2]int, 0, e.cfg.TotalParcels-total)
	for i := total; i < e.cfg.TotalParcels; i++ {
		maxIndex++
		coords = append(coords, [2]int{maxIndex / e.cfg.ParcelsPerRow, maxIndex % e.cfg.ParcelsPerRow})
	}
	if err := tx.CreateParcels(coords); err != nil {
		return err
	}
	e.logger.Info("parcel grid grown", zap.Int("added", len(coords)), zap.Int("total", e.cfg.TotalParcels))
	return nil
}

package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/Macmachi/kasland/pkg/db"
)

// SweepFees is the daily fee check. Parcels past their next fee date are
// kept through the grace period with their due amount refreshed; parcels
// past the grace period are repossessed and the owner's wallet history is
// wiped. The whole sweep runs in one transaction.
func (e *Engine) SweepFees(ctx context.Context) error {
	now := e.now().Unix()
	var reset, grace int

	err := e.store.WithTx(ctx, func(tx *db.Tx) error {
		overdue, err := tx.OverdueParcels(now)
		if err != nil {
			return err
		}
		for _, p := range overdue {
			graceEnd := p.NextFeeDate + int64(e.cfg.GracePeriodDays)*86400
			if !e.cfg.GracePeriodEnabled || now > graceEnd {
				if err := tx.ResetParcel(p.ID); err != nil {
					return err
				}
				if p.OwnerAddress.Valid {
					if _, err := tx.DeleteWallet(p.OwnerAddress.String); err != nil {
						return err
					}
				}
				if err := tx.DeleteWatchEntriesByAddress(p.OwnerAddress.String); err != nil {
					return err
				}
				reset++
				e.logger.Info("parcel repossessed for unpaid fees",
					zap.Int64("parcel_id", p.ID),
					zap.String("owner", p.OwnerAddress.String),
					zap.String("building_type", p.BuildingType.String))
			} else {
				if err := tx.MarkFeeChecked(p.ID, now, p.FeeAmount); err != nil {
					return err
				}
				grace++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("fee sweep completed", zap.Int("reset", reset), zap.Int("grace_period", grace))
	return nil
}

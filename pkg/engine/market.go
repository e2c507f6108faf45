package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Macmachi/kasland/pkg/db"
	"github.com/Macmachi/kasland/pkg/utils"
)

// paymentWindow bounds how far back the monitor looks for a buyer's payment.
const paymentWindow = 24 * time.Hour

// listForSale lists the owner's parcel at their lifetime wallet total, or at
// total × multiplier when a multiplier key was paid. A second listing payment
// is a price update; the pending watch entry follows the new price.
func (e *Engine) listForSale(tx *db.Tx, sender string, p *db.Parcel, multiplier float64, now int64) (Result, error) {
	total, err := tx.WalletTotal(sender)
	if err != nil {
		return Result{}, err
	}

	price := utils.Round1(total)
	if multiplier > 0 {
		price = utils.Round1(total * multiplier)
	}

	if p.IsForSale {
		if err := tx.UpdateSalePrice(p.ID, price); err != nil {
			return Result{}, err
		}
		if err := tx.UpdateWatchAmount(sender, p.ID, price); err != nil {
			return Result{}, err
		}
		e.logger.Info("sale price updated",
			zap.Int64("parcel_id", p.ID), zap.String("seller", sender), zap.Float64("price", price))
		return Result{Success: true, Message: "sale price updated"}, nil
	}

	if err := tx.SetForSale(p.ID, price); err != nil {
		return Result{}, err
	}
	if err := tx.InsertWatchEntry(sender, price, p.ID, now); err != nil {
		return Result{}, err
	}
	e.logger.Info("parcel listed for sale",
		zap.Int64("parcel_id", p.ID), zap.String("seller", sender), zap.Float64("price", price))
	return Result{Success: true, Message: "parcel listed for sale"}, nil
}

// cancelSale delists the seller's parcel and re-evaluates its tier: payments
// made while listed were banked but not applied, so the building may owe an
// upgrade.
func (e *Engine) cancelSale(tx *db.Tx, sender string, now int64) (Result, error) {
	p, err := tx.ForSaleParcelByOwner(sender)
	if err != nil {
		return Result{}, err
	}
	if p == nil {
		return Result{Success: false, Message: "no parcel listed for sale"}, nil
	}

	if err := tx.ClearForSale(p.ID); err != nil {
		return Result{}, err
	}
	if err := tx.DeleteWatchEntriesByAddress(sender); err != nil {
		return Result{}, err
	}

	total, err := tx.WalletTotal(sender)
	if err != nil {
		return Result{}, err
	}
	resolution, err := e.cat.Resolve(total, p.BuildingVariant.String, tx.CountByBuildingType)
	if err != nil {
		return Result{}, err
	}

	if resolution != nil && resolution.Tier.Name != p.BuildingType.String {
		if _, err := e.upgradeBuilding(tx, sender, total-p.PurchaseAmount.Float64, false, "", now); err != nil {
			return Result{}, err
		}
	} else if err := tx.UpdatePurchaseAmount(p.ID, total); err != nil {
		return Result{}, err
	}

	e.logger.Info("sale cancelled", zap.Int64("parcel_id", p.ID), zap.String("seller", sender))
	return Result{Success: true, Message: "sale cancellation successful"}, nil
}

// settlePurchase hands a sold parcel to its buyer. A repeat buyer carries
// their full zkaspa balance over and their old parcel is released; a
// first-time buyer receives half the sold parcel's balance, the rest is
// forfeited. The buyer's wallet total restarts at the sale amount.
func (e *Engine) settlePurchase(tx *db.Tx, buyer string, parcelID, watchID int64, saleAmount float64, now int64) error {
	existing, err := tx.ParcelByOwner(buyer)
	if err != nil {
		return err
	}
	sold, err := tx.Parcel(parcelID)
	if err != nil {
		return err
	}
	if sold == nil {
		return db.ErrNoRowsAffected
	}

	var zkaspaToTransfer, previousPurchase float64
	firstParcel := existing == nil
	if firstParcel {
		zkaspaToTransfer = sold.ZkaspaBalance * 0.5
	} else {
		zkaspaToTransfer = existing.ZkaspaBalance
		previousPurchase = existing.PurchaseAmount.Float64
		if err := tx.ResetParcel(existing.ID); err != nil {
			return err
		}
	}

	if err := tx.ResetWalletTotal(buyer, saleAmount); err != nil {
		return err
	}
	if err := tx.TransferParcel(parcelID, buyer, zkaspaToTransfer, saleAmount, now); err != nil {
		return err
	}
	if err := tx.CompleteWatchEntry(watchID); err != nil {
		return err
	}

	// Re-resolve the tier for the buyer's effective total, keeping the sold
	// building's variant.
	upgradeAmount := saleAmount
	if !firstParcel {
		upgradeAmount = previousPurchase + saleAmount
	}
	upgrade, err := e.upgradeBuilding(tx, buyer, upgradeAmount, true, sold.BuildingVariant.String, now)
	if err != nil {
		return err
	}

	e.logger.Info("parcel purchase settled",
		zap.Int64("parcel_id", parcelID),
		zap.String("buyer", buyer),
		zap.Float64("sale_amount", saleAmount),
		zap.Float64("zkaspa_transferred", zkaspaToTransfer),
		zap.Bool("first_parcel", firstParcel),
		zap.String("building", upgrade.Message))
	return nil
}

// MonitorMarketplace checks every pending watch entry for the expected
// payment on the seller's address. Feed lookups happen outside any store
// transaction; each settlement gets its own transaction. Entries whose
// parcel is no longer for sale are dropped.
func (e *Engine) MonitorMarketplace(ctx context.Context) error {
	var pending []db.WatchEntry
	err := e.store.WithTx(ctx, func(tx *db.Tx) error {
		var err error
		pending, err = tx.PendingWatchEntries()
		return err
	})
	if err != nil {
		return err
	}

	for _, entry := range pending {
		sender, found, err := e.feed.FindPayment(ctx, entry.Address, entry.ExpectedAmount, paymentWindow)
		if err != nil {
			e.logger.Warn("marketplace payment lookup failed",
				zap.String("seller", entry.Address), zap.Error(err))
			continue
		}

		if found && sender != "" {
			now := e.now().Unix()
			err := e.store.WithTx(ctx, func(tx *db.Tx) error {
				return e.settlePurchase(tx, sender, entry.ParcelID, entry.ID, entry.ExpectedAmount, now)
			})
			if err != nil {
				e.logger.Error("parcel purchase settlement failed",
					zap.Int64("parcel_id", entry.ParcelID), zap.Error(err))
			}
			continue
		}
		if found {
			e.logger.Warn("payment found but buyer could not be identified",
				zap.String("seller", entry.Address), zap.Float64("amount", entry.ExpectedAmount))
			continue
		}

		e.cleanupOrDefer(ctx, entry)
	}
	return nil
}

// cleanupOrDefer drops the watch entry when its parcel was delisted, and
// otherwise logs the wait at most once per hour per seller.
func (e *Engine) cleanupOrDefer(ctx context.Context, entry db.WatchEntry) {
	deleted := false
	err := e.store.WithTx(ctx, func(tx *db.Tx) error {
		p, err := tx.Parcel(entry.ParcelID)
		if err != nil {
			return err
		}
		if p == nil || !p.IsForSale {
			deleted = true
			return tx.DeleteWatchEntry(entry.ID)
		}
		return nil
	})
	if err != nil {
		e.logger.Warn("watch entry cleanup failed", zap.Int64("entry_id", entry.ID), zap.Error(err))
		return
	}
	if deleted {
		e.logger.Info("watch entry removed: parcel no longer for sale",
			zap.Int64("parcel_id", entry.ParcelID), zap.String("seller", entry.Address))
		return
	}

	now := e.now().Unix()
	if last, ok := e.lastNoMatchLog.Load(entry.Address); !ok || now-last >= 3600 {
		e.lastNoMatchLog.Store(entry.Address, now)
		e.logger.Info("no matching payment yet for listed parcel",
			zap.String("seller", entry.Address),
			zap.Float64("expected_amount", entry.ExpectedAmount))
	}
}

package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Macmachi/kasland/pkg/catalog"
	"github.com/Macmachi/kasland/pkg/db"
	"github.com/Macmachi/kasland/pkg/utils"
)

// HandleTransaction classifies and applies one incoming payment to the game
// address. The whole decision runs in a single store transaction: the
// duplicate guard, the wallet update, the action itself and the processed
// mark commit together. A store error rolls everything back and leaves the
// transaction unmarked, so the next poll retries it.
func (e *Engine) HandleTransaction(ctx context.Context, sender string, amount float64, txID string, timestamp int64) (Result, error) {
	res := Result{Success: false, Message: "unexpected error while processing the transaction"}

	err := e.store.WithTx(ctx, func(tx *db.Tx) error {
		seen, err := tx.TransactionProcessed(txID)
		if err != nil {
			return err
		}
		if seen {
			res = Result{Success: false, Message: "transaction already processed"}
			return nil
		}

		if err := tx.AccumulateWallet(sender, amount, txID, timestamp); err != nil {
			return err
		}
		total, err := tx.WalletTotal(sender)
		if err != nil {
			return err
		}
		parcel, err := tx.ParcelByOwner(sender)
		if err != nil {
			return err
		}

		now := e.now().Unix()
		tol := e.cfg.AmountTolerance

		switch {
		case utils.Near(amount, e.cfg.ListForSaleAmount, tol):
			if parcel == nil {
				res = Result{Success: false, Message: "unable to list for sale: no parcel owned"}
			} else if res, err = e.listForSale(tx, sender, parcel, 0, now); err != nil {
				return err
			}

		case utils.Near(amount, e.cfg.CancelSaleAmount, tol):
			if parcel == nil {
				res = Result{Success: false, Message: "unable to cancel sale: no parcel owned"}
			} else if res, err = e.cancelSale(tx, sender, now); err != nil {
				return err
			}

		default:
			mult := e.cfg.MultiplierFor(amount)
			switch {
			case parcel != nil && mult > 0:
				if res, err = e.listForSale(tx, sender, parcel, mult, now); err != nil {
					return err
				}
			case parcel != nil && parcel.IsForSale:
				// A plain payment while listed is a price update at the
				// new lifetime total.
				if res, err = e.listForSale(tx, sender, parcel, 0, now); err != nil {
					return err
				}
			case parcel != nil:
				if res, err = e.existingParcel(tx, sender, amount, parcel, now, txID); err != nil {
					return err
				}
			case total >= e.cfg.MinimumPurchaseAmount:
				if res, err = e.newParcel(tx, sender, total, now); err != nil {
					return err
				}
			default:
				res = Result{Success: false, Message: fmt.Sprintf("insufficient amount: minimum required is %g KAS", e.cfg.MinimumPurchaseAmount)}
			}
		}

		return tx.MarkTransactionProcessed(txID, now)
	})
	if err != nil {
		return Result{Success: false, Message: "error while processing the transaction"}, err
	}

	// The feed replays recent history every poll; duplicates are routine.
	level := zap.InfoLevel
	if res.Message == "transaction already processed" {
		level = zap.DebugLevel
	}
	e.logger.Log(level, "transaction processed",
		zap.String("tx_id", txID),
		zap.String("sender", sender),
		zap.Float64("amount", amount),
		zap.Bool("success", res.Success),
		zap.String("result", res.Message))
	return res, nil
}

// existingParcel settles a due maintenance fee first, then attempts an
// upgrade with the full amount. The fee is not deducted from the upgrade
// amount.
func (e *Engine) existingParcel(tx *db.Tx, sender string, amount float64, p *db.Parcel, now int64, txID string) (Result, error) {
	feePaid := false
	feeAmount := p.LastFeeAmount.Float64

	if p.NextFeeDate.Valid && p.NextFeeDate.Int64 <= now {
		if amount < feeAmount {
			return Result{Success: false, Message: "insufficient payment to cover fees"}, nil
		}
		next := now + p.FeeFrequency.Int64*86400
		if err := tx.SettleFee(sender, now, next); err != nil {
			return Result{}, err
		}
		err := tx.InsertFeePayment(db.FeePayment{
			ParcelID:      p.ID,
			PaymentDate:   now,
			Amount:        feeAmount,
			BuildingType:  p.BuildingType,
			TransactionID: sql.NullString{String: txID, Valid: true},
		})
		if err != nil {
			return Result{}, err
		}
		feePaid = true
	}

	upgrade, err := e.upgradeBuilding(tx, sender, amount, false, "", now)
	if err != nil {
		return Result{}, err
	}

	var parts []string
	if feePaid {
		parts = append(parts, fmt.Sprintf("fees of %g KAS paid", feeAmount))
	}
	if upgrade.Success {
		parts = append(parts, upgrade.Message)
	} else {
		parts = append(parts, "no upgrade performed")
	}
	return Result{Success: feePaid || upgrade.Success, Message: strings.Join(parts, "; ")}, nil
}

// newParcel assigns a random unowned parcel to a first-time contributor.
func (e *Engine) newParcel(tx *db.Tx, sender string, total float64, now int64) (Result, error) {
	parcel, err := tx.RandomUnassignedParcel()
	if err != nil {
		return Result{}, err
	}
	if parcel == nil {
		return Result{Success: false, Message: "no unassigned parcel available"}, nil
	}

	resolution, err := e.cat.Resolve(total, "", tx.CountByBuildingType)
	if err != nil {
		return Result{}, err
	}
	if resolution == nil {
		return Result{Success: false, Message: "no building type available for this amount"}, nil
	}

	tier := resolution.Tier
	err = tx.AssignParcel(parcel.ID, db.ParcelAssignment{
		Owner:             sender,
		BuildingType:      tier.Name,
		BuildingVariant:   resolution.Variant,
		PurchaseAmount:    total,
		PurchaseDate:      now,
		LastFeePayment:    now,
		LastFeeCheck:      now,
		LastFeeAmount:     tier.FeeAmount,
		FeeFrequency:      tier.FeeFrequencyDays,
		NextFeeDate:       now + int64(tier.FeeFrequencyDays)*86400,
		EnergyProduction:  tier.EnergyProduction,
		EnergyConsumption: tier.EnergyConsumption,
		ZkaspaProduction:  tier.ZkaspaProduction,
		ZkaspaBalance:     0,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("parcel %d assigned with building %s (variant %s) at (%d, %d)",
			parcel.ID, tier.Name, resolution.Variant, parcel.X, parcel.Y),
	}, nil
}

// upgradeBuilding re-resolves the owner's tier for a new cumulative amount.
// With isBuy the amount is the new total; otherwise it is added to the
// parcel's recorded purchase amount. When no tier qualifies (population
// caps) the current tier is kept.
func (e *Engine) upgradeBuilding(tx *db.Tx, address string, amount float64, isBuy bool, keepVariant string, now int64) (Result, error) {
	p, err := tx.ParcelByOwner(address)
	if err != nil {
		return Result{}, err
	}
	if p == nil {
		return Result{Success: false, Message: "parcel not found for this address"}, nil
	}

	newTotal := amount
	if !isBuy {
		newTotal = p.PurchaseAmount.Float64 + amount
	}
	currentVariant := keepVariant
	if currentVariant == "" {
		currentVariant = p.BuildingVariant.String
	}
	currentType := p.BuildingType.String

	resolution, err := e.cat.Resolve(newTotal, currentVariant, tx.CountByBuildingType)
	if err != nil {
		return Result{}, err
	}

	var tier catalog.Tier
	var variant string
	if resolution != nil {
		tier = resolution.Tier
		variant = resolution.Variant
	} else {
		current, ok := e.cat.Tier(currentType)
		if !ok {
			return Result{Success: false, Message: "unknown building type " + currentType}, nil
		}
		tier = current
		variant = catalog.PickVariant(tier, currentVariant)
	}

	err = tx.UpdateBuildingByOwner(address, db.BuildingUpdate{
		BuildingType:      tier.Name,
		BuildingVariant:   variant,
		PurchaseAmount:    newTotal,
		LastFeeAmount:     tier.FeeAmount,
		FeeFrequency:      tier.FeeFrequencyDays,
		NextFeeDate:       now + int64(tier.FeeFrequencyDays)*86400,
		LastFeePayment:    now,
		EnergyProduction:  tier.EnergyProduction,
		EnergyConsumption: tier.EnergyConsumption,
		ZkaspaProduction:  tier.ZkaspaProduction,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("building upgraded from %s (variant %s) to %s (variant %s)",
			currentType, currentVariant, tier.Name, variant),
	}, nil
}

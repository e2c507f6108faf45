package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Macmachi/kasland/pkg/db"
)

// Production is one computed production cycle: event-adjusted energy output,
// raw consumption, and the zkaspa the cycle will yield (zero under an energy
// deficit).
type Production struct {
	EnergyProduction  float64
	EnergyConsumption float64
	ZkaspaProduction  float64
	EventType         string
	EnergyMultiplier  float64
	ZkaspaMultiplier  float64
}

// computeProduction evaluates the current cycle inside an open transaction.
func (e *Engine) computeProduction(tx *db.Tx, now int64) (Production, error) {
	p := Production{EnergyMultiplier: 1, ZkaspaMultiplier: 1}

	event, err := tx.ActiveEvent(now)
	if err != nil {
		return p, err
	}
	if event != nil {
		p.EventType = event.EventType
		p.EnergyMultiplier = event.EnergyMultiplier
		p.ZkaspaMultiplier = event.ZkaspaMultiplier
	}

	rawProd, cons, err := tx.EnergyTotals()
	if err != nil {
		return p, err
	}
	rawZkaspa, err := tx.PredictedZkaspa(e.cfg.WindTurbineBonus)
	if err != nil {
		return p, err
	}

	p.EnergyProduction = rawProd * p.EnergyMultiplier
	p.EnergyConsumption = cons
	p.ZkaspaProduction = rawZkaspa * p.EnergyMultiplier * p.ZkaspaMultiplier
	if p.EnergyProduction < p.EnergyConsumption {
		p.ZkaspaProduction = 0
	}
	return p, nil
}

// Distribute credits one day of zkaspa production to every owned parcel.
// Under an energy deficit nothing is distributed and balances stay put.
func (e *Engine) Distribute(ctx context.Context) error {
	now := e.now().Unix()
	return e.store.WithTx(ctx, func(tx *db.Tx) error {
		p, err := e.computeProduction(tx, now)
		if err != nil {
			return err
		}

		if p.EnergyProduction < p.EnergyConsumption {
			e.logger.Info("energy deficit: no zkaspa distributed",
				zap.Float64("production", p.EnergyProduction),
				zap.Float64("consumption", p.EnergyConsumption))
			return nil
		}

		if err := tx.CreditZkaspa(e.cfg.WindTurbineBonus, p.EnergyMultiplier*p.ZkaspaMultiplier); err != nil {
			return err
		}
		total, err := tx.TotalZkaspa()
		if err != nil {
			return err
		}
		e.logger.Info("zkaspa distributed",
			zap.Float64("distributed", p.ZkaspaProduction),
			zap.Float64("total_zkaspa", total),
			zap.String("event", p.EventType))
		return nil
	})
}

// SaveDailyStats snapshots the ending day, rolls the dice for a new event
// and records the new day's prediction, all in one transaction.
func (e *Engine) SaveDailyStats(ctx context.Context) error {
	now := e.now()
	nowUnix := now.Unix()
	date := now.Format(time.DateOnly)

	return e.store.WithTx(ctx, func(tx *db.Tx) error {
		previous, err := e.computeProduction(tx, nowUnix)
		if err != nil {
			return err
		}
		total, err := tx.TotalZkaspa()
		if err != nil {
			return err
		}

		if err := e.maybeGenerateEvent(tx, nowUnix); err != nil {
			return err
		}

		current, err := e.computeProduction(tx, nowUnix)
		if err != nil {
			return err
		}

		err = tx.UpsertDailyStat(db.DailyStat{
			Date:                      date,
			TotalEnergyProduction:     previous.EnergyProduction,
			TotalEnergyConsumption:    previous.EnergyConsumption,
			TotalZkaspa:               total,
			PredictedZkaspaProduction: current.ZkaspaProduction,
			ActualZkaspaProduction:    previous.ZkaspaProduction,
		})
		if err != nil {
			return err
		}

		e.logger.Info("daily statistics recorded",
			zap.String("date", date),
			zap.Float64("total_zkaspa", total),
			zap.Float64("actual_production", previous.ZkaspaProduction),
			zap.Float64("predicted_production", current.ZkaspaProduction),
			zap.String("new_event", current.EventType))
		return nil
	})
}

// ProductionSnapshot computes the current cycle for the read-only API.
func (e *Engine) ProductionSnapshot(ctx context.Context) (Production, error) {
	now := e.now().Unix()
	var p Production
	err := e.store.WithTx(ctx, func(tx *db.Tx) error {
		var err error
		p, err = e.computeProduction(tx, now)
		return err
	})
	return p, err
}

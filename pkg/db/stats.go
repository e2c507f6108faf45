package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// UpsertDailyStat writes the daily snapshot, replacing any existing row for
// the same date.
func (t *Tx) UpsertDailyStat(s DailyStat) error {
	_, err := t.tx.Exec(`
		INSERT OR REPLACE INTO daily_stats
			(date, total_energy_production, total_energy_consumption, total_zkaspa,
			 predicted_zkaspa_production, actual_zkaspa_production)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.Date, s.TotalEnergyProduction, s.TotalEnergyConsumption, s.TotalZkaspa,
		s.PredictedZkaspaProduction, s.ActualZkaspaProduction)
	if err != nil {
		return fmt.Errorf("upsert daily stat %s: %w", s.Date, err)
	}
	return nil
}

// DailyStatFor returns the snapshot for a date, or nil when none exists.
func (t *Tx) DailyStatFor(date string) (*DailyStat, error) {
	var s DailyStat
	err := t.tx.Get(&s, "SELECT * FROM daily_stats WHERE date = ?", date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("daily stat %s: %w", date, err)
	}
	return &s, nil
}

// EnergyTotals sums energy production and consumption over owned parcels.
func (t *Tx) EnergyTotals() (production, consumption float64, err error) {
	row := struct {
		Production  float64 `db:"production"`
		Consumption float64 `db:"consumption"`
	}{}
	err = t.tx.Get(&row, `
		SELECT COALESCE(SUM(energy_production), 0) AS production,
		       COALESCE(SUM(energy_consumption), 0) AS consumption
		FROM parcels WHERE owner_address IS NOT NULL`)
	if err != nil {
		return 0, 0, fmt.Errorf("energy totals: %w", err)
	}
	return row.Production, row.Consumption, nil
}

// TotalZkaspa sums zkaspa balances across all parcels.
func (t *Tx) TotalZkaspa() (float64, error) {
	var total float64
	err := t.tx.Get(&total, "SELECT COALESCE(SUM(zkaspa_balance), 0) FROM parcels")
	if err != nil {
		return 0, fmt.Errorf("total zkaspa: %w", err)
	}
	return total, nil
}

// PredictedZkaspa sums the daily zkaspa production of owned parcels, with the
// wind bonus applied to turbine variants.
func (t *Tx) PredictedZkaspa(windBonus float64) (float64, error) {
	var total float64
	err := t.tx.Get(&total, `
		SELECT COALESCE(SUM(
			CASE WHEN building_type LIKE 'wind_turbine%' THEN zkaspa_production * ?
			     ELSE zkaspa_production END), 0)
		FROM parcels WHERE owner_address IS NOT NULL`, windBonus)
	if err != nil {
		return 0, fmt.Errorf("predicted zkaspa: %w", err)
	}
	return total, nil
}

// CreditZkaspa adds one production cycle to every owned parcel's balance.
// Wind turbines receive the bonus factor, everything else the plain event
// multiplier.
func (t *Tx) CreditZkaspa(windBonus, eventMultiplier float64) error {
	_, err := t.tx.Exec(`
		UPDATE parcels SET zkaspa_balance = zkaspa_balance +
			(zkaspa_production * ? *
			 CASE WHEN building_type LIKE 'wind_turbine%' THEN ? ELSE 1 END)
		WHERE owner_address IS NOT NULL`, eventMultiplier, windBonus)
	if err != nil {
		return fmt.Errorf("credit zkaspa: %w", err)
	}
	return nil
}

package db

import "fmt"

// UpsertBuildingType inserts or replaces a building type row.
func (t *Tx) UpsertBuildingType(b BuildingTypeRow) error {
	_, err := t.tx.Exec(`
		INSERT OR REPLACE INTO building_types
			(name, min_amount, max_amount, fee_amount, fee_frequency, building_category,
			 energy_production, energy_consumption, zkaspa_production, max_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.MinAmount, b.MaxAmount, b.FeeAmount, b.FeeFrequency, b.BuildingCategory,
		b.EnergyProduction, b.EnergyConsumption, b.ZkaspaProduction, b.MaxCount)
	if err != nil {
		return fmt.Errorf("upsert building type %s: %w", b.Name, err)
	}
	return nil
}

// UpsertVariant inserts or replaces a building variant row.
func (t *Tx) UpsertVariant(v VariantRow) error {
	_, err := t.tx.Exec(`
		INSERT OR REPLACE INTO building_variants (building_type, variant, probability)
		VALUES (?, ?, ?)`,
		v.BuildingType, v.Variant, v.Probability)
	if err != nil {
		return fmt.Errorf("upsert variant %s/%s: %w", v.BuildingType, v.Variant, err)
	}
	return nil
}

// BuildingTypeNames lists all stored building type names.
func (t *Tx) BuildingTypeNames() ([]string, error) {
	var names []string
	if err := t.tx.Select(&names, "SELECT name FROM building_types ORDER BY min_amount DESC"); err != nil {
		return nil, fmt.Errorf("building type names: %w", err)
	}
	return names, nil
}

// BuildingTypes lists all stored building type rows, highest threshold first.
func (t *Tx) BuildingTypes() ([]BuildingTypeRow, error) {
	var rows []BuildingTypeRow
	if err := t.tx.Select(&rows, "SELECT * FROM building_types ORDER BY min_amount DESC"); err != nil {
		return nil, fmt.Errorf("building types: %w", err)
	}
	return rows, nil
}

// DeleteBuildingType removes a building type and its variants.
func (t *Tx) DeleteBuildingType(name string) error {
	if _, err := t.tx.Exec("DELETE FROM building_variants WHERE building_type = ?", name); err != nil {
		return fmt.Errorf("delete variants for %s: %w", name, err)
	}
	if _, err := t.tx.Exec("DELETE FROM building_types WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete building type %s: %w", name, err)
	}
	return nil
}

// SyncFeeDates restarts the fee clock for every parcel of a building type.
// Called when the type's fee frequency changes.
func (t *Tx) SyncFeeDates(name string, feeFrequency int64, now int64) error {
	_, err := t.tx.Exec(`
		UPDATE parcels SET
			fee_frequency = ?,
			next_fee_date = ? + ? * 86400
		WHERE building_type = ?`,
		feeFrequency, now, feeFrequency, name)
	if err != nil {
		return fmt.Errorf("sync fee dates for %s: %w", name, err)
	}
	return nil
}

// SyncParcelStats pushes a building type's current economics onto every
// parcel carrying it.
func (t *Tx) SyncParcelStats(name string, feeAmount float64, feeFrequency int64, energyProduction, energyConsumption, zkaspaProduction float64) error {
	_, err := t.tx.Exec(`
		UPDATE parcels SET
			last_fee_amount = ?,
			fee_frequency = ?,
			energy_production = ?,
			energy_consumption = ?,
			zkaspa_production = ?
		WHERE building_type = ?`,
		feeAmount, feeFrequency, energyProduction, energyConsumption, zkaspaProduction, name)
	if err != nil {
		return fmt.Errorf("sync parcel stats for %s: %w", name, err)
	}
	return nil
}

// VariantsFor lists the stored variants of one building type.
func (t *Tx) VariantsFor(name string) ([]VariantRow, error) {
	var rows []VariantRow
	err := t.tx.Select(&rows, "SELECT * FROM building_variants WHERE building_type = ? ORDER BY variant", name)
	if err != nil {
		return nil, fmt.Errorf("variants for %s: %w", name, err)
	}
	return rows, nil
}

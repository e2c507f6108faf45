package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoRowsAffected signals a consistency anomaly: an update that was
// expected to touch a row touched none. Callers surface it, never swallow it.
var ErrNoRowsAffected = errors.New("no rows affected")

// ParcelByOwner returns the owner's parcel, or nil when the address owns
// nothing.
func (t *Tx) ParcelByOwner(address string) (*Parcel, error) {
	var p Parcel
	err := t.tx.Get(&p, "SELECT * FROM parcels WHERE owner_address = ?", address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parcel by owner: %w", err)
	}
	return &p, nil
}

// Parcel returns the parcel with the given id, or nil when absent.
func (t *Tx) Parcel(id int64) (*Parcel, error) {
	var p Parcel
	err := t.tx.Get(&p, "SELECT * FROM parcels WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parcel %d: %w", id, err)
	}
	return &p, nil
}

// RandomUnassignedParcel picks one never-purchased, unowned parcel uniformly
// at random. Returns nil when the map is full.
func (t *Tx) RandomUnassignedParcel() (*Parcel, error) {
	var p Parcel
	err := t.tx.Get(&p, `
		SELECT * FROM parcels
		WHERE owner_address IS NULL
		  AND (purchase_amount IS NULL OR purchase_amount = 0)
		ORDER BY RANDOM() LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("random unassigned parcel: %w", err)
	}
	return &p, nil
}

// CountByBuildingType counts parcels currently holding the named tier.
func (t *Tx) CountByBuildingType(name string) (int, error) {
	var n int
	if err := t.tx.Get(&n, "SELECT COUNT(*) FROM parcels WHERE building_type = ?", name); err != nil {
		return 0, fmt.Errorf("count by building type: %w", err)
	}
	return n, nil
}

// BuildingCounts returns the parcel count per tier.
func (t *Tx) BuildingCounts() (map[string]int, error) {
	rows := []struct {
		BuildingType string `db:"building_type"`
		Count        int    `db:"count"`
	}{}
	err := t.tx.Select(&rows, `
		SELECT building_type, COUNT(*) as count
		FROM parcels
		WHERE building_type IS NOT NULL
		GROUP BY building_type`)
	if err != nil {
		return nil, fmt.Errorf("building counts: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.BuildingType] = r.Count
	}
	return out, nil
}

// ParcelAssignment is the full field set written when a parcel gains or
// changes a building.
type ParcelAssignment struct {
	Owner             string
	BuildingType      string
	BuildingVariant   string
	PurchaseAmount    float64
	PurchaseDate      int64
	LastFeePayment    int64
	LastFeeCheck      int64
	LastFeeAmount     float64
	FeeFrequency      int
	NextFeeDate       int64
	EnergyProduction  float64
	EnergyConsumption float64
	ZkaspaProduction  float64
	ZkaspaBalance     float64
}

// AssignParcel populates an unowned parcel with a new owner and building.
func (t *Tx) AssignParcel(id int64, a ParcelAssignment) error {
	res, err := t.tx.Exec(`
		UPDATE parcels
		SET owner_address = ?, building_type = ?, building_variant = ?,
		    purchase_amount = ?, purchase_date = ?, last_fee_payment = ?,
		    last_fee_check = ?, last_fee_amount = ?, fee_frequency = ?, next_fee_date = ?,
		    energy_production = ?, energy_consumption = ?, zkaspa_production = ?,
		    zkaspa_balance = ?, is_for_sale = 0, sale_price = NULL
		WHERE id = ?`,
		a.Owner, a.BuildingType, a.BuildingVariant,
		a.PurchaseAmount, a.PurchaseDate, a.LastFeePayment,
		a.LastFeeCheck, a.LastFeeAmount, a.FeeFrequency, a.NextFeeDate,
		a.EnergyProduction, a.EnergyConsumption, a.ZkaspaProduction,
		a.ZkaspaBalance, id)
	if err != nil {
		return fmt.Errorf("assign parcel %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("assign parcel %d", id))
}

// BuildingUpdate is the field set refreshed on a tier change or upgrade.
type BuildingUpdate struct {
	BuildingType      string
	BuildingVariant   string
	PurchaseAmount    float64
	LastFeeAmount     float64
	FeeFrequency      int
	NextFeeDate       int64
	LastFeePayment    int64
	EnergyProduction  float64
	EnergyConsumption float64
	ZkaspaProduction  float64
}

// UpdateBuildingByOwner rewrites the building fields of the owner's parcel.
func (t *Tx) UpdateBuildingByOwner(address string, u BuildingUpdate) error {
	res, err := t.tx.Exec(`
		UPDATE parcels
		SET building_type = ?, building_variant = ?, purchase_amount = ?,
		    last_fee_amount = ?, fee_frequency = ?, next_fee_date = ?,
		    last_fee_payment = ?,
		    energy_production = ?, energy_consumption = ?, zkaspa_production = ?
		WHERE owner_address = ?`,
		u.BuildingType, u.BuildingVariant, u.PurchaseAmount,
		u.LastFeeAmount, u.FeeFrequency, u.NextFeeDate,
		u.LastFeePayment,
		u.EnergyProduction, u.EnergyConsumption, u.ZkaspaProduction,
		address)
	if err != nil {
		return fmt.Errorf("update building for %s: %w", address, err)
	}
	return requireRows(res, "update building")
}

// ResetParcel returns a parcel to the unowned state, clearing every economic
// field. Used on repossession and when a buyer abandons their old parcel.
func (t *Tx) ResetParcel(id int64) error {
	res, err := t.tx.Exec(`
		UPDATE parcels
		SET owner_address = NULL, building_type = NULL, building_variant = NULL,
		    purchase_amount = NULL, purchase_date = NULL,
		    last_fee_payment = NULL, last_fee_check = NULL,
		    last_fee_amount = NULL, fee_frequency = NULL, next_fee_date = NULL,
		    energy_production = 0, energy_consumption = 0,
		    zkaspa_production = 0, zkaspa_balance = 0,
		    is_for_sale = 0, sale_price = NULL
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("reset parcel %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("reset parcel %d", id))
}

// SettleFee advances the fee clock on the owner's parcel.
func (t *Tx) SettleFee(address string, now, nextFeeDate int64) error {
	res, err := t.tx.Exec(`
		UPDATE parcels
		SET last_fee_payment = ?, last_fee_check = ?, next_fee_date = ?
		WHERE owner_address = ?`, now, now, nextFeeDate, address)
	if err != nil {
		return fmt.Errorf("settle fee for %s: %w", address, err)
	}
	return requireRows(res, "settle fee")
}

// MarkFeeChecked refreshes the grace-period bookkeeping without punitive
// action.
func (t *Tx) MarkFeeChecked(id int64, now int64, dueAmount float64) error {
	res, err := t.tx.Exec(`
		UPDATE parcels SET last_fee_check = ?, last_fee_amount = ? WHERE id = ?`,
		now, dueAmount, id)
	if err != nil {
		return fmt.Errorf("mark fee checked %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("mark fee checked %d", id))
}

// OverdueParcel joins the parcel with its tier's current fee schedule.
type OverdueParcel struct {
	ID           int64          `db:"id"`
	OwnerAddress sql.NullString `db:"owner_address"`
	BuildingType sql.NullString `db:"building_type"`
	NextFeeDate  int64          `db:"next_fee_date"`
	FeeAmount    float64        `db:"fee_amount"`
	FeeFrequency int64          `db:"fee_frequency"`
}

// OverdueParcels lists owned parcels whose next fee date has passed.
func (t *Tx) OverdueParcels(now int64) ([]OverdueParcel, error) {
	var rows []OverdueParcel
	err := t.tx.Select(&rows, `
		SELECT p.id, p.owner_address, p.building_type, p.next_fee_date,
		       b.fee_amount, b.fee_frequency
		FROM parcels p
		JOIN building_types b ON p.building_type = b.name
		WHERE p.next_fee_date < ?`, now)
	if err != nil {
		return nil, fmt.Errorf("overdue parcels: %w", err)
	}
	return rows, nil
}

// UpdatePurchaseAmount rewrites the cumulative purchase amount only.
func (t *Tx) UpdatePurchaseAmount(id int64, amount float64) error {
	res, err := t.tx.Exec("UPDATE parcels SET purchase_amount = ? WHERE id = ?", amount, id)
	if err != nil {
		return fmt.Errorf("update purchase amount %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("update purchase amount %d", id))
}

// SetBuilding rewrites only the tier and variant of a parcel.
func (t *Tx) SetBuilding(id int64, buildingType, variant string) error {
	res, err := t.tx.Exec("UPDATE parcels SET building_type = ?, building_variant = ? WHERE id = ?",
		buildingType, variant, id)
	if err != nil {
		return fmt.Errorf("set building %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("set building %d", id))
}

// SetVariant rewrites only the variant of a parcel.
func (t *Tx) SetVariant(id int64, variant string) error {
	res, err := t.tx.Exec("UPDATE parcels SET building_variant = ? WHERE id = ?", variant, id)
	if err != nil {
		return fmt.Errorf("set variant %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("set variant %d", id))
}

// SyncParcelEconomics pushes a tier's economics onto one parcel.
func (t *Tx) SyncParcelEconomics(id int64, feeAmount float64, feeFrequency int64, energyProduction, energyConsumption, zkaspaProduction float64) error {
	res, err := t.tx.Exec(`
		UPDATE parcels SET
			last_fee_amount = ?, fee_frequency = ?,
			energy_production = ?, energy_consumption = ?, zkaspa_production = ?
		WHERE id = ?`,
		feeAmount, feeFrequency, energyProduction, energyConsumption, zkaspaProduction, id)
	if err != nil {
		return fmt.Errorf("sync parcel economics %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("sync parcel economics %d", id))
}

// SetForSale marks the parcel for sale at the given price.
func (t *Tx) SetForSale(id int64, price float64) error {
	res, err := t.tx.Exec("UPDATE parcels SET is_for_sale = 1, sale_price = ? WHERE id = ?", price, id)
	if err != nil {
		return fmt.Errorf("set for sale %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("set for sale %d", id))
}

// UpdateSalePrice changes the listed price of an already-listed parcel.
func (t *Tx) UpdateSalePrice(id int64, price float64) error {
	res, err := t.tx.Exec("UPDATE parcels SET sale_price = ? WHERE id = ?", price, id)
	if err != nil {
		return fmt.Errorf("update sale price %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("update sale price %d", id))
}

// ClearForSale delists the parcel.
func (t *Tx) ClearForSale(id int64) error {
	res, err := t.tx.Exec("UPDATE parcels SET is_for_sale = 0, sale_price = NULL WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("clear for sale %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("clear for sale %d", id))
}

// ForSaleParcelByOwner returns the owner's listed parcel, or nil.
func (t *Tx) ForSaleParcelByOwner(address string) (*Parcel, error) {
	var p Parcel
	err := t.tx.Get(&p, "SELECT * FROM parcels WHERE owner_address = ? AND is_for_sale = 1", address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("for-sale parcel by owner: %w", err)
	}
	return &p, nil
}

// TransferParcel hands a sold parcel to its buyer, carrying the transferred
// zkaspa balance and resetting the purchase baseline to the sale amount.
func (t *Tx) TransferParcel(id int64, buyer string, zkaspaBalance, purchaseAmount float64, purchaseDate int64) error {
	res, err := t.tx.Exec(`
		UPDATE parcels
		SET owner_address = ?, is_for_sale = 0, sale_price = NULL,
		    zkaspa_balance = ?, purchase_amount = ?, purchase_date = ?
		WHERE id = ?`, buyer, zkaspaBalance, purchaseAmount, purchaseDate, id)
	if err != nil {
		return fmt.Errorf("transfer parcel %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("transfer parcel %d", id))
}

// AllParcels returns every parcel, grid order.
func (t *Tx) AllParcels() ([]Parcel, error) {
	var rows []Parcel
	if err := t.tx.Select(&rows, "SELECT * FROM parcels ORDER BY id"); err != nil {
		return nil, fmt.Errorf("all parcels: %w", err)
	}
	return rows, nil
}

// OwnedParcels returns every parcel with an owner.
func (t *Tx) OwnedParcels() ([]Parcel, error) {
	var rows []Parcel
	if err := t.tx.Select(&rows, "SELECT * FROM parcels WHERE owner_address IS NOT NULL ORDER BY id"); err != nil {
		return nil, fmt.Errorf("owned parcels: %w", err)
	}
	return rows, nil
}

// ParcelsForSale returns every currently listed parcel.
func (t *Tx) ParcelsForSale() ([]Parcel, error) {
	var rows []Parcel
	if err := t.tx.Select(&rows, "SELECT * FROM parcels WHERE is_for_sale = 1 ORDER BY id"); err != nil {
		return nil, fmt.Errorf("parcels for sale: %w", err)
	}
	return rows, nil
}

// ParcelTotals returns (total, owned) parcel counts.
func (t *Tx) ParcelTotals() (total, owned int, err error) {
	if err = t.tx.Get(&total, "SELECT COUNT(*) FROM parcels"); err != nil {
		return 0, 0, fmt.Errorf("parcel totals: %w", err)
	}
	if err = t.tx.Get(&owned, "SELECT COUNT(*) FROM parcels WHERE owner_address IS NOT NULL"); err != nil {
		return 0, 0, fmt.Errorf("parcel totals: %w", err)
	}
	return total, owned, nil
}

// CreateParcels inserts unowned parcels at the given coordinates.
func (t *Tx) CreateParcels(coords [][2]int) error {
	stmt, err := t.tx.Prepare("INSERT INTO parcels (x, y) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("create parcels: %w", err)
	}
	defer stmt.Close()
	for _, c := range coords {
		if _, err := stmt.Exec(c[0], c[1]); err != nil {
			return fmt.Errorf("create parcel (%d,%d): %w", c[0], c[1], err)
		}
	}
	return nil
}

// MaxParcelIndex returns the highest row-major grid index, or -1 when the
// map is empty.
func (t *Tx) MaxParcelIndex(perRow int) (int, error) {
	var idx sql.NullInt64
	if err := t.tx.Get(&idx, "SELECT MAX(x * ? + y) FROM parcels", perRow); err != nil {
		return 0, fmt.Errorf("max parcel index: %w", err)
	}
	if !idx.Valid {
		return -1, nil
	}
	return int(idx.Int64), nil
}

func requireRows(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoRowsAffected)
	}
	return nil
}

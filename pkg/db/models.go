package db

import "database/sql"

// Parcel is one grid cell. The ownership invariant: owner is null iff the
// building/fee fields are null — an unowned parcel carries no building.
type Parcel struct {
	ID              int64           `db:"id"`
	OwnerAddress    sql.NullString  `db:"owner_address"`
	BuildingType    sql.NullString  `db:"building_type"`
	BuildingVariant sql.NullString  `db:"building_variant"`
	PurchaseAmount  sql.NullFloat64 `db:"purchase_amount"`
	PurchaseDate    sql.NullInt64   `db:"purchase_date"`
	LastFeePayment  sql.NullInt64   `db:"last_fee_payment"`
	LastFeeCheck    sql.NullInt64   `db:"last_fee_check"`
	LastFeeAmount   sql.NullFloat64 `db:"last_fee_amount"`
	FeeFrequency    sql.NullInt64   `db:"fee_frequency"`
	NextFeeDate     sql.NullInt64   `db:"next_fee_date"`
	X               int             `db:"x"`
	Y               int             `db:"y"`

	EnergyProduction  float64 `db:"energy_production"`
	EnergyConsumption float64 `db:"energy_consumption"`
	ZkaspaProduction  float64 `db:"zkaspa_production"`
	ZkaspaBalance     float64 `db:"zkaspa_balance"`

	IsForSale bool            `db:"is_for_sale"`
	SalePrice sql.NullFloat64 `db:"sale_price"`
}

// Owned reports whether the parcel currently has an owner.
func (p *Parcel) Owned() bool {
	return p.OwnerAddress.Valid
}

type Wallet struct {
	Address                  string         `db:"address"`
	TotalAmount              float64        `db:"total_amount"`
	TransactionCount         int64          `db:"transaction_count"`
	LastTransactionID        sql.NullString `db:"last_transaction_id"`
	LastTransactionTimestamp sql.NullInt64  `db:"last_transaction_timestamp"`
}

type BuildingTypeRow struct {
	Name              string        `db:"name"`
	MinAmount         float64       `db:"min_amount"`
	MaxAmount         float64       `db:"max_amount"`
	FeeAmount         float64       `db:"fee_amount"`
	FeeFrequency      int64         `db:"fee_frequency"`
	BuildingCategory  string        `db:"building_category"`
	EnergyProduction  float64       `db:"energy_production"`
	EnergyConsumption float64       `db:"energy_consumption"`
	ZkaspaProduction  float64       `db:"zkaspa_production"`
	MaxCount          sql.NullInt64 `db:"max_count"`
}

type VariantRow struct {
	BuildingType string  `db:"building_type"`
	Variant      string  `db:"variant"`
	Probability  float64 `db:"probability"`
}

// WatchEntry is a pending expectation that an address will receive a payment
// of exactly the expected amount, used to settle marketplace resales.
type WatchEntry struct {
	ID             int64   `db:"id"`
	Address        string  `db:"address"`
	ExpectedAmount float64 `db:"expected_amount"`
	ParcelID       int64   `db:"parcel_id"`
	CreatedAt      int64   `db:"created_at"`
	Status         string  `db:"status"`
}

const (
	WatchPending   = "pending"
	WatchCompleted = "completed"
)

type Event struct {
	ID               int64   `db:"id"`
	EventType        string  `db:"event_type"`
	StartTime        int64   `db:"start_time"`
	EndTime          int64   `db:"end_time"`
	Description      string  `db:"description"`
	EnergyMultiplier float64 `db:"energy_multiplier"`
	ZkaspaMultiplier float64 `db:"zkaspa_multiplier"`
}

type DailyStat struct {
	Date                      string  `db:"date"`
	TotalEnergyProduction     float64 `db:"total_energy_production"`
	TotalEnergyConsumption    float64 `db:"total_energy_consumption"`
	TotalZkaspa               float64 `db:"total_zkaspa"`
	PredictedZkaspaProduction float64 `db:"predicted_zkaspa_production"`
	ActualZkaspaProduction    float64 `db:"actual_zkaspa_production"`
}

type FeePayment struct {
	ID            int64          `db:"id"`
	ParcelID      int64          `db:"parcel_id"`
	PaymentDate   int64          `db:"payment_date"`
	Amount        float64        `db:"amount"`
	BuildingType  sql.NullString `db:"building_type"`
	TransactionID sql.NullString `db:"transaction_id"`
}

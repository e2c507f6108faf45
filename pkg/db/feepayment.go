package db

import "fmt"

// InsertFeePayment records a settled maintenance fee.
func (t *Tx) InsertFeePayment(p FeePayment) error {
	_, err := t.tx.Exec(`
		INSERT INTO fee_payments (parcel_id, payment_date, amount, building_type, transaction_id)
		VALUES (?, ?, ?, ?, ?)`,
		p.ParcelID, p.PaymentDate, p.Amount, p.BuildingType, p.TransactionID)
	if err != nil {
		return fmt.Errorf("insert fee payment for parcel %d: %w", p.ParcelID, err)
	}
	return nil
}

// FeePaymentsForParcel lists a parcel's fee history, newest first.
func (t *Tx) FeePaymentsForParcel(parcelID int64) ([]FeePayment, error) {
	var rows []FeePayment
	err := t.tx.Select(&rows, "SELECT * FROM fee_payments WHERE parcel_id = ? ORDER BY payment_date DESC", parcelID)
	if err != nil {
		return nil, fmt.Errorf("fee payments for parcel %d: %w", parcelID, err)
	}
	return rows, nil
}

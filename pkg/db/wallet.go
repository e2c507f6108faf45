package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// AccumulateWallet adds a payment to the sender's lifetime total, creating
// the wallet row on first contact.
func (t *Tx) AccumulateWallet(address string, amount float64, txID string, timestamp int64) error {
	_, err := t.tx.Exec(`
		INSERT INTO wallets (address, total_amount, transaction_count, last_transaction_id, last_transaction_timestamp)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			total_amount = total_amount + excluded.total_amount,
			transaction_count = transaction_count + 1,
			last_transaction_id = excluded.last_transaction_id,
			last_transaction_timestamp = excluded.last_transaction_timestamp`,
		address, amount, txID, timestamp)
	if err != nil {
		return fmt.Errorf("accumulate wallet %s: %w", address, err)
	}
	return nil
}

// ResetWalletTotal overwrites the wallet's lifetime total. A resale purchase
// restarts the buyer's contribution baseline at the sale amount.
func (t *Tx) ResetWalletTotal(address string, amount float64) error {
	_, err := t.tx.Exec(`
		INSERT INTO wallets (address, total_amount, transaction_count)
		VALUES (?, ?, 1)
		ON CONFLICT(address) DO UPDATE SET
			total_amount = excluded.total_amount,
			transaction_count = transaction_count + 1`,
		address, amount)
	if err != nil {
		return fmt.Errorf("reset wallet %s: %w", address, err)
	}
	return nil
}

// WalletTotal returns the lifetime amount the address has sent, 0 when the
// wallet is unknown.
func (t *Tx) WalletTotal(address string) (float64, error) {
	var total float64
	err := t.tx.Get(&total, "SELECT total_amount FROM wallets WHERE address = ?", address)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("wallet total %s: %w", address, err)
	}
	return total, nil
}

// Wallet returns the wallet row, or nil when unknown.
func (t *Tx) Wallet(address string) (*Wallet, error) {
	var w Wallet
	err := t.tx.Get(&w, "SELECT * FROM wallets WHERE address = ?", address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", address, err)
	}
	return &w, nil
}

// DeleteWallet removes the wallet row. Repossession wipes the owner's
// contribution history.
func (t *Tx) DeleteWallet(address string) (bool, error) {
	res, err := t.tx.Exec("DELETE FROM wallets WHERE address = ?", address)
	if err != nil {
		return false, fmt.Errorf("delete wallet %s: %w", address, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// WalletLeader is one leaderboard entry: an owner and their zkaspa holdings.
type WalletLeader struct {
	Address string  `db:"owner_address"`
	Amount  float64 `db:"total_zkaspa"`
}

// TopWalletsByZkaspa returns the owners holding the most zkaspa.
func (t *Tx) TopWalletsByZkaspa(limit int) ([]WalletLeader, error) {
	var rows []WalletLeader
	err := t.tx.Select(&rows, `
		SELECT p.owner_address, SUM(p.zkaspa_balance) as total_zkaspa
		FROM parcels p
		WHERE p.owner_address IS NOT NULL
		GROUP BY p.owner_address
		ORDER BY total_zkaspa DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top wallets: %w", err)
	}
	return rows, nil
}

// UniqueOwners counts distinct parcel owners.
func (t *Tx) UniqueOwners() (int, error) {
	var n int
	if err := t.tx.Get(&n, "SELECT COUNT(DISTINCT owner_address) FROM parcels WHERE owner_address IS NOT NULL"); err != nil {
		return 0, fmt.Errorf("unique owners: %w", err)
	}
	return n, nil
}

// TotalPurchaseAmount sums every owned parcel's cumulative purchase amount.
func (t *Tx) TotalPurchaseAmount() (float64, error) {
	var v sql.NullFloat64
	if err := t.tx.Get(&v, "SELECT SUM(purchase_amount) FROM parcels"); err != nil {
		return 0, fmt.Errorf("total purchase amount: %w", err)
	}
	return v.Float64, nil
}

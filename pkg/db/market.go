package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// InsertWatchEntry starts watching a seller address for the expected payment.
func (t *Tx) InsertWatchEntry(address string, expectedAmount float64, parcelID int64, createdAt int64) error {
	_, err := t.tx.Exec(`
		INSERT INTO wallets_to_monitor (address, expected_amount, parcel_id, created_at, status)
		VALUES (?, ?, ?, ?, ?)`,
		address, expectedAmount, parcelID, createdAt, WatchPending)
	if err != nil {
		return fmt.Errorf("insert watch entry: %w", err)
	}
	return nil
}

// UpdateWatchAmount refreshes the expected amount after a price update.
func (t *Tx) UpdateWatchAmount(address string, parcelID int64, expectedAmount float64) error {
	_, err := t.tx.Exec(`
		UPDATE wallets_to_monitor SET expected_amount = ?
		WHERE address = ? AND parcel_id = ?`,
		expectedAmount, address, parcelID)
	if err != nil {
		return fmt.Errorf("update watch amount: %w", err)
	}
	return nil
}

// DeleteWatchEntriesByAddress drops every watch entry for a seller.
func (t *Tx) DeleteWatchEntriesByAddress(address string) error {
	if _, err := t.tx.Exec("DELETE FROM wallets_to_monitor WHERE address = ?", address); err != nil {
		return fmt.Errorf("delete watch entries for %s: %w", address, err)
	}
	return nil
}

// DeleteWatchEntry drops one watch entry by id.
func (t *Tx) DeleteWatchEntry(id int64) error {
	if _, err := t.tx.Exec("DELETE FROM wallets_to_monitor WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete watch entry %d: %w", id, err)
	}
	return nil
}

// CompleteWatchEntry marks the entry settled.
func (t *Tx) CompleteWatchEntry(id int64) error {
	res, err := t.tx.Exec("UPDATE wallets_to_monitor SET status = ? WHERE id = ?", WatchCompleted, id)
	if err != nil {
		return fmt.Errorf("complete watch entry %d: %w", id, err)
	}
	return requireRows(res, fmt.Sprintf("complete watch entry %d", id))
}

// PendingWatchEntries lists entries still awaiting settlement.
func (t *Tx) PendingWatchEntries() ([]WatchEntry, error) {
	var rows []WatchEntry
	err := t.tx.Select(&rows, "SELECT * FROM wallets_to_monitor WHERE status = ? ORDER BY id", WatchPending)
	if err != nil {
		return nil, fmt.Errorf("pending watch entries: %w", err)
	}
	return rows, nil
}

// WatchEntryForParcel returns the watch entry targeting a parcel, or nil.
func (t *Tx) WatchEntryForParcel(parcelID int64) (*WatchEntry, error) {
	var w WatchEntry
	err := t.tx.Get(&w, "SELECT * FROM wallets_to_monitor WHERE parcel_id = ? ORDER BY id DESC LIMIT 1", parcelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("watch entry for parcel %d: %w", parcelID, err)
	}
	return &w, nil
}

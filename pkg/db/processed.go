package db

import "fmt"

// TransactionProcessed reports whether the ledger transaction id has already
// been applied. The processed set is the sole dedup guard against feed
// redelivery.
func (t *Tx) TransactionProcessed(txID string) (bool, error) {
	var n int
	if err := t.tx.Get(&n, "SELECT COUNT(1) FROM processed_transactions WHERE transaction_id = ?", txID); err != nil {
		return false, fmt.Errorf("transaction processed %s: %w", txID, err)
	}
	return n > 0, nil
}

// MarkTransactionProcessed records the id. Called last inside the handling
// transaction so the mark commits together with the effects.
func (t *Tx) MarkTransactionProcessed(txID string, now int64) error {
	_, err := t.tx.Exec(
		"INSERT INTO processed_transactions (transaction_id, processed_at) VALUES (?, ?)",
		txID, now)
	if err != nil {
		return fmt.Errorf("mark transaction processed %s: %w", txID, err)
	}
	return nil
}

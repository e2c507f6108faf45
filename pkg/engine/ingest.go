package engine

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/Macmachi/kasland/pkg/kaspa"
)

// PollTransactions fetches recent transactions to the game address and
// processes the new ones in block-time order. Feed failures are transient:
// they are logged and the poll ends with no new information.
func (e *Engine) PollTransactions(ctx context.Context) error {
	txs, err := e.feed.FullTransactions(ctx, e.cfg.GameAddress)
	if err != nil {
		e.logger.Warn("transaction feed unavailable", zap.Error(err))
		return nil
	}

	sort.Slice(txs, func(i, j int) bool { return txs[i].BlockTime < txs[j].BlockTime })

	for _, tx := range txs {
		for _, out := range tx.Outputs {
			if out.ScriptPublicKeyAddress != e.cfg.GameAddress {
				continue
			}
			amount := kaspa.KAS(out.Amount)
			sender := tx.Sender()
			if sender == "" {
				e.logger.Warn("skipping payment with unresolved sender",
					zap.String("tx_id", tx.TransactionID), zap.Float64("amount", amount))
				continue
			}
			if _, err := e.HandleTransaction(ctx, sender, amount, tx.TransactionID, tx.Time().Unix()); err != nil {
				e.logger.Error("transaction processing failed",
					zap.String("tx_id", tx.TransactionID), zap.Error(err))
			}
		}
	}
	return nil
}

// Package engine implements the game economy: transaction classification,
// parcel purchases and upgrades, the fee lifecycle, the resale marketplace,
// zkaspa production and random world events. All state changes run through
// the store's transactions; the engine never holds game state in memory.
package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/Macmachi/kasland/pkg/catalog"
	"github.com/Macmachi/kasland/pkg/config"
	"github.com/Macmachi/kasland/pkg/db"
	"github.com/Macmachi/kasland/pkg/kaspa"
)

// Feed is the transaction source the engine polls. *kaspa.Client satisfies
// it; tests substitute a fake.
type Feed interface {
	FullTransactions(ctx context.Context, address string) ([]kaspa.Transaction, error)
	FindPayment(ctx context.Context, address string, amountKAS float64, window time.Duration) (sender string, found bool, err error)
}

// Result is the outcome of processing one incoming transaction. Success
// false with a message is a business rejection, not an error; the
// transaction is still consumed.
type Result struct {
	Success bool
	Message string
}

type Engine struct {
	store  *db.Store
	cat    *catalog.Catalog
	cfg    *config.Config
	feed   Feed
	logger *zap.Logger

	now       func() time.Time
	randFloat func() float64

	// Per-address throttle for the monitor's "no payment yet" log line.
	lastNoMatchLog *xsync.Map[string, int64]
}

func New(store *db.Store, cat *catalog.Catalog, cfg *config.Config, feed Feed, logger *zap.Logger) *Engine {
	return &Engine{
		store:          store,
		cat:            cat,
		cfg:            cfg,
		feed:           feed,
		logger:         logger,
		now:            time.Now,
		randFloat:      rand.Float64,
		lastNoMatchLog: xsync.NewMap[string, int64](),
	}
}

package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Macmachi/kasland/pkg/catalog"
	"github.com/Macmachi/kasland/pkg/config"
	"github.com/Macmachi/kasland/pkg/db"
	"github.com/Macmachi/kasland/pkg/kaspa"
)

type fakeFeed struct {
	txs      []kaspa.Transaction
	payments map[string]string // "address/amount" -> buyer
	err      error
}

func (f *fakeFeed) FullTransactions(_ context.Context, _ string) ([]kaspa.Transaction, error) {
	return f.txs, f.err
}

func (f *fakeFeed) FindPayment(_ context.Context, address string, amountKAS float64, _ time.Duration) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	buyer, ok := f.payments[fmt.Sprintf("%s/%g", address, amountKAS)]
	return buyer, ok, nil
}

var testEpoch = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, feed Feed) *Engine {
	t.Helper()
	cfg := config.Defaults()
	cfg.GameAddress = "kaspa:game"
	cfg.TotalParcels = 16
	cfg.ParcelsPerRow = 4
	cfg.Normalize()
	require.NoError(t, cfg.Validate())

	cat, err := catalog.FromConfig(cfg.Buildings)
	require.NoError(t, err)

	store, err := db.Open(filepath.Join(t.TempDir(), "game.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if feed == nil {
		feed = &fakeFeed{}
	}
	e := New(store, cat, cfg, feed, zaptest.NewLogger(t))
	e.now = func() time.Time { return testEpoch }
	require.NoError(t, e.Bootstrap(context.Background()))
	return e
}

func parcelOf(t *testing.T, e *Engine, address string) *db.Parcel {
	t.Helper()
	var p *db.Parcel
	require.NoError(t, e.store.WithTx(context.Background(), func(tx *db.Tx) error {
		var err error
		p, err = tx.ParcelByOwner(address)
		return err
	}))
	return p
}

func TestPurchaseAssignsLowestTier(t *testing.T) {
	e := newTestEngine(t, nil)
	res, err := e.HandleTransaction(context.Background(), "kaspa:alice", 2, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	require.True(t, res.Success)

	p := parcelOf(t, e, "kaspa:alice")
	require.NotNil(t, p)
	require.Equal(t, "small_house", p.BuildingType.String)
	require.InDelta(t, 2, p.PurchaseAmount.Float64, 1e-9)
	require.Equal(t, testEpoch.Unix()+30*86400, p.NextFeeDate.Int64)
}

func TestDuplicateTransactionIgnored(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:alice", 2, "tx1", testEpoch.Unix())
	require.NoError(t, err)

	res, err := e.HandleTransaction(ctx, "kaspa:alice", 2, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "transaction already processed", res.Message)

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		total, err := tx.WalletTotal("kaspa:alice")
		require.NoError(t, err)
		require.InDelta(t, 2, total, 1e-9)
		return nil
	}))
}

func TestLifetimeTotalQualifiesAcrossPayments(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := e.HandleTransaction(ctx, "kaspa:bob", 1, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Nil(t, parcelOf(t, e, "kaspa:bob"))

	res, err = e.HandleTransaction(ctx, "kaspa:bob", 1, "tx2", testEpoch.Unix())
	require.NoError(t, err)
	require.True(t, res.Success)

	p := parcelOf(t, e, "kaspa:bob")
	require.NotNil(t, p)
	require.Equal(t, "small_house", p.BuildingType.String)
}

func TestUpgradeOnCumulativeAmount(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:carol", 2, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	res, err := e.HandleTransaction(ctx, "kaspa:carol", 8, "tx2", testEpoch.Unix())
	require.NoError(t, err)
	require.True(t, res.Success)

	p := parcelOf(t, e, "kaspa:carol")
	require.Equal(t, "medium_house", p.BuildingType.String)
	require.InDelta(t, 10, p.PurchaseAmount.Float64, 1e-9)
}

func TestVariantRetainedAcrossUpgrade(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:dave", 2, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	before := parcelOf(t, e, "kaspa:dave").BuildingVariant.String

	_, err = e.HandleTransaction(ctx, "kaspa:dave", 8, "tx2", testEpoch.Unix())
	require.NoError(t, err)
	after := parcelOf(t, e, "kaspa:dave").BuildingVariant.String

	// Both tiers define A-D; the cosmetic survives the tier change.
	require.Equal(t, before, after)
}

func TestDueFeeSettledBeforeUpgrade(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:erin", 2, "tx1", testEpoch.Unix())
	require.NoError(t, err)

	// Move the clock past the fee date.
	e.now = func() time.Time { return testEpoch.Add(31 * 24 * time.Hour) }
	res, err := e.HandleTransaction(ctx, "kaspa:erin", 1, "tx2", e.now().Unix())
	require.NoError(t, err)
	require.True(t, res.Success)

	p := parcelOf(t, e, "kaspa:erin")
	require.Equal(t, e.now().Unix(), p.LastFeePayment.Int64)
	require.Equal(t, e.now().Unix()+30*86400, p.NextFeeDate.Int64)

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		payments, err := tx.FeePaymentsForParcel(p.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		require.InDelta(t, 0.5, payments[0].Amount, 1e-9)
		return nil
	}))
}

func TestInsufficientFeePaymentRejected(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:frank", 2, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	feeDate := parcelOf(t, e, "kaspa:frank").NextFeeDate.Int64

	e.now = func() time.Time { return testEpoch.Add(31 * 24 * time.Hour) }
	res, err := e.HandleTransaction(ctx, "kaspa:frank", 0.1, "tx2", e.now().Unix())
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "insufficient payment to cover fees", res.Message)
	require.Equal(t, feeDate, parcelOf(t, e, "kaspa:frank").NextFeeDate.Int64)
}

func TestListForSaleAtLifetimeTotal(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:gail", 5, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	res, err := e.HandleTransaction(ctx, "kaspa:gail", 0.2, "tx2", testEpoch.Unix())
	require.NoError(t, err)
	require.True(t, res.Success)

	p := parcelOf(t, e, "kaspa:gail")
	require.True(t, p.IsForSale)
	// The listing payment itself counts toward the lifetime total.
	require.InDelta(t, 5.2, p.SalePrice.Float64, 1e-9)

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		w, err := tx.WatchEntryForParcel(p.ID)
		require.NoError(t, err)
		require.NotNil(t, w)
		require.Equal(t, db.WatchPending, w.Status)
		require.InDelta(t, 5.2, w.ExpectedAmount, 1e-9)
		return nil
	}))
}

func TestListForSaleWithMultiplier(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:hank", 5, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	res, err := e.HandleTransaction(ctx, "kaspa:hank", 0.5, "tx2", testEpoch.Unix())
	require.NoError(t, err)
	require.True(t, res.Success)

	p := parcelOf(t, e, "kaspa:hank")
	require.True(t, p.IsForSale)
	require.InDelta(t, 11, p.SalePrice.Float64, 1e-9) // round1(5.5 * 2)
}

func TestListWithoutParcelRejected(t *testing.T) {
	e := newTestEngine(t, nil)
	res, err := e.HandleTransaction(context.Background(), "kaspa:nobody", 0.2, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	require.False(t, res.Success)
}

func TestCancelSaleRestoresParcel(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:iris", 5, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	_, err = e.HandleTransaction(ctx, "kaspa:iris", 0.2, "tx2", testEpoch.Unix())
	require.NoError(t, err)

	res, err := e.HandleTransaction(ctx, "kaspa:iris", 0.3, "tx3", testEpoch.Unix())
	require.NoError(t, err)
	require.True(t, res.Success)

	p := parcelOf(t, e, "kaspa:iris")
	require.False(t, p.IsForSale)
	require.False(t, p.SalePrice.Valid)
	// Banked payments are applied to the purchase amount on cancellation.
	require.InDelta(t, 5.5, p.PurchaseAmount.Float64, 1e-9)

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		pending, err := tx.PendingWatchEntries()
		require.NoError(t, err)
		require.Empty(t, pending)
		return nil
	}))
}

func TestPaymentWhileListedUpdatesPrice(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:judy", 5, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	_, err = e.HandleTransaction(ctx, "kaspa:judy", 0.2, "tx2", testEpoch.Unix())
	require.NoError(t, err)

	res, err := e.HandleTransaction(ctx, "kaspa:judy", 3, "tx3", testEpoch.Unix())
	require.NoError(t, err)
	require.True(t, res.Success)

	p := parcelOf(t, e, "kaspa:judy")
	require.True(t, p.IsForSale)
	require.InDelta(t, 8.2, p.SalePrice.Float64, 1e-9)
	// The building does not upgrade while listed.
	require.Equal(t, "small_house", p.BuildingType.String)
}

func TestSweepFeesGraceThenRepossession(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:kate", 2, "tx1", testEpoch.Unix())
	require.NoError(t, err)

	// 3 days past due: inside the 7-day grace window.
	e.now = func() time.Time { return testEpoch.Add(33 * 24 * time.Hour) }
	require.NoError(t, e.SweepFees(ctx))
	p := parcelOf(t, e, "kaspa:kate")
	require.NotNil(t, p)
	require.Equal(t, e.now().Unix(), p.LastFeeCheck.Int64)

	// 10 days past due: repossessed, wallet wiped.
	e.now = func() time.Time { return testEpoch.Add(40 * 24 * time.Hour) }
	require.NoError(t, e.SweepFees(ctx))
	require.Nil(t, parcelOf(t, e, "kaspa:kate"))

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		total, err := tx.WalletTotal("kaspa:kate")
		require.NoError(t, err)
		require.Zero(t, total)
		return nil
	}))
}

func TestDistributeCreditsBalances(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	// A turbine covers the house's consumption and earns the wind bonus.
	_, err := e.HandleTransaction(ctx, "kaspa:liam", 250, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	_, err = e.HandleTransaction(ctx, "kaspa:mona", 2, "tx2", testEpoch.Unix())
	require.NoError(t, err)

	turbine := parcelOf(t, e, "kaspa:liam")
	require.Equal(t, "wind_turbine", turbine.BuildingType.String)

	require.NoError(t, e.Distribute(ctx))

	turbine = parcelOf(t, e, "kaspa:liam")
	house := parcelOf(t, e, "kaspa:mona")
	require.InDelta(t, turbine.ZkaspaProduction*e.cfg.WindTurbineBonus, turbine.ZkaspaBalance, 1e-9)
	require.InDelta(t, house.ZkaspaProduction, house.ZkaspaBalance, 1e-9)
}

func TestDistributeSkippedOnEnergyDeficit(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	// A lone house consumes energy nothing produces.
	_, err := e.HandleTransaction(ctx, "kaspa:nina", 2, "tx1", testEpoch.Unix())
	require.NoError(t, err)

	require.NoError(t, e.Distribute(ctx))
	require.Zero(t, parcelOf(t, e, "kaspa:nina").ZkaspaBalance)
}

func TestSettlePurchaseFirstTimeBuyer(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:olga", 10, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	sellerParcel := parcelOf(t, e, "kaspa:olga")

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		require.NoError(t, tx.CreditZkaspa(1, 1))
		return nil
	}))
	soldBalance := parcelOf(t, e, "kaspa:olga").ZkaspaBalance
	require.Positive(t, soldBalance)

	_, err = e.HandleTransaction(ctx, "kaspa:olga", 0.2, "tx2", testEpoch.Unix())
	require.NoError(t, err)
	price := parcelOf(t, e, "kaspa:olga").SalePrice.Float64

	var entry *db.WatchEntry
	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		var err error
		entry, err = tx.WatchEntryForParcel(sellerParcel.ID)
		return err
	}))

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		return e.settlePurchase(tx, "kaspa:pete", entry.ParcelID, entry.ID, price, testEpoch.Unix())
	}))

	p := parcelOf(t, e, "kaspa:pete")
	require.NotNil(t, p)
	require.Equal(t, sellerParcel.ID, p.ID)
	require.False(t, p.IsForSale)
	require.InDelta(t, soldBalance*0.5, p.ZkaspaBalance, 1e-9)
	require.InDelta(t, price, p.PurchaseAmount.Float64, 1e-9)

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		total, err := tx.WalletTotal("kaspa:pete")
		require.NoError(t, err)
		require.InDelta(t, price, total, 1e-9)
		pending, err := tx.PendingWatchEntries()
		require.NoError(t, err)
		require.Empty(t, pending)
		return nil
	}))
}

func TestSettlePurchaseRepeatBuyerCarriesBalance(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:quinn", 10, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	_, err = e.HandleTransaction(ctx, "kaspa:rosa", 2, "tx2", testEpoch.Unix())
	require.NoError(t, err)

	// Give the buyer a balance to carry over.
	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		return tx.CreditZkaspa(1, 10)
	}))
	buyerOld := parcelOf(t, e, "kaspa:rosa")
	carried := buyerOld.ZkaspaBalance
	require.Positive(t, carried)

	_, err = e.HandleTransaction(ctx, "kaspa:quinn", 0.2, "tx3", testEpoch.Unix())
	require.NoError(t, err)
	sellerParcel := parcelOf(t, e, "kaspa:quinn")

	var entry *db.WatchEntry
	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		var err error
		entry, err = tx.WatchEntryForParcel(sellerParcel.ID)
		return err
	}))

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		return e.settlePurchase(tx, "kaspa:rosa", entry.ParcelID, entry.ID, entry.ExpectedAmount, testEpoch.Unix())
	}))

	p := parcelOf(t, e, "kaspa:rosa")
	require.Equal(t, sellerParcel.ID, p.ID)
	require.InDelta(t, carried, p.ZkaspaBalance, 1e-9)

	// The buyer's old parcel is released.
	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		old, err := tx.Parcel(buyerOld.ID)
		require.NoError(t, err)
		require.False(t, old.Owned())
		require.Zero(t, old.ZkaspaBalance)
		return nil
	}))
}

func TestMonitorMarketplaceSettlesAndCleans(t *testing.T) {
	feed := &fakeFeed{payments: map[string]string{}}
	e := newTestEngine(t, feed)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:sara", 10, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	_, err = e.HandleTransaction(ctx, "kaspa:sara", 0.2, "tx2", testEpoch.Unix())
	require.NoError(t, err)

	price := parcelOf(t, e, "kaspa:sara").SalePrice.Float64
	feed.payments[fmt.Sprintf("kaspa:sara/%g", price)] = "kaspa:tina"

	require.NoError(t, e.MonitorMarketplace(ctx))

	p := parcelOf(t, e, "kaspa:tina")
	require.NotNil(t, p)
	require.InDelta(t, price, p.PurchaseAmount.Float64, 1e-9)
}

func TestMonitorMarketplaceDropsDelistedEntry(t *testing.T) {
	feed := &fakeFeed{payments: map[string]string{}}
	e := newTestEngine(t, feed)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:uma", 10, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	_, err = e.HandleTransaction(ctx, "kaspa:uma", 0.2, "tx2", testEpoch.Unix())
	require.NoError(t, err)

	// Delist behind the watch entry's back.
	p := parcelOf(t, e, "kaspa:uma")
	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		return tx.ClearForSale(p.ID)
	}))

	require.NoError(t, e.MonitorMarketplace(ctx))

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		pending, err := tx.PendingWatchEntries()
		require.NoError(t, err)
		require.Empty(t, pending)
		return nil
	}))
}

func TestPollTransactionsOrdersAndConverts(t *testing.T) {
	feed := &fakeFeed{txs: []kaspa.Transaction{
		{
			TransactionID: "tx-late",
			BlockTime:     testEpoch.Add(time.Minute).UnixMilli(),
			Outputs:       []kaspa.Output{{Amount: 8 * kaspa.SompiPerKAS, ScriptPublicKeyAddress: "kaspa:game"}},
			Inputs:        []kaspa.Input{{PreviousOutpointAddress: "kaspa:vera"}},
		},
		{
			TransactionID: "tx-early",
			BlockTime:     testEpoch.UnixMilli(),
			Outputs:       []kaspa.Output{{Amount: 2 * kaspa.SompiPerKAS, ScriptPublicKeyAddress: "kaspa:game"}},
			Inputs:        []kaspa.Input{{PreviousOutpointAddress: "kaspa:vera"}},
		},
	}}
	e := newTestEngine(t, feed)

	require.NoError(t, e.PollTransactions(context.Background()))

	// 2 KAS first buys the parcel, 8 KAS then upgrades it to the next tier.
	p := parcelOf(t, e, "kaspa:vera")
	require.NotNil(t, p)
	require.Equal(t, "medium_house", p.BuildingType.String)
	require.InDelta(t, 10, p.PurchaseAmount.Float64, 1e-9)
}

func TestPollTransactionsSurvivesFeedError(t *testing.T) {
	feed := &fakeFeed{err: fmt.Errorf("feed down")}
	e := newTestEngine(t, feed)
	require.NoError(t, e.PollTransactions(context.Background()))
}

func TestEventGenerationRespectsChanceAndExclusivity(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	// Roll below the chance: an event appears.
	e.randFloat = func() float64 { return 0 }
	require.NoError(t, e.SaveDailyStats(ctx))

	var count int
	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		events, err := tx.CurrentEvents(e.now().Unix())
		require.NoError(t, err)
		count = len(events)
		require.Equal(t, "solar_flare", events[0].EventType)
		return nil
	}))
	require.Equal(t, 1, count)

	// A second roll while the event runs generates nothing.
	require.NoError(t, e.SaveDailyStats(ctx))
	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		events, err := tx.CurrentEvents(e.now().Unix())
		require.NoError(t, err)
		require.Len(t, events, 1)
		return nil
	}))
}

func TestSaveDailyStatsRecordsSnapshot(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:will", 250, "tx1", testEpoch.Unix())
	require.NoError(t, err)

	e.randFloat = func() float64 { return 1 } // no event
	require.NoError(t, e.SaveDailyStats(ctx))

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		stat, err := tx.DailyStatFor(testEpoch.Format(time.DateOnly))
		require.NoError(t, err)
		require.NotNil(t, stat)
		require.Positive(t, stat.TotalEnergyProduction)
		require.Positive(t, stat.PredictedZkaspaProduction)
		return nil
	}))
}

func TestBootstrapGrowsGridAndPersistsMapSize(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		total, owned, err := tx.ParcelTotals()
		require.NoError(t, err)
		require.Equal(t, 16, total)
		require.Zero(t, owned)

		size, ok, err := tx.Parameter("map_size")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "4", size)

		names, err := tx.BuildingTypeNames()
		require.NoError(t, err)
		require.Len(t, names, len(e.cfg.Buildings))
		return nil
	}))

	// A second bootstrap is a no-op.
	require.NoError(t, e.Bootstrap(ctx))
	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		total, _, err := tx.ParcelTotals()
		require.NoError(t, err)
		require.Equal(t, 16, total)
		return nil
	}))
}

func TestBootstrapRedrawsRemovedVariant(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.HandleTransaction(ctx, "kaspa:yuri", 2, "tx1", testEpoch.Unix())
	require.NoError(t, err)
	p := parcelOf(t, e, "kaspa:yuri")

	// Plant a variant the catalog does not define.
	require.NoError(t, e.store.WithTx(ctx, func(tx *db.Tx) error {
		return tx.SetVariant(p.ID, "Z")
	}))

	require.NoError(t, e.Bootstrap(ctx))

	got := parcelOf(t, e, "kaspa:yuri").BuildingVariant.String
	require.NotEqual(t, "Z", got)
	tier, ok := e.cat.Tier("small_house")
	require.True(t, ok)
	require.True(t, tier.HasVariant(got))
}

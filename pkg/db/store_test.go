package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "game.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedParcels(t *testing.T, s *Store, n int) {
	t.Helper()
	coords := make([][2]int, 0, n)
	for i := 0; i < n; i++ {
		coords = append(coords, [2]int{i / 4, i % 4})
	}
	require.NoError(t, s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.CreateParcels(coords)
	}))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.SetParameter("map_size", "16"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		_, ok, err := tx.Parameter("map_size")
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}

func TestAccumulateAndResetWallet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.AccumulateWallet("kaspa:alice", 5, "tx1", 1000))
		require.NoError(t, tx.AccumulateWallet("kaspa:alice", 2.5, "tx2", 2000))

		total, err := tx.WalletTotal("kaspa:alice")
		require.NoError(t, err)
		require.InDelta(t, 7.5, total, 1e-9)

		w, err := tx.Wallet("kaspa:alice")
		require.NoError(t, err)
		require.EqualValues(t, 2, w.TransactionCount)
		require.Equal(t, "tx2", w.LastTransactionID.String)

		require.NoError(t, tx.ResetWalletTotal("kaspa:alice", 3))
		total, err = tx.WalletTotal("kaspa:alice")
		require.NoError(t, err)
		require.InDelta(t, 3, total, 1e-9)
		return nil
	}))
}

func TestTransactionDedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		seen, err := tx.TransactionProcessed("abc")
		require.NoError(t, err)
		require.False(t, seen)

		require.NoError(t, tx.MarkTransactionProcessed("abc", 1000))
		seen, err = tx.TransactionProcessed("abc")
		require.NoError(t, err)
		require.True(t, seen)
		return nil
	}))
}

func TestParcelLifecycle(t *testing.T) {
	s := openTestStore(t)
	seedParcels(t, s, 4)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		p, err := tx.RandomUnassignedParcel()
		require.NoError(t, err)
		require.NotNil(t, p)

		err = tx.AssignParcel(p.ID, ParcelAssignment{
			Owner:             "kaspa:bob",
			BuildingType:      "small_house",
			BuildingVariant:   "A",
			PurchaseAmount:    2,
			PurchaseDate:      1000,
			LastFeePayment:    1000,
			LastFeeCheck:      1000,
			LastFeeAmount:     0.5,
			FeeFrequency:      30,
			NextFeeDate:       1000 + 30*86400,
			EnergyConsumption: 1,
		})
		require.NoError(t, err)

		got, err := tx.ParcelByOwner("kaspa:bob")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, "small_house", got.BuildingType.String)
		require.True(t, got.Owned())

		n, err := tx.CountByBuildingType("small_house")
		require.NoError(t, err)
		require.Equal(t, 1, n)

		require.NoError(t, tx.ResetParcel(got.ID))
		got, err = tx.ParcelByOwner("kaspa:bob")
		require.NoError(t, err)
		require.Nil(t, got)
		return nil
	}))
}

func TestAssignParcelMissingRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.AssignParcel(999, ParcelAssignment{Owner: "kaspa:x"})
	})
	require.ErrorIs(t, err, ErrNoRowsAffected)
}

func TestRandomUnassignedExhausted(t *testing.T) {
	s := openTestStore(t)
	seedParcels(t, s, 2)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.AssignParcel(1, ParcelAssignment{
			Owner: "kaspa:one", BuildingType: "small_house", BuildingVariant: "A",
			PurchaseAmount: 2,
		}))
		require.NoError(t, tx.AssignParcel(2, ParcelAssignment{
			Owner: "kaspa:two", BuildingType: "small_house", BuildingVariant: "A",
			PurchaseAmount: 2,
		}))

		p, err := tx.RandomUnassignedParcel()
		require.NoError(t, err)
		require.Nil(t, p)
		return nil
	}))
}

func TestSaleListingAndTransfer(t *testing.T) {
	s := openTestStore(t)
	seedParcels(t, s, 1)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.AssignParcel(1, ParcelAssignment{
			Owner: "kaspa:seller", BuildingType: "medium_house", BuildingVariant: "A",
			PurchaseAmount: 10, ZkaspaBalance: 0,
		}))
		require.NoError(t, tx.CreditZkaspa(1.2, 1))

		require.NoError(t, tx.SetForSale(1, 15))
		listed, err := tx.ForSaleParcelByOwner("kaspa:seller")
		require.NoError(t, err)
		require.NotNil(t, listed)
		require.InDelta(t, 15, listed.SalePrice.Float64, 1e-9)

		require.NoError(t, tx.UpdateSalePrice(1, 20))
		require.NoError(t, tx.TransferParcel(1, "kaspa:buyer", 4.2, 20, 5000))

		p, err := tx.Parcel(1)
		require.NoError(t, err)
		require.Equal(t, "kaspa:buyer", p.OwnerAddress.String)
		require.False(t, p.IsForSale)
		require.InDelta(t, 4.2, p.ZkaspaBalance, 1e-9)
		require.InDelta(t, 20, p.PurchaseAmount.Float64, 1e-9)
		return nil
	}))
}

func TestWatchEntries(t *testing.T) {
	s := openTestStore(t)
	seedParcels(t, s, 1)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.InsertWatchEntry("kaspa:seller", 15, 1, 1000))

		pending, err := tx.PendingWatchEntries()
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.InDelta(t, 15, pending[0].ExpectedAmount, 1e-9)

		require.NoError(t, tx.UpdateWatchAmount("kaspa:seller", 1, 20))
		w, err := tx.WatchEntryForParcel(1)
		require.NoError(t, err)
		require.InDelta(t, 20, w.ExpectedAmount, 1e-9)

		require.NoError(t, tx.CompleteWatchEntry(w.ID))
		pending, err = tx.PendingWatchEntries()
		require.NoError(t, err)
		require.Empty(t, pending)
		return nil
	}))
}

func TestOverdueParcels(t *testing.T) {
	s := openTestStore(t)
	seedParcels(t, s, 2)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.UpsertBuildingType(BuildingTypeRow{
			Name: "kaspa_tower", MinAmount: 1000, FeeAmount: 15, FeeFrequency: 15,
		}))
		require.NoError(t, tx.AssignParcel(1, ParcelAssignment{
			Owner: "kaspa:late", BuildingType: "kaspa_tower", BuildingVariant: "A",
			PurchaseAmount: 1000, NextFeeDate: 500,
		}))
		require.NoError(t, tx.AssignParcel(2, ParcelAssignment{
			Owner: "kaspa:ontime", BuildingType: "kaspa_tower", BuildingVariant: "A",
			PurchaseAmount: 1000, NextFeeDate: 9999,
		}))

		due, err := tx.OverdueParcels(1000)
		require.NoError(t, err)
		require.Len(t, due, 1)
		require.Equal(t, "kaspa:late", due[0].OwnerAddress.String)
		require.InDelta(t, 15, due[0].FeeAmount, 1e-9)
		return nil
	}))
}

func TestEventWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.InsertEvent(Event{
			EventType: "zkaspa_boost", StartTime: 1000, EndTime: 2000,
			Description: "boost", EnergyMultiplier: 1, ZkaspaMultiplier: 1.5,
		}))

		e, err := tx.ActiveEvent(1500)
		require.NoError(t, err)
		require.NotNil(t, e)
		require.InDelta(t, 1.5, e.ZkaspaMultiplier, 1e-9)

		e, err = tx.ActiveEvent(2500)
		require.NoError(t, err)
		require.Nil(t, e)

		ok, err := tx.HasEventEndingAfter(1500)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = tx.HasEventEndingAfter(2500)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}

func TestProductionAggregates(t *testing.T) {
	s := openTestStore(t)
	seedParcels(t, s, 2)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.AssignParcel(1, ParcelAssignment{
			Owner: "kaspa:a", BuildingType: "wind_turbine", BuildingVariant: "A",
			PurchaseAmount: 250, EnergyProduction: 20, ZkaspaProduction: 1,
		}))
		require.NoError(t, tx.AssignParcel(2, ParcelAssignment{
			Owner: "kaspa:b", BuildingType: "small_house", BuildingVariant: "A",
			PurchaseAmount: 2, EnergyConsumption: 1, ZkaspaProduction: 0.1,
		}))

		prod, cons, err := tx.EnergyTotals()
		require.NoError(t, err)
		require.InDelta(t, 20, prod, 1e-9)
		require.InDelta(t, 1, cons, 1e-9)

		predicted, err := tx.PredictedZkaspa(1.2)
		require.NoError(t, err)
		require.InDelta(t, 1*1.2+0.1, predicted, 1e-9)

		require.NoError(t, tx.CreditZkaspa(1.2, 1))
		total, err := tx.TotalZkaspa()
		require.NoError(t, err)
		require.InDelta(t, 1.3, total, 1e-9)

		leaders, err := tx.TopWalletsByZkaspa(10)
		require.NoError(t, err)
		require.Len(t, leaders, 2)
		require.Equal(t, "kaspa:a", leaders[0].Address)
		return nil
	}))
}

func TestBuildingCatalogSync(t *testing.T) {
	s := openTestStore(t)
	seedParcels(t, s, 1)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.UpsertBuildingType(BuildingTypeRow{
			Name: "medium_house", MinAmount: 10, EnergyConsumption: 2, ZkaspaProduction: 0.5,
		}))
		require.NoError(t, tx.UpsertVariant(VariantRow{BuildingType: "medium_house", Variant: "A", Probability: 0.999}))
		require.NoError(t, tx.UpsertVariant(VariantRow{BuildingType: "medium_house", Variant: "S", Probability: 0.001}))

		require.NoError(t, tx.AssignParcel(1, ParcelAssignment{
			Owner: "kaspa:c", BuildingType: "medium_house", BuildingVariant: "A",
			PurchaseAmount: 10, EnergyConsumption: 1, ZkaspaProduction: 0.2,
		}))
		require.NoError(t, tx.SyncParcelStats("medium_house", 1, 30, 0, 2, 0.5))

		p, err := tx.Parcel(1)
		require.NoError(t, err)
		require.InDelta(t, 2, p.EnergyConsumption, 1e-9)
		require.InDelta(t, 0.5, p.ZkaspaProduction, 1e-9)

		vs, err := tx.VariantsFor("medium_house")
		require.NoError(t, err)
		require.Len(t, vs, 2)
		return nil
	}))
}

func TestDailyStatUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.UpsertDailyStat(DailyStat{Date: "2026-08-30", TotalZkaspa: 10}))
		require.NoError(t, tx.UpsertDailyStat(DailyStat{Date: "2026-08-30", TotalZkaspa: 12}))

		got, err := tx.DailyStatFor("2026-08-30")
		require.NoError(t, err)
		require.InDelta(t, 12, got.TotalZkaspa, 1e-9)

		missing, err := tx.DailyStatFor("2026-08-29")
		require.NoError(t, err)
		require.Nil(t, missing)
		return nil
	}))
}

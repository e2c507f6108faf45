package controller

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/Macmachi/kasland/pkg/catalog"
	"github.com/Macmachi/kasland/pkg/db"
	"go.uber.org/zap"
)

type parcelView struct {
	ID                int64    `json:"id"`
	OwnerAddress      *string  `json:"owner_address"`
	BuildingType      *string  `json:"building_type"`
	BuildingVariant   *string  `json:"building_variant"`
	PurchaseAmount    *float64 `json:"purchase_amount"`
	X                 int      `json:"x"`
	Y                 int      `json:"y"`
	PurchaseDate      *int64   `json:"purchase_date"`
	LastFeePayment    *int64   `json:"last_fee_payment"`
	LastFeeCheck      *int64   `json:"last_fee_check"`
	LastFeeAmount     *float64 `json:"last_fee_amount"`
	FeeFrequency      *int64   `json:"fee_frequency"`
	NextFeeDate       *int64   `json:"next_fee_date"`
	EnergyProduction  float64  `json:"energy_production"`
	EnergyConsumption float64  `json:"energy_consumption"`
	ZkaspaProduction  float64  `json:"zkaspa_production"`
	ZkaspaBalance     float64  `json:"zkaspa_balance"`
	IsForSale         bool     `json:"is_for_sale"`
	SalePrice         *float64 `json:"sale_price"`
	Type              *string  `json:"type"`
	Rarity            string   `json:"rarity"`
	CurrentCount      int      `json:"current_count"`
	MaxCount          *int64   `json:"max_count"`
}

// HandleAllParcels returns every grid cell plus the map size, the way the
// front-end map expects it.
func (c *Controller) HandleAllParcels(w http.ResponseWriter, r *http.Request) {
	var (
		parcels []db.Parcel
		counts  map[string]int
		mapSize = c.App.Config.ParcelsPerRow
	)
	err := c.App.Store.WithTx(r.Context(), func(tx *db.Tx) error {
		if v, ok, err := tx.Parameter("map_size"); err != nil {
			return err
		} else if ok {
			if n, convErr := strconv.Atoi(v); convErr == nil {
				mapSize = n
			}
		}
		var err error
		if counts, err = tx.BuildingCounts(); err != nil {
			return err
		}
		parcels, err = tx.AllParcels()
		return err
	})
	if err != nil {
		c.App.Logger.Error("all parcels query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	views := make([]parcelView, 0, len(parcels))
	for i := range parcels {
		views = append(views, c.parcelToView(&parcels[i], counts))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"map_size": mapSize,
		"parcels":  views,
	})
}

func (c *Controller) parcelToView(p *db.Parcel, counts map[string]int) parcelView {
	v := parcelView{
		ID:                p.ID,
		OwnerAddress:      nullStr(p.OwnerAddress),
		BuildingType:      nullStr(p.BuildingType),
		BuildingVariant:   nullStr(p.BuildingVariant),
		PurchaseAmount:    nullFloat(p.PurchaseAmount),
		X:                 p.X,
		Y:                 p.Y,
		PurchaseDate:      nullInt(p.PurchaseDate),
		LastFeePayment:    nullInt(p.LastFeePayment),
		LastFeeCheck:      nullInt(p.LastFeeCheck),
		LastFeeAmount:     nullFloat(p.LastFeeAmount),
		FeeFrequency:      nullInt(p.FeeFrequency),
		NextFeeDate:       nullInt(p.NextFeeDate),
		EnergyProduction:  p.EnergyProduction,
		EnergyConsumption: p.EnergyConsumption,
		ZkaspaProduction:  p.ZkaspaProduction,
		ZkaspaBalance:     p.ZkaspaBalance,
		IsForSale:         p.IsForSale,
		SalePrice:         nullFloat(p.SalePrice),
		Rarity:            "Unknown",
	}
	if p.BuildingType.Valid {
		v.CurrentCount = counts[p.BuildingType.String]
		if tier, ok := c.App.Catalog.Tier(p.BuildingType.String); ok {
			cat := tier.Category
			v.Type = &cat
			if tier.MaxCount > 0 {
				mc := int64(tier.MaxCount)
				v.MaxCount = &mc
			}
			if p.BuildingVariant.Valid {
				prob, found := tier.VariantProbability(p.BuildingVariant.String)
				if !found {
					prob = 1.0
				}
				v.Rarity = catalog.Rarity(prob)
			}
		}
	}
	return v
}

type saleView struct {
	ID              int64    `json:"id"`
	X               int      `json:"x"`
	Y               int      `json:"y"`
	BuildingType    *string  `json:"building_type"`
	BuildingVariant *string  `json:"building_variant"`
	SalePrice       *float64 `json:"sale_price"`
}

// HandleParcelsForSale lists every parcel currently on the resale market.
func (c *Controller) HandleParcelsForSale(w http.ResponseWriter, r *http.Request) {
	var parcels []db.Parcel
	err := c.App.Store.WithTx(r.Context(), func(tx *db.Tx) error {
		var err error
		parcels, err = tx.ParcelsForSale()
		return err
	})
	if err != nil {
		c.App.Logger.Error("parcels for sale query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]saleView, 0, len(parcels))
	for _, p := range parcels {
		out = append(out, saleView{
			ID:              p.ID,
			X:               p.X,
			Y:               p.Y,
			BuildingType:    nullStr(p.BuildingType),
			BuildingVariant: nullStr(p.BuildingVariant),
			SalePrice:       nullFloat(p.SalePrice),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocklinehq/stockline-backend/internal/catalog"
	"github.com/stocklinehq/stockline-backend/internal/sales"
	"github.com/stocklinehq/stockline-backend/internal/snapshots"
	"github.com/stocklinehq/stockline-backend/internal/stockledger"
)

// setupSeasonTestDB creates the three reconciliation tables. Rows are
// inserted by the services, which leave id to the database default; sqlite
// has none, so id stays unconstrained here and uniqueness rides on the
// (variant_id, season_key) index the services actually depend on.
func setupSeasonTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	// The snapshot run writes rows concurrently; a single pooled connection
	// keeps every goroutine on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, schema := range []string{`
CREATE TABLE IF NOT EXISTS season_snapshots (
  id TEXT,
  variant_id INTEGER NOT NULL,
  stock_item_id INTEGER NOT NULL,
  product_title TEXT NOT NULL,
  variant_title TEXT NOT NULL,
  image_url TEXT,
  baseline_qty INTEGER NOT NULL DEFAULT 0,
  season_key TEXT NOT NULL,
  season_tags TEXT,
  snapshot_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (variant_id, season_key)
);`, `
CREATE TABLE IF NOT EXISTS sale_records (
  id TEXT,
  variant_id INTEGER NOT NULL,
  sku TEXT NOT NULL,
  qty INTEGER NOT NULL,
  order_id INTEGER NOT NULL,
  created_at DATETIME NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS inventory_observations (
  id TEXT,
  stock_item_id INTEGER NOT NULL,
  location_id INTEGER NOT NULL,
  available_qty INTEGER NOT NULL,
  delta INTEGER NOT NULL,
  recorded_at DATETIME NOT NULL
);`} {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

// seasonCatalogStub stands in for the upstream catalog: it serves a fixed
// product set and availability map to both discovery and collection.
type seasonCatalogStub struct {
	products     []catalog.Product
	availability map[int64]int
}

func (s *seasonCatalogStub) DiscoverTaggedProducts(context.Context, []string) ([]catalog.Product, error) {
	return s.products, nil
}

func (s *seasonCatalogStub) CollectAvailability(context.Context, []int64) (map[int64]int, error) {
	return s.availability, nil
}

// TestSeasonReconciliationFlow drives the full pipeline over one database:
// a snapshot run fixes the baselines, order and inventory events land through
// the ingestion services, and the report reconciles them.
func TestSeasonReconciliationFlow(t *testing.T) {
	db := setupSeasonTestDB(t)
	ctx := context.Background()
	logg := testLogger()

	jacketImage := "https://cdn.example.com/alpine-jacket.jpg"
	upstream := &seasonCatalogStub{
		products: []catalog.Product{
			{
				ID:    1,
				Title: "Alpine Jacket",
				Tags:  "FW25, MEN, outerwear",
				Variants: []catalog.Variant{
					{ID: 101, ProductID: 1, Title: "S", SKU: "AJ-S", InventoryItemID: 201},
					{ID: 102, ProductID: 1, Title: "M", SKU: "AJ-M", InventoryItemID: 202},
				},
				Images: []catalog.Image{{ID: 1, Src: jacketImage}},
			},
			{
				ID:    2,
				Title: "Base Layer",
				Tags:  "fw25, men",
				Variants: []catalog.Variant{
					{ID: 103, ProductID: 2, Title: "One Size", SKU: "BL-OS", InventoryItemID: 203},
				},
			},
		},
		availability: map[int64]int{201: 10, 202: 5, 203: 0},
	}

	snapshotRepo := snapshots.NewRepository(db)
	snapshotSvc, err := snapshots.NewService(snapshots.ServiceParams{
		Repo:      snapshotRepo,
		Discovery: upstream,
		Collector: upstream,
		Logger:    logg,
	})
	require.NoError(t, err)

	salesRepo := sales.NewRepository(db)
	salesSvc, err := sales.NewService(salesRepo, logg)
	require.NoError(t, err)

	ledgerRepo := stockledger.NewRepository(db)
	ledgerSvc, err := stockledger.NewService(ledgerRepo, logg)
	require.NoError(t, err)

	// Fix the season baselines: 10 / 5 / 0 across the three variants.
	run, err := snapshotSvc.RunSeasonSnapshot(ctx, "FW25,MEN")
	require.NoError(t, err)
	assert.Equal(t, []string{"fw25", "men"}, run.Tags)
	assert.Equal(t, 2, run.ProductsMatched)
	assert.Equal(t, 3, run.VariantsTotal)
	assert.Equal(t, 3, run.Created)
	assert.Zero(t, run.Failed)

	// Two orders sell 4 units of the S jacket in total.
	_, err = salesSvc.RecordOrder(ctx, sales.RecordOrderInput{
		OrderID:   9001,
		LineItems: []sales.OrderLineItem{{VariantID: 101, SKU: "AJ-S", Qty: 3}},
	})
	require.NoError(t, err)
	_, err = salesSvc.RecordOrder(ctx, sales.RecordOrderInput{
		OrderID:   9002,
		LineItems: []sales.OrderLineItem{{VariantID: 101, SKU: "AJ-S", Qty: 1}},
	})
	require.NoError(t, err)

	// The M jacket restocks after the snapshot: the first reading seeds the
	// ledger with delta 0, the second lands a +8 delta.
	after := time.Now().UTC().Add(time.Minute)
	_, err = ledgerSvc.RecordObservation(ctx, stockledger.RecordObservationInput{
		StockItemID:  202,
		LocationID:   1,
		AvailableQty: 5,
		RecordedAt:   after,
	})
	require.NoError(t, err)
	_, err = ledgerSvc.RecordObservation(ctx, stockledger.RecordObservationInput{
		StockItemID:  202,
		LocationID:   1,
		AvailableQty: 13,
		RecordedAt:   after.Add(time.Minute),
	})
	require.NoError(t, err)

	reportSvc, err := NewService(ServiceParams{
		Snapshots: snapshotRepo,
		Ledger:    ledgerRepo,
		Sales:     salesRepo,
		Logger:    logg,
	})
	require.NoError(t, err)

	report, err := reportSvc.SellThrough(ctx, "FW25,MEN")
	require.NoError(t, err)

	require.Len(t, report.Variants, 3)

	// Variants sort by product then variant title: M before S.
	m := report.Variants[0]
	assert.Equal(t, int64(102), m.VariantID)
	assert.Equal(t, "Alpine Jacket", m.ProductTitle)
	assert.Equal(t, 5, m.BaselineQty)
	assert.Equal(t, 8, m.ExtraReceived)
	assert.Equal(t, 1, m.RestockCount)
	assert.Equal(t, 13, m.InitialTotal)
	assert.Zero(t, m.Sold)
	assert.Zero(t, m.SellThroughPct)
	require.NotNil(t, m.ImageURL)
	assert.Equal(t, jacketImage, *m.ImageURL)

	s := report.Variants[1]
	assert.Equal(t, int64(101), s.VariantID)
	assert.Equal(t, 10, s.BaselineQty)
	assert.Zero(t, s.ExtraReceived)
	assert.Zero(t, s.RestockCount)
	assert.Equal(t, 10, s.InitialTotal)
	assert.Equal(t, 4, s.Sold)
	assert.Equal(t, 40.0, s.SellThroughPct)

	oneSize := report.Variants[2]
	assert.Equal(t, int64(103), oneSize.VariantID)
	assert.Equal(t, "Base Layer", oneSize.ProductTitle)
	assert.Zero(t, oneSize.InitialTotal)
	assert.Zero(t, oneSize.SellThroughPct)

	require.Len(t, report.Products, 2)
	jacket := report.Products[0]
	assert.Equal(t, "Alpine Jacket", jacket.ProductTitle)
	assert.Equal(t, 15, jacket.BaselineQty)
	assert.Equal(t, 23, jacket.InitialTotal)
	assert.Equal(t, 4, jacket.Sold)
	// 4 / 23 * 100 = 17.4 from the summed totals; averaging the variant
	// percentages (40.0 and 0) would wrongly give 20.0.
	assert.Equal(t, 17.4, jacket.SellThroughPct)

	baseLayer := report.Products[1]
	assert.Equal(t, "Base Layer", baseLayer.ProductTitle)
	assert.Zero(t, baseLayer.InitialTotal)

	// Base Layer never had stock: present in the flat list, absent from
	// both rankings.
	require.Len(t, report.Best, 1)
	require.Len(t, report.Worst, 1)
	assert.Equal(t, "Alpine Jacket", report.Best[0].ProductTitle)
	assert.Equal(t, "Alpine Jacket", report.Worst[0].ProductTitle)
}

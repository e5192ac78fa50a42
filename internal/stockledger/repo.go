package stockledger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/stocklinehq/stockline-backend/pkg/db/models"
)

// Repository manages persistence for inventory observations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, observation *models.InventoryObservation) error
	LatestFor(ctx context.Context, stockItemID, locationID int64) (*models.InventoryObservation, error)
	RestockSince(ctx context.Context, stockItemID int64, since time.Time) (RestockSummary, error)
}

// RestockSummary aggregates the qualifying restock observations of one stock
// item: the summed positive deltas and how many observations contributed.
type RestockSummary struct {
	Total int `gorm:"column:total"`
	Count int `gorm:"column:restock_count"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an observation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, observation *models.InventoryObservation) error {
	return r.db.WithContext(ctx).Create(observation).Error
}

// LatestFor returns the most recent observation for the pair, or nil when the
// ledger has never seen it.
func (r *repository) LatestFor(ctx context.Context, stockItemID, locationID int64) (*models.InventoryObservation, error) {
	var observation models.InventoryObservation
	err := r.db.WithContext(ctx).
		Where("stock_item_id = ? AND location_id = ?", stockItemID, locationID).
		Order("recorded_at DESC").
		First(&observation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &observation, nil
}

// RestockSince sums and counts the positive deltas recorded at or after the
// given time across all locations of the stock item. Negative deltas (sales,
// shrinkage) are excluded.
func (r *repository) RestockSince(ctx context.Context, stockItemID int64, since time.Time) (RestockSummary, error) {
	var summary RestockSummary
	err := r.db.WithContext(ctx).
		Model(&models.InventoryObservation{}).
		Select("COALESCE(SUM(delta), 0) AS total, COUNT(*) AS restock_count").
		Where("stock_item_id = ? AND delta > 0 AND recorded_at >= ?", stockItemID, since).
		Scan(&summary).Error
	if err != nil {
		return RestockSummary{}, err
	}
	return summary, nil
}

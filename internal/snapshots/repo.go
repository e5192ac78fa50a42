package snapshots

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/stocklinehq/stockline-backend/pkg/db/models"
)

// Repository manages persistence for season snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, snapshot *models.SeasonSnapshot) error
	FindByVariantAndSeason(ctx context.Context, variantID int64, seasonKey string) (*models.SeasonSnapshot, error)
	UpdateDescriptive(ctx context.Context, snapshot *models.SeasonSnapshot) error
	ListBySeason(ctx context.Context, seasonKey string) ([]models.SeasonSnapshot, error)
	DistinctSeasonKeys(ctx context.Context) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a snapshot repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, snapshot *models.SeasonSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// FindByVariantAndSeason returns the snapshot row, or nil when the variant has
// never been snapshotted for the season.
func (r *repository) FindByVariantAndSeason(ctx context.Context, variantID int64, seasonKey string) (*models.SeasonSnapshot, error) {
	var snapshot models.SeasonSnapshot
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND season_key = ?", variantID, seasonKey).
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// UpdateDescriptive refreshes the catalog-sourced columns of an existing row.
// baseline_qty and snapshot_at are deliberately not in the column list.
func (r *repository) UpdateDescriptive(ctx context.Context, snapshot *models.SeasonSnapshot) error {
	return r.db.WithContext(ctx).
		Model(&models.SeasonSnapshot{}).
		Where("variant_id = ? AND season_key = ?", snapshot.VariantID, snapshot.SeasonKey).
		Updates(map[string]any{
			"stock_item_id": snapshot.StockItemID,
			"product_title": snapshot.ProductTitle,
			"variant_title": snapshot.VariantTitle,
			"image_url":     snapshot.ImageURL,
			"season_tags":   snapshot.SeasonTags,
		}).Error
}

func (r *repository) ListBySeason(ctx context.Context, seasonKey string) ([]models.SeasonSnapshot, error) {
	var snapshots []models.SeasonSnapshot
	if err := r.db.WithContext(ctx).
		Where("season_key = ?", seasonKey).
		Order("product_title ASC, variant_title ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *repository) DistinctSeasonKeys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := r.db.WithContext(ctx).
		Model(&models.SeasonSnapshot{}).
		Distinct("season_key").
		Order("season_key ASC").
		Pluck("season_key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

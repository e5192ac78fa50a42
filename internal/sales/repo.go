package sales

import (
	"context"

	"gorm.io/gorm"

	"github.com/stocklinehq/stockline-backend/pkg/db/models"
)

// Repository manages persistence for sale records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, records []*models.SaleRecord) error
	TotalsByVariant(ctx context.Context, variantIDs []int64) (map[int64]int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sales repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, records []*models.SaleRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(records).Error
}

// TotalsByVariant returns the cumulative sold quantity per variant. Variants
// with no sales are absent from the result.
func (r *repository) TotalsByVariant(ctx context.Context, variantIDs []int64) (map[int64]int, error) {
	totals := make(map[int64]int, len(variantIDs))
	if len(variantIDs) == 0 {
		return totals, nil
	}

	type row struct {
		VariantID int64
		Total     int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.SaleRecord{}).
		Select("variant_id, COALESCE(SUM(qty), 0) AS total").
		Where("variant_id IN ?", variantIDs).
		Group("variant_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		totals[r.VariantID] = r.Total
	}
	return totals, nil
}

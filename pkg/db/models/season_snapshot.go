package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SeasonSnapshot fixes the baseline stock for one variant within one season.
// BaselineQty and SnapshotAt are written once per (variant_id, season_key);
// the descriptive columns are refreshed on every re-snapshot.
type SeasonSnapshot struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VariantID    int64          `gorm:"column:variant_id;not null;uniqueIndex:idx_season_snapshots_variant_season"`
	StockItemID  int64          `gorm:"column:stock_item_id;not null"`
	ProductTitle string         `gorm:"column:product_title;not null"`
	VariantTitle string         `gorm:"column:variant_title;not null"`
	ImageURL     *string        `gorm:"column:image_url"`
	BaselineQty  int            `gorm:"column:baseline_qty;not null;default:0"`
	SeasonKey    string         `gorm:"column:season_key;not null;uniqueIndex:idx_season_snapshots_variant_season"`
	SeasonTags   pq.StringArray `gorm:"column:season_tags;type:text[]"`
	SnapshotAt   time.Time      `gorm:"column:snapshot_at;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

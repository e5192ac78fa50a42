package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryObservation is one inventory-level reading from the upstream
// stock-update event. Delta is fixed at write time against the previous
// observation for the same (stock_item_id, location_id) and never recomputed.
type InventoryObservation struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StockItemID  int64     `gorm:"column:stock_item_id;not null;index:idx_inventory_observations_item_location,priority:1"`
	LocationID   int64     `gorm:"column:location_id;not null;index:idx_inventory_observations_item_location,priority:2"`
	AvailableQty int       `gorm:"column:available_qty;not null"`
	Delta        int       `gorm:"column:delta;not null"`
	RecordedAt   time.Time `gorm:"column:recorded_at;not null;index:idx_inventory_observations_item_location,priority:3"`
}

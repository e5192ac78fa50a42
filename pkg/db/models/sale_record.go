package models

import (
	"time"

	"github.com/google/uuid"
)

// SaleRecord is one order line item as delivered by the order-created event.
// Rows are append-only; duplicate deliveries of the same order line are not
// deduplicated here.
type SaleRecord struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VariantID int64     `gorm:"column:variant_id;not null;index:idx_sale_records_variant"`
	SKU       string    `gorm:"column:sku;not null"`
	Qty       int       `gorm:"column:qty;not null"`
	OrderID   int64     `gorm:"column:order_id;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

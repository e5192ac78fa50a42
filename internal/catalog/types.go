package catalog

import "strings"

// Product is the upstream catalog representation of a sellable product.
// Tags arrive as a single comma-separated string.
type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Tags     string    `json:"tags"`
	Variants []Variant `json:"variants"`
	Images   []Image   `json:"images"`
}

// TagList splits the comma-separated tag string into trimmed lowercase tags.
func (p Product) TagList() []string {
	if strings.TrimSpace(p.Tags) == "" {
		return nil
	}
	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

type Variant struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"product_id"`
	Title           string `json:"title"`
	SKU             string `json:"sku"`
	InventoryItemID int64  `json:"inventory_item_id"`
}

type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
}

// InventoryLevel is one location-level availability entry for a stock item.
// Available is a pointer because the upstream reports null for untracked items.
type InventoryLevel struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       *int  `json:"available"`
}

// Quantity returns the available quantity, treating untracked (null) as zero.
func (l InventoryLevel) Quantity() int {
	if l.Available == nil {
		return 0
	}
	return *l.Available
}

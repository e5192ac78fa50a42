package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/stocklinehq/stockline-backend/internal/catalog"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

// productFields narrows catalog payloads to what discovery needs.
var productFields = []string{"id", "title", "tags", "variants", "images"}

// ProductLister is the catalog surface discovery consumes.
type ProductLister interface {
	ListProducts(ctx context.Context, cursor catalog.Cursor, fields []string) (catalog.ProductPage, error)
}

// Service finds the products participating in a season.
type Service interface {
	DiscoverTaggedProducts(ctx context.Context, requiredTags []string) ([]catalog.Product, error)
}

type service struct {
	client ProductLister
	logger *logger.Logger
}

// NewService wires a discovery service over the catalog client.
func NewService(client ProductLister, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("discovery catalog client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("discovery logger required")
	}
	return &service{client: client, logger: logg}, nil
}

// DiscoverTaggedProducts walks the full catalog and keeps only products whose
// tag set contains every required tag. An empty tag list yields an empty
// result with a warning rather than an error.
func (s *service) DiscoverTaggedProducts(ctx context.Context, requiredTags []string) ([]catalog.Product, error) {
	required := NormalizeTags(requiredTags)
	if len(required) == 0 {
		s.logger.Warn(ctx, "no season tags provided, skipping catalog discovery")
		return []catalog.Product{}, nil
	}

	matched := []catalog.Product{}
	scanned := 0
	var cursor catalog.Cursor
	for {
		page, err := s.client.ListProducts(ctx, cursor, productFields)
		if err != nil {
			return nil, err
		}
		if len(page.Products) == 0 {
			break
		}
		scanned += len(page.Products)
		for _, product := range page.Products {
			if hasAllTags(product, required) {
				matched = append(matched, product)
			}
		}
		if !page.HasNext {
			break
		}
		cursor = page.Next
	}

	logCtx := s.logger.WithFields(ctx, map[string]any{
		"tags":    strings.Join(required, ","),
		"scanned": scanned,
		"matched": len(matched),
	})
	s.logger.Info(logCtx, "catalog discovery complete")
	return matched, nil
}

// NormalizeTags trims and lowercases tags, dropping empties and duplicates
// while preserving first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		clean := strings.ToLower(strings.TrimSpace(tag))
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		normalized = append(normalized, clean)
	}
	return normalized
}

// hasAllTags requires every required tag to appear in the product's own tag
// set. Matching any single tag is not enough.
func hasAllTags(product catalog.Product, required []string) bool {
	tags := product.TagList()
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	for _, tag := range required {
		if _, ok := set[tag]; !ok {
			return false
		}
	}
	return true
}

package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

// Service appends order line items to the sales ledger.
type Service interface {
	RecordOrder(ctx context.Context, input RecordOrderInput) ([]*models.SaleRecord, error)
}

// RecordOrderInput carries one order-created event.
type RecordOrderInput struct {
	OrderID   int64           `json:"order_id"`
	CreatedAt time.Time       `json:"created_at"`
	LineItems []OrderLineItem `json:"line_items"`
}

// OrderLineItem is one sold variant within an order.
type OrderLineItem struct {
	VariantID int64  `json:"variant_id"`
	SKU       string `json:"sku"`
	Qty       int    `json:"quantity"`
}

type service struct {
	repo   Repository
	logger *logger.Logger
	now    func() time.Time
}

// NewService wires a sales-ledger service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("sales logger required")
	}
	return &service{repo: repo, logger: logg, now: time.Now}, nil
}

// RecordOrder appends one sale record per line item. Delivery is assumed
// at-least-once upstream; rows are not deduplicated here.
func (s *service) RecordOrder(ctx context.Context, input RecordOrderInput) ([]*models.SaleRecord, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if len(input.LineItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order %d has no line items", input.OrderID))
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	records := make([]*models.SaleRecord, 0, len(input.LineItems))
	for i, item := range input.LineItems {
		if item.VariantID <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line item %d: variant id is required", i))
		}
		if item.Qty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line item %d: quantity must not be negative", i))
		}
		records = append(records, &models.SaleRecord{
			VariantID: item.VariantID,
			SKU:       item.SKU,
			Qty:       item.Qty,
			OrderID:   input.OrderID,
			CreatedAt: createdAt,
		})
	}

	if err := s.repo.CreateBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("appending sale records: %w", err)
	}

	logCtx := s.logger.WithFields(ctx, map[string]any{
		"order_id":   input.OrderID,
		"line_items": len(records),
	})
	s.logger.Info(logCtx, "order sales recorded")
	return records, nil
}

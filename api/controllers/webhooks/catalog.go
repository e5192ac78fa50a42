package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/stocklinehq/stockline-backend/api/responses"
	"github.com/stocklinehq/stockline-backend/internal/sales"
	"github.com/stocklinehq/stockline-backend/internal/stockledger"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/db/models"
)

type OrderRecorder interface {
	RecordOrder(ctx context.Context, input sales.RecordOrderInput) ([]*models.SaleRecord, error)
}

type ObservationRecorder interface {
	RecordObservation(ctx context.Context, input stockledger.RecordObservationInput) (*models.InventoryObservation, error)
}

type orderCreatedEvent struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LineItems []struct {
		VariantID int64  `json:"variant_id"`
		SKU       string `json:"sku"`
		Quantity  int    `json:"quantity"`
	} `json:"line_items"`
}

type inventoryLevelEvent struct {
	InventoryItemID int64     `json:"inventory_item_id"`
	LocationID      int64     `json:"location_id"`
	Available       *int      `json:"available"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OrderCreated ingests an order-created delivery and records its line items
// as sales. Payloads carry many fields beyond the ones modeled here, so the
// decode is deliberately lenient.
func OrderCreated(svc OrderRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		var event orderCreatedEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode order event"))
			return
		}

		input := sales.RecordOrderInput{
			OrderID:   event.ID,
			CreatedAt: event.CreatedAt,
			LineItems: make([]sales.OrderLineItem, 0, len(event.LineItems)),
		}
		for _, item := range event.LineItems {
			input.LineItems = append(input.LineItems, sales.OrderLineItem{
				VariantID: item.VariantID,
				SKU:       item.SKU,
				Qty:       item.Quantity,
			})
		}

		records, err := svc.RecordOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"recorded": len(records)})
	}
}

// InventoryLevelUpdated ingests an inventory-level delivery and appends a
// ledger observation for the affected item and location.
func InventoryLevelUpdated(svc ObservationRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var event inventoryLevelEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode inventory event"))
			return
		}

		available := 0
		if event.Available != nil {
			available = *event.Available
		}

		observation, err := svc.RecordObservation(ctx, stockledger.RecordObservationInput{
			StockItemID:  event.InventoryItemID,
			LocationID:   event.LocationID,
			AvailableQty: available,
			RecordedAt:   event.UpdatedAt,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, observation)
	}
}

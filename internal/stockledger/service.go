package stockledger

import (
	"context"
	"fmt"
	"time"

	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

// Service appends inventory-level readings to the change ledger.
type Service interface {
	RecordObservation(ctx context.Context, input RecordObservationInput) (*models.InventoryObservation, error)
}

// RecordObservationInput carries one stock-level update event.
type RecordObservationInput struct {
	StockItemID  int64     `json:"stock_item_id"`
	LocationID   int64     `json:"location_id"`
	AvailableQty int       `json:"available_qty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

type service struct {
	repo   Repository
	logger *logger.Logger
	now    func() time.Time
}

// NewService wires a change-ledger service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stockledger repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("stockledger logger required")
	}
	return &service{repo: repo, logger: logg, now: time.Now}, nil
}

// RecordObservation appends a reading, fixing its delta against the latest
// prior observation for the same (stock_item_id, location_id). The first
// observation for a pair gets delta 0: there is no history to diff against,
// so the first restock after adoption is under-counted.
func (s *service) RecordObservation(ctx context.Context, input RecordObservationInput) (*models.InventoryObservation, error) {
	if input.StockItemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock item id is required")
	}
	if input.LocationID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}

	recordedAt := input.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.now().UTC()
	}

	prior, err := s.repo.LatestFor(ctx, input.StockItemID, input.LocationID)
	if err != nil {
		return nil, fmt.Errorf("looking up prior observation: %w", err)
	}

	delta := 0
	if prior != nil {
		delta = input.AvailableQty - prior.AvailableQty
	}

	observation := &models.InventoryObservation{
		StockItemID:  input.StockItemID,
		LocationID:   input.LocationID,
		AvailableQty: input.AvailableQty,
		Delta:        delta,
		RecordedAt:   recordedAt,
	}
	if err := s.repo.Create(ctx, observation); err != nil {
		return nil, fmt.Errorf("appending observation: %w", err)
	}

	logCtx := s.logger.WithFields(ctx, map[string]any{
		"stock_item_id": input.StockItemID,
		"location_id":   input.LocationID,
		"available_qty": input.AvailableQty,
		"delta":         delta,
	})
	s.logger.Info(logCtx, "inventory observation recorded")
	return observation, nil
}

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/stocklinehq/stockline-backend/internal/catalog"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

const (
	defaultBatchSize = 40
	defaultPause     = 600 * time.Millisecond
)

// InventoryReader is the catalog surface the collector consumes.
type InventoryReader interface {
	ListInventoryLevels(ctx context.Context, stockItemIDs []int64) ([]catalog.InventoryLevel, error)
}

// Service gathers current availability for a set of stock items.
type Service interface {
	CollectAvailability(ctx context.Context, stockItemIDs []int64) (map[int64]int, error)
}

// ServiceParams carries the collector dependencies and pacing knobs.
type ServiceParams struct {
	Client    InventoryReader
	BatchSize int
	Pause     time.Duration
	Logger    *logger.Logger
}

type service struct {
	client    InventoryReader
	batchSize int
	pause     time.Duration
	logger    *logger.Logger

	// sleep is swapped out by tests to observe pacing without waiting.
	sleep func(time.Duration)
}

// NewService validates the params and applies pacing defaults.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("collector catalog client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("collector logger required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	pause := params.Pause
	if pause <= 0 {
		pause = defaultPause
	}
	return &service{
		client:    params.Client,
		batchSize: batchSize,
		pause:     pause,
		logger:    params.Logger,
		sleep:     time.Sleep,
	}, nil
}

// CollectAvailability returns the cross-location available total per stock
// item. Input ids are deduplicated; ids the upstream never reports stay at 0.
// Batches run sequentially with a pause between them, never after the last.
func (s *service) CollectAvailability(ctx context.Context, stockItemIDs []int64) (map[int64]int, error) {
	ids := dedupe(stockItemIDs)
	totals := make(map[int64]int, len(ids))
	for _, id := range ids {
		totals[id] = 0
	}
	if len(ids) == 0 {
		return totals, nil
	}

	batches := chunk(ids, s.batchSize)
	for i, batch := range batches {
		if i > 0 {
			s.sleep(s.pause)
		}
		levels, err := s.client.ListInventoryLevels(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("collecting inventory batch %d of %d: %w", i+1, len(batches), err)
		}
		for _, level := range levels {
			totals[level.InventoryItemID] += level.Quantity()
		}
	}

	logCtx := s.logger.WithFields(ctx, map[string]any{
		"stock_items": len(ids),
		"batches":     len(batches),
	})
	s.logger.Info(logCtx, "availability collection complete")
	return totals, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

func chunk(ids []int64, size int) [][]int64 {
	var batches [][]int64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}

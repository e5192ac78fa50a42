package snapshots

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stocklinehq/stockline-backend/internal/catalog"
	"github.com/stocklinehq/stockline-backend/internal/collector"
	"github.com/stocklinehq/stockline-backend/internal/discovery"
	"github.com/stocklinehq/stockline-backend/pkg/db"
	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

// applyConcurrency bounds the per-row write fan-out of a season run.
const applyConcurrency = 8

// Service establishes and refreshes season baselines.
type Service interface {
	RunSeasonSnapshot(ctx context.Context, seasonKey string) (*RunResult, error)
	ApplySnapshot(ctx context.Context, input ApplySnapshotInput) (*models.SeasonSnapshot, bool, error)
}

// ApplySnapshotInput carries one variant's observed state for a season.
type ApplySnapshotInput struct {
	VariantID    int64
	SeasonKey    string
	StockItemID  int64
	ProductTitle string
	VariantTitle string
	ImageURL     *string
	CurrentQty   int
	SeasonTags   []string
}

// RunResult summarizes one season snapshot run.
type RunResult struct {
	SeasonKey       string   `json:"season_key"`
	Tags            []string `json:"tags"`
	ProductsMatched int      `json:"products_matched"`
	VariantsTotal   int      `json:"variants_total"`
	Created         int      `json:"created"`
	Refreshed       int      `json:"refreshed"`
	Failed          int      `json:"failed"`
}

// ServiceParams carries the snapshot service dependencies.
type ServiceParams struct {
	Repo      Repository
	Discovery discovery.Service
	Collector collector.Service
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	discovery discovery.Service
	collector collector.Service
	logger    *logger.Logger
	now       func() time.Time
}

// NewService validates and wires the snapshot service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("snapshots repository required")
	}
	if params.Discovery == nil {
		return nil, fmt.Errorf("snapshots discovery service required")
	}
	if params.Collector == nil {
		return nil, fmt.Errorf("snapshots collector service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("snapshots logger required")
	}
	return &service{
		repo:      params.Repo,
		discovery: params.Discovery,
		collector: params.Collector,
		logger:    params.Logger,
		now:       time.Now,
	}, nil
}

// RunSeasonSnapshot discovers the season's products, collects current
// availability, and merges one snapshot row per variant. Row writes fan out
// concurrently and are best-effort: a failed row does not roll back the
// others, and the run reports how many rows failed.
func (s *service) RunSeasonSnapshot(ctx context.Context, seasonKey string) (*RunResult, error) {
	seasonKey = strings.TrimSpace(seasonKey)
	if seasonKey == "" {
		return nil, fmt.Errorf("season key is required")
	}

	tags := ParseSeasonTags(seasonKey)
	ctx = s.logger.WithSeasonKey(ctx, seasonKey)

	products, err := s.discovery.DiscoverTaggedProducts(ctx, tags)
	if err != nil {
		return nil, fmt.Errorf("discovering season products: %w", err)
	}

	stockItemIDs := make([]int64, 0, len(products))
	for _, product := range products {
		for _, variant := range product.Variants {
			stockItemIDs = append(stockItemIDs, variant.InventoryItemID)
		}
	}

	availability, err := s.collector.CollectAvailability(ctx, stockItemIDs)
	if err != nil {
		return nil, fmt.Errorf("collecting availability: %w", err)
	}

	result := &RunResult{SeasonKey: seasonKey, Tags: tags, ProductsMatched: len(products)}
	var created, refreshed, failed atomic.Int64

	group := errgroup.Group{}
	group.SetLimit(applyConcurrency)
	for _, product := range products {
		for _, variant := range product.Variants {
			result.VariantsTotal++
			input := ApplySnapshotInput{
				VariantID:    variant.ID,
				SeasonKey:    seasonKey,
				StockItemID:  variant.InventoryItemID,
				ProductTitle: product.Title,
				VariantTitle: variant.Title,
				ImageURL:     firstImageURL(product),
				CurrentQty:   availability[variant.InventoryItemID],
				SeasonTags:   tags,
			}
			group.Go(func() error {
				_, wasCreated, err := s.ApplySnapshot(ctx, input)
				if err != nil {
					failed.Add(1)
					errCtx := s.logger.WithField(ctx, "variant_id", input.VariantID)
					s.logger.Error(errCtx, "snapshot row write failed", err)
					return nil
				}
				if wasCreated {
					created.Add(1)
				} else {
					refreshed.Add(1)
				}
				return nil
			})
		}
	}
	_ = group.Wait()

	result.Created = int(created.Load())
	result.Refreshed = int(refreshed.Load())
	result.Failed = int(failed.Load())

	logCtx := s.logger.WithFields(ctx, map[string]any{
		"products":  result.ProductsMatched,
		"variants":  result.VariantsTotal,
		"created":   result.Created,
		"refreshed": result.Refreshed,
		"failed":    result.Failed,
	})
	s.logger.Info(logCtx, "season snapshot run complete")
	return result, nil
}

// ApplySnapshot merges one variant into the season. A variant not yet seen
// this season gets its baseline fixed from the current quantity; a variant
// already snapshotted only has its descriptive columns refreshed, never
// baseline_qty or snapshot_at. The returned bool reports whether a new row
// was created.
func (s *service) ApplySnapshot(ctx context.Context, input ApplySnapshotInput) (*models.SeasonSnapshot, bool, error) {
	if input.VariantID <= 0 {
		return nil, false, fmt.Errorf("variant id is required")
	}
	if strings.TrimSpace(input.SeasonKey) == "" {
		return nil, false, fmt.Errorf("season key is required")
	}

	existing, err := s.repo.FindByVariantAndSeason(ctx, input.VariantID, input.SeasonKey)
	if err != nil {
		return nil, false, fmt.Errorf("looking up snapshot: %w", err)
	}

	if existing == nil {
		snapshot := &models.SeasonSnapshot{
			VariantID:    input.VariantID,
			SeasonKey:    input.SeasonKey,
			StockItemID:  input.StockItemID,
			ProductTitle: input.ProductTitle,
			VariantTitle: input.VariantTitle,
			ImageURL:     input.ImageURL,
			BaselineQty:  input.CurrentQty,
			SeasonTags:   input.SeasonTags,
			SnapshotAt:   s.now().UTC(),
		}
		err := s.repo.Create(ctx, snapshot)
		if err == nil {
			return snapshot, true, nil
		}
		// A concurrent run won the insert race: fall through to refresh.
		if !db.IsUniqueViolation(err, "") {
			return nil, false, fmt.Errorf("creating snapshot: %w", err)
		}
		existing, err = s.repo.FindByVariantAndSeason(ctx, input.VariantID, input.SeasonKey)
		if err != nil {
			return nil, false, fmt.Errorf("refetching snapshot after conflict: %w", err)
		}
		if existing == nil {
			return nil, false, fmt.Errorf("snapshot conflict without existing row for variant %d", input.VariantID)
		}
	}

	existing.StockItemID = input.StockItemID
	existing.ProductTitle = input.ProductTitle
	existing.VariantTitle = input.VariantTitle
	existing.ImageURL = input.ImageURL
	existing.SeasonTags = input.SeasonTags
	if err := s.repo.UpdateDescriptive(ctx, existing); err != nil {
		return nil, false, fmt.Errorf("refreshing snapshot: %w", err)
	}
	return existing, false, nil
}

// ParseSeasonTags splits a season key into its required tags. Keys use comma
// or semicolon separators; tags come back trimmed, lowercased, deduplicated.
func ParseSeasonTags(seasonKey string) []string {
	parts := strings.FieldsFunc(seasonKey, func(r rune) bool {
		return r == ',' || r == ';'
	})
	return discovery.NormalizeTags(parts)
}

func firstImageURL(product catalog.Product) *string {
	for _, image := range product.Images {
		if strings.TrimSpace(image.Src) != "" {
			src := image.Src
			return &src
		}
	}
	return nil
}

package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/stocklinehq/stockline-backend/internal/sales"
	"github.com/stocklinehq/stockline-backend/internal/snapshots"
	"github.com/stocklinehq/stockline-backend/internal/stockledger"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

const (
	restockConcurrency = 8
	rankingSize        = 10
)

// VariantReport is the sell-through state of one variant within a season.
type VariantReport struct {
	VariantID      int64   `json:"variant_id"`
	ProductTitle   string  `json:"product_title"`
	VariantTitle   string  `json:"variant_title"`
	ImageURL       *string `json:"image_url,omitempty"`
	BaselineQty    int     `json:"baseline_qty"`
	ExtraReceived  int     `json:"extra_received"`
	RestockCount   int     `json:"restock_count"`
	InitialTotal   int     `json:"initial_total"`
	Sold           int     `json:"sold"`
	SellThroughPct float64 `json:"sell_through_pct"`
}

// ProductReport aggregates a product's variants. Its percentage is recomputed
// from the summed totals, not averaged from variant percentages.
type ProductReport struct {
	ProductTitle   string  `json:"product_title"`
	ImageURL       *string `json:"image_url,omitempty"`
	BaselineQty    int     `json:"baseline_qty"`
	InitialTotal   int     `json:"initial_total"`
	Sold           int     `json:"sold"`
	SellThroughPct float64 `json:"sell_through_pct"`
}

// SellThroughReport is the full season reconciliation output.
type SellThroughReport struct {
	SeasonKey   string          `json:"season_key"`
	GeneratedAt time.Time       `json:"generated_at"`
	Variants    []VariantReport `json:"variants"`
	Products    []ProductReport `json:"products"`
	Best        []ProductReport `json:"best"`
	Worst       []ProductReport `json:"worst"`
}

// Service computes season sell-through reports.
type Service interface {
	SellThrough(ctx context.Context, seasonKey string) (*SellThroughReport, error)
}

// ServiceParams carries the report engine dependencies.
type ServiceParams struct {
	Snapshots snapshots.Repository
	Ledger    stockledger.Repository
	Sales     sales.Repository
	Logger    *logger.Logger
}

type service struct {
	snapshots snapshots.Repository
	ledger    stockledger.Repository
	sales     sales.Repository
	logger    *logger.Logger
	now       func() time.Time
}

// NewService validates and wires the report engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Snapshots == nil {
		return nil, fmt.Errorf("reports snapshot repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("reports stockledger repository required")
	}
	if params.Sales == nil {
		return nil, fmt.Errorf("reports sales repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("reports logger required")
	}
	return &service{
		snapshots: params.Snapshots,
		ledger:    params.Ledger,
		sales:     params.Sales,
		logger:    params.Logger,
		now:       time.Now,
	}, nil
}

// SellThrough joins the season's baselines with restocks and cumulative sales.
// A season with no snapshots yields an empty report, not an error.
func (s *service) SellThrough(ctx context.Context, seasonKey string) (*SellThroughReport, error) {
	seasonKey = strings.TrimSpace(seasonKey)
	if seasonKey == "" {
		return nil, fmt.Errorf("season key is required")
	}
	ctx = s.logger.WithSeasonKey(ctx, seasonKey)

	report := &SellThroughReport{
		SeasonKey:   seasonKey,
		GeneratedAt: s.now().UTC(),
		Variants:    []VariantReport{},
		Products:    []ProductReport{},
		Best:        []ProductReport{},
		Worst:       []ProductReport{},
	}

	rows, err := s.snapshots.ListBySeason(ctx, seasonKey)
	if err != nil {
		return nil, fmt.Errorf("loading season snapshots: %w", err)
	}
	if len(rows) == 0 {
		s.logger.Warn(ctx, "no snapshots recorded for season")
		return report, nil
	}

	variantIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		variantIDs = append(variantIDs, row.VariantID)
	}
	soldByVariant, err := s.sales.TotalsByVariant(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("loading sales totals: %w", err)
	}

	// Restocks are scoped per row: only positive deltas recorded at or after
	// that variant's own snapshot time count as extra received stock.
	restocks := make([]stockledger.RestockSummary, len(rows))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(restockConcurrency)
	for i, row := range rows {
		group.Go(func() error {
			summary, err := s.ledger.RestockSince(groupCtx, row.StockItemID, row.SnapshotAt)
			if err != nil {
				return fmt.Errorf("loading restocks for stock item %d: %w", row.StockItemID, err)
			}
			restocks[i] = summary
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	report.Variants = make([]VariantReport, 0, len(rows))
	for i, row := range rows {
		initial := row.BaselineQty + restocks[i].Total
		sold := soldByVariant[row.VariantID]
		report.Variants = append(report.Variants, VariantReport{
			VariantID:      row.VariantID,
			ProductTitle:   row.ProductTitle,
			VariantTitle:   row.VariantTitle,
			ImageURL:       row.ImageURL,
			BaselineQty:    row.BaselineQty,
			ExtraReceived:  restocks[i].Total,
			RestockCount:   restocks[i].Count,
			InitialTotal:   initial,
			Sold:           sold,
			SellThroughPct: sellThroughPct(sold, initial),
		})
	}
	sort.SliceStable(report.Variants, func(a, b int) bool {
		if report.Variants[a].ProductTitle != report.Variants[b].ProductTitle {
			return report.Variants[a].ProductTitle < report.Variants[b].ProductTitle
		}
		return report.Variants[a].VariantTitle < report.Variants[b].VariantTitle
	})

	report.Products = aggregateProducts(report.Variants)
	report.Best, report.Worst = rankProducts(report.Products)

	logCtx := s.logger.WithFields(ctx, map[string]any{
		"variants": len(report.Variants),
		"products": len(report.Products),
	})
	s.logger.Info(logCtx, "sell-through report computed")
	return report, nil
}

// sellThroughPct is sold/initial as a percentage rounded to one decimal.
// Variants with no initial stock report 0 rather than dividing by zero.
func sellThroughPct(sold, initial int) float64 {
	if initial <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(sold)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(initial))).
		Round(1)
	value, _ := pct.Float64()
	return value
}

// aggregateProducts groups variants by product title and recomputes the
// percentage from the summed totals. Variants arrive sorted by title, so the
// output preserves the title ordering.
func aggregateProducts(variants []VariantReport) []ProductReport {
	products := []ProductReport{}
	index := map[string]int{}
	for _, variant := range variants {
		i, ok := index[variant.ProductTitle]
		if !ok {
			i = len(products)
			index[variant.ProductTitle] = i
			products = append(products, ProductReport{
				ProductTitle: variant.ProductTitle,
				ImageURL:     variant.ImageURL,
			})
		}
		products[i].BaselineQty += variant.BaselineQty
		products[i].InitialTotal += variant.InitialTotal
		products[i].Sold += variant.Sold
	}
	for i := range products {
		products[i].SellThroughPct = sellThroughPct(products[i].Sold, products[i].InitialTotal)
	}
	return products
}

// rankProducts returns the top and bottom performers by percentage. Products
// that never had stock this season are excluded from both rankings; they
// remain in the flat product list.
func rankProducts(products []ProductReport) (best, worst []ProductReport) {
	ranked := make([]ProductReport, 0, len(products))
	for _, product := range products {
		if product.InitialTotal > 0 {
			ranked = append(ranked, product)
		}
	}

	best = make([]ProductReport, len(ranked))
	copy(best, ranked)
	sort.SliceStable(best, func(a, b int) bool {
		if best[a].SellThroughPct != best[b].SellThroughPct {
			return best[a].SellThroughPct > best[b].SellThroughPct
		}
		return best[a].ProductTitle < best[b].ProductTitle
	})

	worst = make([]ProductReport, len(ranked))
	copy(worst, ranked)
	sort.SliceStable(worst, func(a, b int) bool {
		if worst[a].SellThroughPct != worst[b].SellThroughPct {
			return worst[a].SellThroughPct < worst[b].SellThroughPct
		}
		return worst[a].ProductTitle < worst[b].ProductTitle
	})

	if len(best) > rankingSize {
		best = best[:rankingSize]
	}
	if len(worst) > rankingSize {
		worst = worst[:rankingSize]
	}
	return best, worst
}

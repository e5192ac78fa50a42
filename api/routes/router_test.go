package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stocklinehq/stockline-backend/internal/reports"
	"github.com/stocklinehq/stockline-backend/internal/sales"
	"github.com/stocklinehq/stockline-backend/internal/snapshots"
	"github.com/stocklinehq/stockline-backend/internal/stockledger"
	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	pkgredis "github.com/stocklinehq/stockline-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSnapshotService struct{}

func (stubSnapshotService) RunSeasonSnapshot(context.Context, string) (*snapshots.RunResult, error) {
	return &snapshots.RunResult{}, nil
}

func (stubSnapshotService) ApplySnapshot(context.Context, snapshots.ApplySnapshotInput) (*models.SeasonSnapshot, bool, error) {
	return nil, false, nil
}

type stubReportService struct{}

func (stubReportService) SellThrough(context.Context, string) (*reports.SellThroughReport, error) {
	return &reports.SellThroughReport{}, nil
}

type stubSalesService struct{}

func (stubSalesService) RecordOrder(context.Context, sales.RecordOrderInput) ([]*models.SaleRecord, error) {
	return nil, nil
}

type stubLedgerService struct{}

func (stubLedgerService) RecordObservation(context.Context, stockledger.RecordObservationInput) (*models.InventoryObservation, error) {
	return &models.InventoryObservation{}, nil
}

func newTestRouter() http.Handler {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		&pkgredis.Client{},
		stubSnapshotService{},
		stubReportService{},
		stubSalesService{},
		stubLedgerService{},
	)
}

func TestHealthLiveRoute(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestSnapshotRouteRequiresIdempotencyKey(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/seasons/snapshot", strings.NewReader(`{"season_key":"summer-25"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", rec.Code)
	}
}

func TestSellThroughRouteWired(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/seasons/sell-through?season_key=summer-25", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

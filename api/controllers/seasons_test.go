package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stocklinehq/stockline-backend/internal/reports"
	"github.com/stocklinehq/stockline-backend/internal/snapshots"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

type stubSnapshotRunner struct {
	seasonKey string
	result    *snapshots.RunResult
	err       error
}

func (s *stubSnapshotRunner) RunSeasonSnapshot(_ context.Context, seasonKey string) (*snapshots.RunResult, error) {
	s.seasonKey = seasonKey
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubReporter struct {
	seasonKey string
	report    *reports.SellThroughReport
	err       error
}

func (s *stubReporter) SellThrough(_ context.Context, seasonKey string) (*reports.SellThroughReport, error) {
	s.seasonKey = seasonKey
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func TestSeasonSnapshotRun(t *testing.T) {
	logg := testLogger()

	t.Run("success", func(t *testing.T) {
		stub := &stubSnapshotRunner{result: &snapshots.RunResult{SeasonKey: "summer-25", Created: 3}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/seasons/snapshot", strings.NewReader(`{"season_key":"summer-25"}`))
		rec := httptest.NewRecorder()
		SeasonSnapshotRun(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.seasonKey != "summer-25" {
			t.Fatalf("unexpected season key %q", stub.seasonKey)
		}

		var envelope struct {
			Data snapshots.RunResult `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if envelope.Data.Created != 3 {
			t.Fatalf("expected created=3, got %d", envelope.Data.Created)
		}
	})

	t.Run("missing season key", func(t *testing.T) {
		stub := &stubSnapshotRunner{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/seasons/snapshot", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		SeasonSnapshotRun(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if stub.seasonKey != "" {
			t.Fatal("service must not be called for an invalid body")
		}
	})

	t.Run("blank season key", func(t *testing.T) {
		stub := &stubSnapshotRunner{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/seasons/snapshot", strings.NewReader(`{"season_key":"   "}`))
		rec := httptest.NewRecorder()
		SeasonSnapshotRun(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if stub.seasonKey != "" {
			t.Fatal("service must not be called for a blank season key")
		}
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/seasons/snapshot", strings.NewReader(`{"season_key":"summer-25","bogus":true}`))
		rec := httptest.NewRecorder()
		SeasonSnapshotRun(&stubSnapshotRunner{}, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("service failure", func(t *testing.T) {
		stub := &stubSnapshotRunner{err: pkgerrors.New(pkgerrors.CodeDependency, "catalog unavailable")}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/seasons/snapshot", strings.NewReader(`{"season_key":"summer-25"}`))
		rec := httptest.NewRecorder()
		SeasonSnapshotRun(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestSeasonSellThrough(t *testing.T) {
	logg := testLogger()

	t.Run("success", func(t *testing.T) {
		stub := &stubReporter{report: &reports.SellThroughReport{SeasonKey: "summer-25"}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/seasons/sell-through?season_key=summer-25", nil)
		rec := httptest.NewRecorder()
		SeasonSellThrough(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.seasonKey != "summer-25" {
			t.Fatalf("unexpected season key %q", stub.seasonKey)
		}
	})

	t.Run("missing season key", func(t *testing.T) {
		stub := &stubReporter{}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/seasons/sell-through", nil)
		rec := httptest.NewRecorder()
		SeasonSellThrough(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if stub.seasonKey != "" {
			t.Fatal("service must not be called without a season key")
		}
	})

	t.Run("whitespace season key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/seasons/sell-through?season_key=%20%20", nil)
		rec := httptest.NewRecorder()
		SeasonSellThrough(&stubReporter{}, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("service failure", func(t *testing.T) {
		stub := &stubReporter{err: pkgerrors.New(pkgerrors.CodeInternal, "boom")}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/seasons/sell-through?season_key=summer-25", nil)
		rec := httptest.NewRecorder()
		SeasonSellThrough(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

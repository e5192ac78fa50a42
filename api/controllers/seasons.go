package controllers

import (
	"context"
	"net/http"

	"github.com/stocklinehq/stockline-backend/api/responses"
	"github.com/stocklinehq/stockline-backend/api/validators"
	"github.com/stocklinehq/stockline-backend/internal/reports"
	"github.com/stocklinehq/stockline-backend/internal/snapshots"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

// SnapshotRunner triggers a season snapshot run.
type SnapshotRunner interface {
	RunSeasonSnapshot(ctx context.Context, seasonKey string) (*snapshots.RunResult, error)
}

// SellThroughReporter computes a season's sell-through report.
type SellThroughReporter interface {
	SellThrough(ctx context.Context, seasonKey string) (*reports.SellThroughReport, error)
}

const maxSeasonKeyLen = 128

type seasonSnapshotRequest struct {
	SeasonKey string `json:"season_key" validate:"required"`
}

// SeasonSnapshotRun kicks off discovery, collection, and baseline merging for
// a season. The run is synchronous; the response carries its summary.
func SeasonSnapshotRun(svc SnapshotRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "snapshot service unavailable"))
			return
		}

		var req seasonSnapshotRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		seasonKey := validators.SanitizeString(req.SeasonKey, maxSeasonKeyLen)
		if seasonKey == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.
				New(pkgerrors.CodeValidation, "season_key must not be blank").
				WithDetails(map[string]any{"field": "season_key"}))
			return
		}

		result, err := svc.RunSeasonSnapshot(ctx, seasonKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SeasonSellThrough serves the ranked sell-through report for one season.
func SeasonSellThrough(svc SellThroughReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		seasonKey := validators.SanitizeString(r.URL.Query().Get("season_key"), maxSeasonKeyLen)
		if seasonKey == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.
				New(pkgerrors.CodeValidation, "season_key query parameter is required").
				WithDetails(map[string]any{"field": "season_key"}))
			return
		}

		report, err := svc.SellThrough(ctx, seasonKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

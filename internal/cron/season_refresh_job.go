package cron

import (
	"context"
	"fmt"

	"github.com/stocklinehq/stockline-backend/internal/snapshots"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

// seasonKeyLister yields every season with at least one snapshot row.
type seasonKeyLister interface {
	DistinctSeasonKeys(ctx context.Context) ([]string, error)
}

// snapshotRunner triggers a season snapshot run.
type snapshotRunner interface {
	RunSeasonSnapshot(ctx context.Context, seasonKey string) (*snapshots.RunResult, error)
}

// SeasonRefreshJobParams configure the season refresh job.
type SeasonRefreshJobParams struct {
	Logger    *logger.Logger
	Seasons   seasonKeyLister
	Snapshots snapshotRunner
}

// NewSeasonRefreshJob re-runs the snapshot merge for every known season.
// Safe to run on a schedule: merges never move an established baseline, they
// only pick up newly tagged variants and refresh descriptive fields.
func NewSeasonRefreshJob(params SeasonRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Seasons == nil {
		return nil, fmt.Errorf("season lister required")
	}
	if params.Snapshots == nil {
		return nil, fmt.Errorf("snapshot service required")
	}
	return &seasonRefreshJob{
		logg:      params.Logger,
		seasons:   params.Seasons,
		snapshots: params.Snapshots,
	}, nil
}

type seasonRefreshJob struct {
	logg      *logger.Logger
	seasons   seasonKeyLister
	snapshots snapshotRunner
}

func (j *seasonRefreshJob) Name() string { return "season-refresh" }

func (j *seasonRefreshJob) Run(ctx context.Context) error {
	keys, err := j.seasons.DistinctSeasonKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing season keys: %w", err)
	}
	if len(keys) == 0 {
		j.logg.Info(ctx, "no seasons to refresh")
		return nil
	}

	failures := 0
	for _, key := range keys {
		keyCtx := j.logg.WithSeasonKey(ctx, key)
		result, err := j.snapshots.RunSeasonSnapshot(keyCtx, key)
		if err != nil {
			failures++
			j.logg.Error(keyCtx, "season refresh failed", err)
			continue
		}
		logCtx := j.logg.WithFields(keyCtx, map[string]any{
			"created":   result.Created,
			"refreshed": result.Refreshed,
			"failed":    result.Failed,
		})
		j.logg.Info(logCtx, "season refreshed")
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d season refreshes failed", failures, len(keys))
	}
	return nil
}

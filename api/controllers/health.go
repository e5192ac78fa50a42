package controllers

import (
	"net/http"

	"github.com/stocklinehq/stockline-backend/api/responses"
	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	pkgredis "github.com/stocklinehq/stockline-backend/pkg/redis"
)

const envHeader = "X-Stockline-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP pkgredis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database not ready"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not ready"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stocklinehq/stockline-backend/api/controllers"
	webhookcontrollers "github.com/stocklinehq/stockline-backend/api/controllers/webhooks"
	"github.com/stocklinehq/stockline-backend/api/middleware"
	"github.com/stocklinehq/stockline-backend/internal/reports"
	"github.com/stocklinehq/stockline-backend/internal/sales"
	"github.com/stocklinehq/stockline-backend/internal/snapshots"
	"github.com/stocklinehq/stockline-backend/internal/stockledger"
	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	pkgredis "github.com/stocklinehq/stockline-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	snapshotService snapshots.Service,
	reportService reports.Service,
	salesService sales.Service,
	ledgerService stockledger.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/seasons", func(r chi.Router) {
			r.Post("/snapshot", controllers.SeasonSnapshotRun(snapshotService, logg))
			r.Get("/sell-through", controllers.SeasonSellThrough(reportService, logg))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/orders/create", webhookcontrollers.OrderCreated(salesService, logg))
			r.Post("/inventory-levels/update", webhookcontrollers.InventoryLevelUpdated(ledgerService, logg))
		})
	})

	return r
}

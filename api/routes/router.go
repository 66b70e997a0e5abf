package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkasimov/beat808-backend/api/controllers"
	admincontrollers "github.com/mkasimov/beat808-backend/api/controllers/admin"
	ordercontrollers "github.com/mkasimov/beat808-backend/api/controllers/orders"
	walletcontrollers "github.com/mkasimov/beat808-backend/api/controllers/wallet"
	withdrawalcontrollers "github.com/mkasimov/beat808-backend/api/controllers/withdrawals"
	"github.com/mkasimov/beat808-backend/api/middleware"
	"github.com/mkasimov/beat808-backend/internal/arbitration"
	internalorders "github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/internal/refunds"
	internalwallet "github.com/mkasimov/beat808-backend/internal/wallet"
	internalwithdrawals "github.com/mkasimov/beat808-backend/internal/withdrawals"
	"github.com/mkasimov/beat808-backend/pkg/config"
	"github.com/mkasimov/beat808-backend/pkg/db"
	"github.com/mkasimov/beat808-backend/pkg/logger"
	"github.com/mkasimov/beat808-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersSvc internalorders.Service,
	walletSvc internalwallet.Service,
	withdrawalsSvc internalwithdrawals.Service,
	arbitrationSvc arbitration.Service,
	refundsSvc refunds.Service,
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

	// Guest checkout: credentials are parsed when present, anonymous
	// buyers go through without them.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Post("/api/v1/checkout", ordercontrollers.Checkout(ordersSvc, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Get("/{orderID}", ordercontrollers.Detail(ordersSvc, logg))
			r.Post("/{orderID}/approve", ordercontrollers.Approve(ordersSvc, logg))
			r.Post("/{orderID}/deliver", ordercontrollers.Deliver(ordersSvc, logg))
			r.Post("/{orderID}/reject", ordercontrollers.Reject(ordersSvc, logg))
			r.Post("/{orderID}/cancel", ordercontrollers.Cancel(ordersSvc, logg))
			r.Post("/{orderID}/dispute", ordercontrollers.Dispute(ordersSvc, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", walletcontrollers.Balance(walletSvc, logg))
			r.Get("/transactions", walletcontrollers.Transactions(walletSvc, logg))
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/", withdrawalcontrollers.Request(withdrawalsSvc, logg))
			r.Get("/", withdrawalcontrollers.List(withdrawalsSvc, logg))
			r.Get("/{withdrawalID}", withdrawalcontrollers.Detail(withdrawalsSvc, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))

			r.Route("/disputes", func(r chi.Router) {
				r.Get("/", admincontrollers.ListDisputes(arbitrationSvc, logg))
				r.Get("/{disputeID}", admincontrollers.DisputeDetail(arbitrationSvc, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Post("/{orderID}/force-deliver", admincontrollers.ForceDeliverOrder(arbitrationSvc, logg))
				r.Post("/{orderID}/approve", admincontrollers.ApproveOrder(arbitrationSvc, logg))
				r.Post("/{orderID}/reject", admincontrollers.RejectOrder(arbitrationSvc, logg))
			})
			r.Route("/purchases", func(r chi.Router) {
				r.Get("/", admincontrollers.ListPurchases(refundsSvc, logg))
				r.Post("/{purchaseID}/refund", admincontrollers.RefundPurchase(refundsSvc, logg))
				r.Post("/{purchaseID}/release", admincontrollers.ReleasePurchaseHold(refundsSvc, logg))
			})
			r.Route("/withdrawals", func(r chi.Router) {
				r.Get("/", admincontrollers.ListWithdrawals(withdrawalsSvc, logg))
				r.Post("/{withdrawalID}/approve", admincontrollers.ApproveWithdrawal(withdrawalsSvc, logg))
				r.Post("/{withdrawalID}/reject", admincontrollers.RejectWithdrawal(withdrawalsSvc, logg))
			})
		})
	})

	return r
}

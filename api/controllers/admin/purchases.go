package admin

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/api/middleware"
	"github.com/mkasimov/beat808-backend/api/responses"
	"github.com/mkasimov/beat808-backend/api/validators"
	internalorders "github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/internal/refunds"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	pkgerrors "github.com/mkasimov/beat808-backend/pkg/errors"
	"github.com/mkasimov/beat808-backend/pkg/logger"
)

// ListPurchases pages through fulfilled purchases, optionally filtered
// by status.
func ListPurchases(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.PurchaseStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParsePurchaseStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		list, err := svc.List(r.Context(), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// RefundPurchase reverses a purchase: buyer refunded, seller share
// clawed back.
func RefundPurchase(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return purchaseAction(logg, func(r *http.Request, purchaseID uuid.UUID, admin internalorders.Actor) (*refunds.PurchaseView, error) {
		return svc.Refund(r.Context(), purchaseID, admin)
	})
}

// ReleasePurchaseHold settles a held purchase so the seller share
// becomes spendable.
func ReleasePurchaseHold(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return purchaseAction(logg, func(r *http.Request, purchaseID uuid.UUID, admin internalorders.Actor) (*refunds.PurchaseView, error) {
		return svc.ReleaseHold(r.Context(), purchaseID, admin)
	})
}

func purchaseAction(logg *logger.Logger, apply func(*http.Request, uuid.UUID, internalorders.Actor) (*refunds.PurchaseView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		raw := strings.TrimSpace(chi.URLParam(r, "purchaseID"))
		purchaseID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchase id"))
			return
		}

		purchase, err := apply(r, purchaseID, admin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, purchase)
	}
}

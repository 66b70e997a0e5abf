package admin

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/api/middleware"
	"github.com/mkasimov/beat808-backend/api/responses"
	"github.com/mkasimov/beat808-backend/api/validators"
	"github.com/mkasimov/beat808-backend/internal/arbitration"
	internalorders "github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	pkgerrors "github.com/mkasimov/beat808-backend/pkg/errors"
	"github.com/mkasimov/beat808-backend/pkg/logger"
)

type notesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// ListDisputes pages through arbitration cases, optionally filtered by
// status.
func ListDisputes(svc arbitration.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.DisputeStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseDisputeStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		list, err := svc.ListCases(r.Context(), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// DisputeDetail returns one arbitration case.
func DisputeDetail(svc arbitration.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(chi.URLParam(r, "disputeID"))
		disputeID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute id"))
			return
		}

		dispute, err := svc.GetCase(r.Context(), disputeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}

// ForceDeliverOrder resolves a dispute by marking the order fulfilled.
func ForceDeliverOrder(svc arbitration.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(logg, func(r *http.Request, orderID uuid.UUID, admin internalorders.Actor, notes string) (*internalorders.OrderView, error) {
		return svc.ForceDeliver(r.Context(), orderID, admin, notes)
	})
}

// ApproveOrder resolves a dispute by returning the order to the normal
// delivery flow.
func ApproveOrder(svc arbitration.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(logg, func(r *http.Request, orderID uuid.UUID, admin internalorders.Actor, notes string) (*internalorders.OrderView, error) {
		return svc.ApproveOrder(r.Context(), orderID, admin, notes)
	})
}

// RejectOrder resolves a dispute by declining the order and unwinding
// any escrow.
func RejectOrder(svc arbitration.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(logg, func(r *http.Request, orderID uuid.UUID, admin internalorders.Actor, notes string) (*internalorders.OrderView, error) {
		return svc.RejectOrder(r.Context(), orderID, admin, notes)
	})
}

func decide(logg *logger.Logger, apply func(*http.Request, uuid.UUID, internalorders.Actor, string) (*internalorders.OrderView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		raw := strings.TrimSpace(chi.URLParam(r, "orderID"))
		orderID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var req notesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := apply(r, orderID, admin, strings.TrimSpace(req.Notes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

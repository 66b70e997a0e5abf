package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/api/middleware"
	"github.com/mkasimov/beat808-backend/api/responses"
	"github.com/mkasimov/beat808-backend/api/validators"
	internalorders "github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	pkgerrors "github.com/mkasimov/beat808-backend/pkg/errors"
	"github.com/mkasimov/beat808-backend/pkg/logger"
)

type checkoutRequest struct {
	BuyerName       string  `json:"buyer_name" validate:"required,max=200"`
	BuyerEmail      string  `json:"buyer_email" validate:"required,email"`
	SellerID        string  `json:"seller_id" validate:"required,uuid"`
	SellerName      string  `json:"seller_name" validate:"required,max=200"`
	SellerContact   string  `json:"seller_contact" validate:"max=200"`
	BeatID          string  `json:"beat_id" validate:"required,uuid"`
	BeatTitle       string  `json:"beat_title" validate:"required,max=300"`
	BeatCoverRef    *string `json:"beat_cover_ref,omitempty"`
	License         string  `json:"license" validate:"required"`
	PriceCents      int64   `json:"price_cents" validate:"required,gt=0"`
	PaymentProofRef *string `json:"payment_proof_ref,omitempty"`
	TransactionID   *string `json:"transaction_id,omitempty"`
	PaymentDate     *string `json:"payment_date,omitempty"`
	CardLastFour    *string `json:"card_last_four,omitempty" validate:"omitempty,len=4"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=2000"`
}

// Checkout creates a pending order. Authentication is optional: a
// logged-in buyer is attached to the order, a guest is not.
func Checkout(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID, err := uuid.Parse(req.SellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
			return
		}
		beatID, err := uuid.Parse(req.BeatID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid beat id"))
			return
		}
		license, err := enums.ParseLicenseType(strings.TrimSpace(req.License))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid license"))
			return
		}

		input := internalorders.CheckoutInput{
			BuyerName:       req.BuyerName,
			BuyerEmail:      req.BuyerEmail,
			SellerID:        sellerID,
			SellerName:      req.SellerName,
			SellerContact:   req.SellerContact,
			BeatID:          beatID,
			BeatTitle:       req.BeatTitle,
			BeatCoverRef:    req.BeatCoverRef,
			License:         license,
			PriceCents:      req.PriceCents,
			PaymentProofRef: req.PaymentProofRef,
			TransactionID:   req.TransactionID,
			PaymentDate:     req.PaymentDate,
			CardLastFour:    req.CardLastFour,
		}
		if actor, ok := middleware.ActorFromContext(r.Context()); ok {
			buyerID := actor.ID
			input.BuyerID = &buyerID
			if actor.Name != "" {
				input.BuyerName = actor.Name
			}
		}

		order, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Detail returns one order with its full action log.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// List returns the caller's orders: purchases for buyers, sales for
// sellers.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var list *internalorders.OrderList
		switch actor.Role {
		case enums.ActorRoleSeller:
			list, err = svc.ListForSeller(r.Context(), actor.ID, params)
		default:
			list, err = svc.ListForBuyer(r.Context(), actor.ID, params)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Approve confirms payment receipt and places the seller share in escrow.
func Approve(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, false, func(r *http.Request, orderID uuid.UUID, actor internalorders.Actor, _ string) (*internalorders.OrderView, error) {
		return svc.Approve(r.Context(), orderID, actor)
	})
}

// Deliver marks the beat as sent and settles the seller share.
func Deliver(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, false, func(r *http.Request, orderID uuid.UUID, actor internalorders.Actor, _ string) (*internalorders.OrderView, error) {
		return svc.Deliver(r.Context(), orderID, actor)
	})
}

// Reject declines the order with a mandatory reason.
func Reject(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, true, func(r *http.Request, orderID uuid.UUID, actor internalorders.Actor, reason string) (*internalorders.OrderView, error) {
		return svc.Reject(r.Context(), orderID, actor, reason)
	})
}

// Cancel withdraws a pending order.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, true, func(r *http.Request, orderID uuid.UUID, actor internalorders.Actor, reason string) (*internalorders.OrderView, error) {
		return svc.Cancel(r.Context(), orderID, actor, reason)
	})
}

// Dispute escalates a rejected or cancelled order to arbitration.
func Dispute(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, true, func(r *http.Request, orderID uuid.UUID, actor internalorders.Actor, reason string) (*internalorders.OrderView, error) {
		return svc.OpenDispute(r.Context(), orderID, actor, reason)
	})
}

func transition(logg *logger.Logger, needsReason bool, apply func(*http.Request, uuid.UUID, internalorders.Actor, string) (*internalorders.OrderView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var reason string
		if needsReason {
			var req reasonRequest
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			reason = strings.TrimSpace(req.Reason)
		}

		order, err := apply(r, orderID, actor, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

package orders

import (
	pkgerrors "github.com/mkasimov/beat808-backend/pkg/errors"

	"github.com/mkasimov/beat808-backend/pkg/enums"
)

// transitionTable maps (from, to) to the actor roles allowed to drive
// that edge. Any pair absent from the table is illegal for everyone.
var transitionTable = map[enums.OrderStatus]map[enums.OrderStatus][]enums.ActorRole{
	enums.OrderStatusPending: {
		enums.OrderStatusApproved:  {enums.ActorRoleSeller},
		enums.OrderStatusDelivered: {enums.ActorRoleSeller},
		enums.OrderStatusRejected:  {enums.ActorRoleSeller},
		enums.OrderStatusCancelled: {enums.ActorRoleSeller, enums.ActorRoleSystem},
		enums.OrderStatusDisputed:  {enums.ActorRoleBuyer, enums.ActorRoleSeller},
		// admin safety valve: force delivery straight out of pending
		enums.OrderStatusAdminDelivered: {enums.ActorRoleAdmin},
	},
	enums.OrderStatusApproved: {
		enums.OrderStatusDelivered: {enums.ActorRoleSeller},
		enums.OrderStatusDisputed:  {enums.ActorRoleBuyer, enums.ActorRoleSeller},
	},
	enums.OrderStatusCancelled: {
		// buyer contests the seller's non-payment call
		enums.OrderStatusDisputed: {enums.ActorRoleBuyer},
	},
	enums.OrderStatusDisputed: {
		enums.OrderStatusApproved:       {enums.ActorRoleAdmin},
		enums.OrderStatusRejected:       {enums.ActorRoleAdmin},
		enums.OrderStatusAdminDelivered: {enums.ActorRoleAdmin},
	},
}

// CanTransition reports whether role may drive from -> to.
func CanTransition(from, to enums.OrderStatus, role enums.ActorRole) bool {
	edges, ok := transitionTable[from]
	if !ok {
		return false
	}
	roles, ok := edges[to]
	if !ok {
		return false
	}
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// InvalidTransitionError builds the coded error returned when a
// transition is refused, naming the rejected triple.
func InvalidTransitionError(from, to enums.OrderStatus, role enums.ActorRole) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed").WithDetails(map[string]string{
		"from":  from.String(),
		"to":    to.String(),
		"actor": role.String(),
	})
}

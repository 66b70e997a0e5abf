package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxUserName contextKey = "user_name"
	ctxRole     contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func UserNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserName).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// ActorFromContext assembles the authenticated actor from the claims
// seeded by Auth. ok is false when the request carries no valid identity.
func ActorFromContext(ctx context.Context) (orders.Actor, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return orders.Actor{}, false
	}
	role, err := enums.ParseActorRole(RoleFromContext(ctx))
	if err != nil {
		return orders.Actor{}, false
	}
	return orders.Actor{
		ID:   id,
		Name: UserNameFromContext(ctx),
		Role: role,
	}, true
}

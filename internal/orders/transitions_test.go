package orders

import (
	"strings"
	"testing"
	"time"

	"github.com/mkasimov/beat808-backend/pkg/enums"
	pkgerrors "github.com/mkasimov/beat808-backend/pkg/errors"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from enums.OrderStatus
		to   enums.OrderStatus
		role enums.ActorRole
		want bool
	}{
		{"seller approves pending", enums.OrderStatusPending, enums.OrderStatusApproved, enums.ActorRoleSeller, true},
		{"seller delivers pending", enums.OrderStatusPending, enums.OrderStatusDelivered, enums.ActorRoleSeller, true},
		{"seller delivers approved", enums.OrderStatusApproved, enums.OrderStatusDelivered, enums.ActorRoleSeller, true},
		{"system cancels pending", enums.OrderStatusPending, enums.OrderStatusCancelled, enums.ActorRoleSystem, true},
		{"buyer disputes cancelled", enums.OrderStatusCancelled, enums.OrderStatusDisputed, enums.ActorRoleBuyer, true},
		{"seller disputes cancelled", enums.OrderStatusCancelled, enums.OrderStatusDisputed, enums.ActorRoleSeller, false},
		{"admin resolves dispute to approved", enums.OrderStatusDisputed, enums.OrderStatusApproved, enums.ActorRoleAdmin, true},
		{"admin force-delivers dispute", enums.OrderStatusDisputed, enums.OrderStatusAdminDelivered, enums.ActorRoleAdmin, true},
		{"admin force-delivers pending", enums.OrderStatusPending, enums.OrderStatusAdminDelivered, enums.ActorRoleAdmin, true},
		{"seller cannot force-deliver", enums.OrderStatusPending, enums.OrderStatusAdminDelivered, enums.ActorRoleSeller, false},
		{"delivered is terminal", enums.OrderStatusDelivered, enums.OrderStatusDisputed, enums.ActorRoleBuyer, false},
		{"rejected is terminal", enums.OrderStatusRejected, enums.OrderStatusApproved, enums.ActorRoleAdmin, false},
		{"buyer cannot approve", enums.OrderStatusPending, enums.OrderStatusApproved, enums.ActorRoleBuyer, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to, tc.role); got != tc.want {
				t.Fatalf("CanTransition(%s, %s, %s) = %v, want %v", tc.from, tc.to, tc.role, got, tc.want)
			}
		})
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := InvalidTransitionError(enums.OrderStatusDelivered, enums.OrderStatusDisputed, enums.ActorRoleBuyer)
	coded := pkgerrors.As(err)
	if coded == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %s", coded.Code())
	}
}

func TestOrderRefFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ref := NewOrderRef(time.Now().UTC())
		parts := strings.Split(ref, "-")
		if len(parts) != 3 || parts[0] != "808" {
			t.Fatalf("unexpected ref shape %q", ref)
		}
		if len(parts[2]) != 5 {
			t.Fatalf("expected 5-char suffix, got %q", ref)
		}
		seen[ref] = true
	}
	if len(seen) < 45 {
		t.Fatalf("suffix shows poor dispersion: %d unique of 50", len(seen))
	}
}

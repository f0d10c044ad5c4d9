package loyalty

import (
	"fmt"
	"math"
	"time"

	"github.com/greenbasket/groupbuy-service/internal/model"
)

const (
	// PurchaseRate is the share of the order value granted on pickup.
	PurchaseRate = 0.005
	// PrepaidBonus is granted on top when the round required prepayment.
	PrepaidBonus = 5
	// NoShowPenalty is the fixed deduction for an unclaimed pickup.
	NoShowPenalty = -100

	// Late-cancellation penalty: base plus a share of the order value,
	// floored at the cap.
	LateCancelBasePenalty = -30
	LateCancelRate        = 0.001
	LateCancelCapPenalty  = -100

	// Positive grants expire one year out; penalties never expire.
	grantValidity = 365 * 24 * time.Hour
)

// Update is the outcome of a status change as it applies to the user
// document: a point delta with its audit reason, and lifetime counter
// deltas that feed tier recomputation.
type Update struct {
	PointDelta       int
	Reason           string
	PickupCountDelta int
	NoShowCountDelta int
	ExpiresAt        *time.Time
}

// ComputeUpdate computes the ledger entry for an order entering
// newStatus. It returns nil when the transition carries no loyalty side
// effect.
func ComputeUpdate(order *model.Order, newStatus model.OrderStatus, now time.Time) *Update {
	switch newStatus {
	case model.StatusPickedUp:
		points := int(math.Floor(float64(order.TotalPrice) * PurchaseRate))
		reason := fmt.Sprintf("purchase confirmed (order %s)", shortID(order.ID))
		if order.WasPrepaymentRequired {
			points += PrepaidBonus
			reason = "[prepaid] " + reason
		}
		expires := now.Add(grantValidity)
		return &Update{
			PointDelta:       points,
			Reason:           reason,
			PickupCountDelta: 1,
			ExpiresAt:        &expires,
		}
	case model.StatusNoShow:
		return &Update{
			PointDelta:       NoShowPenalty,
			Reason:           fmt.Sprintf("no-show penalty (order %s)", shortID(order.ID)),
			NoShowCountDelta: 1,
		}
	default:
		return nil
	}
}

// ComputeLateCancelPenalty prices a cancellation that lands after the
// round deadline. No count deltas: a late cancel is not a no-show.
func ComputeLateCancelPenalty(order *model.Order) *Update {
	delta := LateCancelBasePenalty - int(math.Floor(float64(order.TotalPrice)*LateCancelRate))
	if delta < LateCancelCapPenalty {
		delta = LateCancelCapPenalty
	}
	return &Update{
		PointDelta: delta,
		Reason:     fmt.Sprintf("late cancellation penalty (order %s)", shortID(order.ID)),
	}
}

func shortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return "..." + id[len(id)-6:]
}

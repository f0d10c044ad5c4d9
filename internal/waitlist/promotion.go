package waitlist

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/greenbasket/groupbuy-service/internal/loyalty"
	"github.com/greenbasket/groupbuy-service/internal/model"
)

// PriorityTicketCost is the point price of jumping the queue; refunded
// when a restock cycle ends without serving the ticket holder.
const PriorityTicketCost = 50

// OptionSnapshot carries the catalog fields a promoted order freezes.
// The promoter resolves it once, before the restock transaction opens.
type OptionSnapshot struct {
	ProductID            string
	ProductName          string
	RoundID              string
	RoundName            string
	VariantGroupID       string
	VariantGroupName     string
	ItemID               string
	ItemName             string
	Price                int
	DeductionAmount      int
	DeadlineDate         time.Time
	PickupDate           time.Time
	PickupDeadlineDate   *time.Time
	IsPrepaymentRequired bool
	ExpirationDate       *time.Time
}

// Refund credits an unserved priority ticket back to its holder.
type Refund struct {
	UserID string
	Update *loyalty.Update
}

// PromotionPlan is a pure description of one restock cycle: the orders
// to insert, the entries they consume, and the tickets to refund. It is
// computed from a queue reading and executed inside one transaction.
type PromotionPlan struct {
	Orders      []*model.Order
	ConsumedIDs []string
	Refunds     []Refund
	// LeftoverUnits is what remains sellable after the queue is served.
	LeftoverUnits int
}

// BuildPromotionPlan walks the queue in service order and promotes every
// entry the available units can fully cover. Entries are served whole or
// not at all; a skipped entry does not block smaller entries behind it.
// The queue slice must already be sorted (prioritized first, then ticket
// time, then join time).
func BuildPromotionPlan(queue []model.WaitlistEntry, availableUnits int, snap OptionSnapshot, now time.Time) *PromotionPlan {
	plan := &PromotionPlan{LeftoverUnits: availableUnits}
	unlimited := availableUnits == model.UnlimitedStock

	for i, e := range queue {
		served := unlimited || e.Quantity <= plan.LeftoverUnits
		if !served {
			if e.IsPrioritized {
				plan.Refunds = append(plan.Refunds, Refund{
					UserID: e.UserID,
					Update: &loyalty.Update{
						PointDelta: PriorityTicketCost,
						Reason:     fmt.Sprintf("priority ticket refunded (%s)", snap.ItemName),
					},
				})
			}
			continue
		}

		plan.Orders = append(plan.Orders, promotedOrder(e, snap, now, i))
		plan.ConsumedIDs = append(plan.ConsumedIDs, e.ID)
		if !unlimited {
			plan.LeftoverUnits -= e.Quantity
		}
	}
	return plan
}

func promotedOrder(e model.WaitlistEntry, snap OptionSnapshot, now time.Time, seq int) *model.Order {
	orderID := uuid.NewString()
	return &model.Order{
		BaseModel: model.BaseModel{
			ID:        orderID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:                e.UserID,
		OrderNumber:           fmt.Sprintf("GB-%d-%02d", now.UnixMilli(), seq),
		Status:                model.StatusReserved,
		TotalPrice:            snap.Price * e.Quantity,
		PickupDate:            snap.PickupDate,
		PickupDeadlineDate:    snap.PickupDeadlineDate,
		Notes:                 "promoted from waitlist",
		WasPrepaymentRequired: snap.IsPrepaymentRequired,
		Items: []model.OrderItem{{
			ID:                   uuid.NewString(),
			OrderID:              orderID,
			ProductID:            snap.ProductID,
			ProductName:          snap.ProductName,
			RoundID:              snap.RoundID,
			RoundName:            snap.RoundName,
			VariantGroupID:       snap.VariantGroupID,
			VariantGroupName:     snap.VariantGroupName,
			ItemID:               snap.ItemID,
			ItemName:             snap.ItemName,
			Quantity:             e.Quantity,
			UnitPrice:            snap.Price,
			StockDeductionAmount: snap.DeductionAmount,
			DeadlineDate:         snap.DeadlineDate,
			ExpirationDate:       snap.ExpirationDate,
		}},
	}
}

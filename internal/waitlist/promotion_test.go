package waitlist

import (
	"testing"
	"time"

	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() OptionSnapshot {
	return OptionSnapshot{
		ProductID:        "prod-1",
		ProductName:      "Hallabong Box",
		RoundID:          "round-1",
		RoundName:        "Week 12",
		VariantGroupID:   "group-1",
		VariantGroupName: "Size",
		ItemID:           "item-a",
		ItemName:         "3kg",
		Price:            10000,
		DeductionAmount:  1,
		DeadlineDate:     time.Now().Add(24 * time.Hour),
		PickupDate:       time.Now().Add(48 * time.Hour),
	}
}

func entry(id, userID string, qty int, prioritized bool) model.WaitlistEntry {
	e := model.WaitlistEntry{
		ID:        id,
		UserID:    userID,
		ProductID: "prod-1",
		RoundID:   "round-1",
		ItemID:    "item-a",
		Quantity:  qty,
	}
	if prioritized {
		at := time.Now().Add(-time.Hour)
		e.IsPrioritized = true
		e.PrioritizedAt = &at
	}
	return e
}

func TestBuildPromotionPlanServesQueueInOrder(t *testing.T) {
	queue := []model.WaitlistEntry{
		entry("w1", "u1", 2, false),
		entry("w2", "u2", 2, false),
		entry("w3", "u3", 2, false),
	}

	plan := BuildPromotionPlan(queue, 4, testSnapshot(), time.Now())

	require.Len(t, plan.Orders, 2)
	assert.Equal(t, []string{"w1", "w2"}, plan.ConsumedIDs)
	assert.Equal(t, "u1", plan.Orders[0].UserID)
	assert.Equal(t, "u2", plan.Orders[1].UserID)
	assert.Zero(t, plan.LeftoverUnits)
	assert.Empty(t, plan.Refunds, "unprioritized entries get no refund")
}

func TestBuildPromotionPlanSkipsTooLargeEntryButServesSmaller(t *testing.T) {
	queue := []model.WaitlistEntry{
		entry("w1", "u1", 5, false),
		entry("w2", "u2", 2, false),
	}

	plan := BuildPromotionPlan(queue, 3, testSnapshot(), time.Now())

	require.Len(t, plan.Orders, 1)
	assert.Equal(t, "u2", plan.Orders[0].UserID, "a big entry does not block a small one behind it")
	assert.Equal(t, 1, plan.LeftoverUnits)
}

func TestBuildPromotionPlanRefundsUnservedTickets(t *testing.T) {
	queue := []model.WaitlistEntry{
		entry("w1", "u1", 2, true),
		entry("w2", "u2", 4, true),
		entry("w3", "u3", 4, false),
	}

	plan := BuildPromotionPlan(queue, 2, testSnapshot(), time.Now())

	require.Len(t, plan.Orders, 1)
	assert.Equal(t, "u1", plan.Orders[0].UserID)
	require.Len(t, plan.Refunds, 1, "only the unserved ticket holder is refunded")
	assert.Equal(t, "u2", plan.Refunds[0].UserID)
	assert.Equal(t, PriorityTicketCost, plan.Refunds[0].Update.PointDelta)
}

func TestBuildPromotionPlanUnlimitedServesEveryone(t *testing.T) {
	queue := []model.WaitlistEntry{
		entry("w1", "u1", 10, false),
		entry("w2", "u2", 99, false),
	}

	plan := BuildPromotionPlan(queue, model.UnlimitedStock, testSnapshot(), time.Now())

	assert.Len(t, plan.Orders, 2)
	assert.Equal(t, model.UnlimitedStock, plan.LeftoverUnits)
}

func TestPromotedOrderFreezesSnapshot(t *testing.T) {
	queue := []model.WaitlistEntry{entry("w1", "u1", 3, false)}
	snap := testSnapshot()

	plan := BuildPromotionPlan(queue, 5, snap, time.Now())

	require.Len(t, plan.Orders, 1)
	o := plan.Orders[0]
	assert.Equal(t, model.StatusReserved, o.Status)
	assert.Equal(t, 30000, o.TotalPrice)
	assert.Equal(t, "promoted from waitlist", o.Notes)
	require.Len(t, o.Items, 1)
	assert.Equal(t, snap.ProductName, o.Items[0].ProductName)
	assert.Equal(t, o.ID, o.Items[0].OrderID)
	assert.Equal(t, 3, o.Items[0].Quantity)
}

func TestBuildPromotionPlanEmptyQueue(t *testing.T) {
	plan := BuildPromotionPlan(nil, 7, testSnapshot(), time.Now())
	assert.Empty(t, plan.Orders)
	assert.Empty(t, plan.Refunds)
	assert.Equal(t, 7, plan.LeftoverUnits)
}

package dto

// JoinInput queues a user for a sold-out option.
type JoinInput struct {
	UserID         string `json:"-"`
	ProductID      string `json:"product_id" validate:"required"`
	RoundID        string `json:"round_id" validate:"required"`
	VariantGroupID string `json:"variant_group_id" validate:"required"`
	ItemID         string `json:"item_id" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required"`
}

// PromoteInput is the admin restock request: top up one option's
// counters and promote the queue against the new stock.
type PromoteInput struct {
	ProductID      string `json:"product_id" validate:"required"`
	RoundID        string `json:"round_id" validate:"required"`
	VariantGroupID string `json:"variant_group_id" validate:"required"`
	ItemID         string `json:"item_id" validate:"required"`
	AddedQuantity  int    `json:"added_quantity" validate:"required"`
}

type PromotionResult struct {
	PromotedOrderIDs []string `json:"promoted_order_ids"`
	PromotedUsers    []string `json:"promoted_users"`
	RefundedTickets  int      `json:"refunded_tickets"`
	LeftoverUnits    int      `json:"leftover_units"`
}

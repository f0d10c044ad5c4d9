package model

import "time"

// WaitlistEntry queues demand for a sold-out option. Entries are consumed
// (deleted) on promotion to an order, or removed by explicit withdrawal.
type WaitlistEntry struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	ProductID      string     `db:"product_id" json:"product_id"`
	RoundID        string     `db:"round_id" json:"round_id"`
	VariantGroupID string     `db:"variant_group_id" json:"variant_group_id"`
	ItemID         string     `db:"item_id" json:"item_id"`
	Quantity       int        `db:"quantity" json:"quantity"`
	IsPrioritized  bool       `db:"is_prioritized" json:"is_prioritized"`
	PrioritizedAt  *time.Time `db:"prioritized_at" json:"prioritized_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

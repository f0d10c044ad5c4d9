package model

import "time"

type LoyaltyTier string

const (
	TierSprout     LoyaltyTier = "SPROUT" // default for new accounts
	TierFairy      LoyaltyTier = "FAIRY"
	TierKing       LoyaltyTier = "KING"
	TierLegend     LoyaltyTier = "LEGEND"
	TierCaution    LoyaltyTier = "CAUTION"
	TierRestricted LoyaltyTier = "RESTRICTED"
)

type User struct {
	BaseModel
	DisplayName string      `db:"display_name" json:"display_name"`
	Phone       *string     `db:"phone" json:"phone"`
	Points      int         `db:"points" json:"points"`
	LoyaltyTier LoyaltyTier `db:"loyalty_tier" json:"loyalty_tier"`
	PickupCount int         `db:"pickup_count" json:"pickup_count"`
	NoShowCount int         `db:"no_show_count" json:"no_show_count"`
}

// PointLog rows are insert-only; the ledger is never rewritten or
// truncated by this service.
type PointLog struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Amount    int        `db:"amount" json:"amount"`
	Reason    string     `db:"reason" json:"reason"`
	OrderID   *string    `db:"order_id" json:"order_id"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// UnlimitedStock marks an item-level or group-level counter that never
// runs out. A nil *int on VariantGroup.TotalPhysicalStock means the same.
const UnlimitedStock = -1

type StorageType string

const (
	StorageRoom   StorageType = "ROOM"
	StorageCold   StorageType = "COLD"
	StorageFrozen StorageType = "FROZEN"
)

type SalesRoundStatus string

const (
	RoundDraft     SalesRoundStatus = "draft"
	RoundScheduled SalesRoundStatus = "scheduled"
	RoundSelling   SalesRoundStatus = "selling"
	RoundSoldOut   SalesRoundStatus = "sold_out"
	RoundEnded     SalesRoundStatus = "ended"
)

type Product struct {
	BaseModel
	GroupName    string       `db:"group_name" json:"group_name"`
	Description  *string      `db:"description" json:"description"`
	Category     *string      `db:"category" json:"category"`
	StorageType  StorageType  `db:"storage_type" json:"storage_type"`
	IsArchived   bool         `db:"is_archived" json:"is_archived"`
	SalesHistory SalesHistory `db:"sales_history" json:"sales_history"`
}

// SalesHistory is the append-only list of rounds embedded in the product
// row as JSONB. It only carries descriptive fields; live stock is held by
// the stock counter arena.
type SalesHistory []SalesRound

func (h SalesHistory) Value() (driver.Value, error) {
	return json.Marshal(h)
}

func (h *SalesHistory) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	case nil:
		*h = nil
		return nil
	default:
		return fmt.Errorf("unsupported sales_history type %T", src)
	}
}

type SalesRound struct {
	RoundID            string           `json:"round_id"`
	RoundName          string           `json:"round_name"`
	Status             SalesRoundStatus `json:"status"`
	PublishAt          time.Time        `json:"publish_at"`
	DeadlineDate       time.Time        `json:"deadline_date"`
	PickupDate         time.Time        `json:"pickup_date"`
	PickupDeadlineDate *time.Time       `json:"pickup_deadline_date"`
	CreatedAt          time.Time        `json:"created_at"`

	// Empty means every tier may purchase.
	AllowedTiers         []LoyaltyTier  `json:"allowed_tiers,omitempty"`
	IsPrepaymentRequired bool           `json:"is_prepayment_required"`
	VariantGroups        []VariantGroup `json:"variant_groups"`
}

func (r *SalesRound) IsOpenForSale(now time.Time) bool {
	if r.Status != RoundSelling {
		return false
	}
	return !now.Before(r.PublishAt) && now.Before(r.DeadlineDate)
}

func (r *SalesRound) TierAllowed(tier LoyaltyTier) bool {
	if len(r.AllowedTiers) == 0 {
		return true
	}
	for _, t := range r.AllowedTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// VariantGroup describes a pool of physical stock shared by sibling items.
// TotalPhysicalStock here is the authored initial amount; nil or -1 means
// unlimited. The live remaining count lives in stock_counters.
type VariantGroup struct {
	ID                 string        `json:"id"`
	GroupName          string        `json:"group_name"`
	TotalPhysicalStock *int          `json:"total_physical_stock"`
	StockUnitType      string        `json:"stock_unit_type"`
	Items              []ProductItem `json:"items"`
}

func (g *VariantGroup) Unlimited() bool {
	return g.TotalPhysicalStock == nil || *g.TotalPhysicalStock == UnlimitedStock
}

func (g *VariantGroup) Item(itemID string) *ProductItem {
	for i := range g.Items {
		if g.Items[i].ID == itemID {
			return &g.Items[i]
		}
	}
	return nil
}

type ProductItem struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Price                int        `json:"price"`
	Stock                int        `json:"stock"`
	StockDeductionAmount int        `json:"stock_deduction_amount"`
	LimitQuantity        *int       `json:"limit_quantity"`
	ExpirationDate       *time.Time `json:"expiration_date"`
}

// DeductionAmount defends against catalog rows authored before the field
// existed, where it is stored as zero.
func (i *ProductItem) DeductionAmount() int {
	if i.StockDeductionAmount < 1 {
		return 1
	}
	return i.StockDeductionAmount
}

func (p *Product) Round(roundID string) *SalesRound {
	for i := range p.SalesHistory {
		if p.SalesHistory[i].RoundID == roundID {
			return &p.SalesHistory[i]
		}
	}
	return nil
}

func (r *SalesRound) VariantGroup(groupID string) *VariantGroup {
	for i := range r.VariantGroups {
		if r.VariantGroups[i].ID == groupID {
			return &r.VariantGroups[i]
		}
	}
	return nil
}

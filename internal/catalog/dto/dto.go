package dto

// RoundAvailability is the stock ledger view for one sales round: what a
// storefront needs to render option pickers and validate carts.
type RoundAvailability struct {
	ProductID string              `json:"product_id"`
	RoundID   string              `json:"round_id"`
	Groups    []GroupAvailability `json:"groups"`
}

type GroupAvailability struct {
	VariantGroupID string `json:"variant_group_id"`
	GroupName      string `json:"group_name"`

	// PoolRemaining is nil for an unlimited pool.
	PoolRemaining *int               `json:"pool_remaining"`
	Items         []ItemAvailability `json:"items"`
}

type ItemAvailability struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Price  int    `json:"price"`

	// AvailableUnits is -1 when nothing bounds the sale.
	AvailableUnits int `json:"available_units"`
}

type CreateProductInput struct {
	GroupName   string `json:"group_name" validate:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	StorageType string `json:"storage_type" validate:"omitempty,oneof=ROOM COLD FROZEN"`
}

package dto

import "github.com/greenbasket/groupbuy-service/internal/model"

// ReserveLine is one desired option of a checkout request.
type ReserveLine struct {
	ProductID      string `json:"product_id" validate:"required"`
	RoundID        string `json:"round_id" validate:"required"`
	VariantGroupID string `json:"variant_group_id" validate:"required"`
	ItemID         string `json:"item_id" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required"`
}

type ReserveInput struct {
	UserID                string        `json:"-"`
	Lines                 []ReserveLine `json:"lines" validate:"required,min=1,dive"`
	Notes                 string        `json:"notes"`
	WasPrepaymentRequired bool          `json:"was_prepayment_required"`
}

type ReserveResult struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	ReservedUnits int    `json:"reserved_units"`
}

type TransitionInput struct {
	OrderID   string            `json:"-"`
	NewStatus model.OrderStatus `json:"new_status" validate:"required"`
}

// BatchOutcome reports one order's result inside a bulk operation. A
// batch never aborts on individual failures.
type BatchOutcome struct {
	OrderID string `json:"order_id"`
	Error   string `json:"error,omitempty"`
}

type ListOrdersFilters struct {
	UserID   string
	Page     int
	PageSize int
}

package model

import "time"

type OrderStatus string

const (
	StatusReserved  OrderStatus = "RESERVED"
	StatusPrepaid   OrderStatus = "PREPAID"
	StatusPickedUp  OrderStatus = "PICKED_UP"
	StatusCanceled  OrderStatus = "CANCELED"
	StatusNoShow    OrderStatus = "NO_SHOW"
	StatusCompleted OrderStatus = "COMPLETED"
)

type Order struct {
	BaseModel
	UserID                 string      `db:"user_id" json:"user_id"`
	OrderNumber            string      `db:"order_number" json:"order_number"`
	Status                 OrderStatus `db:"status" json:"status"`
	TotalPrice             int         `db:"total_price" json:"total_price"`
	PickupDate             time.Time   `db:"pickup_date" json:"pickup_date"`
	PickupDeadlineDate     *time.Time  `db:"pickup_deadline_date" json:"pickup_deadline_date"`
	Notes                  string      `db:"notes" json:"notes"`
	IsBookmarked           bool        `db:"is_bookmarked" json:"is_bookmarked"`
	WasPrepaymentRequired  bool        `db:"was_prepayment_required" json:"was_prepayment_required"`
	PrepaidAt              *time.Time  `db:"prepaid_at" json:"prepaid_at"`
	PickedUpAt             *time.Time  `db:"picked_up_at" json:"picked_up_at"`
	CanceledAt             *time.Time  `db:"canceled_at" json:"canceled_at"`
	Items                  []OrderItem `db:"-" json:"items"`
}

// OrderItem is a frozen snapshot of the purchased option at order time.
// Later catalog edits never change historical orders.
type OrderItem struct {
	ID                   string     `db:"id" json:"id"`
	OrderID              string     `db:"order_id" json:"order_id"`
	ProductID            string     `db:"product_id" json:"product_id"`
	ProductName          string     `db:"product_name" json:"product_name"`
	RoundID              string     `db:"round_id" json:"round_id"`
	RoundName            string     `db:"round_name" json:"round_name"`
	VariantGroupID       string     `db:"variant_group_id" json:"variant_group_id"`
	VariantGroupName     string     `db:"variant_group_name" json:"variant_group_name"`
	ItemID               string     `db:"item_id" json:"item_id"`
	ItemName             string     `db:"item_name" json:"item_name"`
	Quantity             int        `db:"quantity" json:"quantity"`
	UnitPrice            int        `db:"unit_price" json:"unit_price"`
	StockDeductionAmount int        `db:"stock_deduction_amount" json:"stock_deduction_amount"`
	DeadlineDate         time.Time  `db:"deadline_date" json:"deadline_date"`
	ExpirationDate       *time.Time `db:"expiration_date" json:"expiration_date"`
}

func (o *Order) Units() int {
	total := 0
	for _, it := range o.Items {
		total += it.Quantity
	}
	return total
}

// EarliestDeadline is the reference point for late-cancellation penalties
// on multi-line orders.
func (o *Order) EarliestDeadline() time.Time {
	var earliest time.Time
	for _, it := range o.Items {
		if earliest.IsZero() || it.DeadlineDate.Before(earliest) {
			earliest = it.DeadlineDate
		}
	}
	return earliest
}

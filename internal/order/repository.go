package order

import (
	"context"

	"github.com/greenbasket/groupbuy-service/internal/loyalty"
	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/greenbasket/groupbuy-service/internal/stock"
)

type Repository interface {
	// CreateReservation inserts the order with its items and applies the
	// stock deductions in one atomic unit. The deductions carry SQL-level
	// guards; the whole unit fails if any line cannot be covered.
	CreateReservation(ctx context.Context, o *model.Order, deductions []stock.Adjustment) error

	GetByID(ctx context.Context, id string) (*model.Order, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]model.Order, int, error)

	// UpdateStatus flips the status, stamps the matching timestamp, and
	// applies the loyalty update (nil for none) atomically.
	UpdateStatus(ctx context.Context, o *model.Order, newStatus model.OrderStatus, upd *loyalty.Update) error

	// CancelWithRestore flips the order to CANCELED, restores the stock
	// counters and applies the late penalty (when present) in the same
	// transaction, so stock is never left half-restored.
	CancelWithRestore(ctx context.Context, o *model.Order, restorations []stock.Adjustment, penalty *loyalty.Update) error

	// ReservedQuantityForItem sums a user's non-canceled quantity of one
	// item in a round, for per-customer purchase caps.
	ReservedQuantityForItem(ctx context.Context, userID, productID, roundID, itemID string) (int, error)

	UpdateNotes(ctx context.Context, orderID, notes string) error
	SetBookmarked(ctx context.Context, orderID string, bookmarked bool) error
	// Delete physically removes an order; administrative purge only.
	Delete(ctx context.Context, orderID string) error
}

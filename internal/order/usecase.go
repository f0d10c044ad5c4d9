package order

import (
	"context"

	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/greenbasket/groupbuy-service/internal/order/dto"
)

type UseCase interface {
	// Reserve validates and atomically commits a checkout: all lines of
	// the request, across all touched products, or nothing.
	Reserve(ctx context.Context, input *dto.ReserveInput) (*dto.ReserveResult, error)

	// Cancel reverses a reservation on behalf of its owner, restoring
	// stock. Only RESERVED/PREPAID orders, strictly before pickupDate.
	Cancel(ctx context.Context, orderID, requestingUserID string) error

	// Transition moves an order through the status state machine,
	// applying loyalty side effects. CANCELED transitions route through
	// the restoration path (ownership not checked: admin surface).
	Transition(ctx context.Context, orderID string, newStatus model.OrderStatus) error

	// Batch variants run per-order with independent outcomes.
	BatchTransition(ctx context.Context, orderIDs []string, newStatus model.OrderStatus) []dto.BatchOutcome
	BatchCancel(ctx context.Context, orderIDs []string) []dto.BatchOutcome

	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListUserOrders(ctx context.Context, f *dto.ListOrdersFilters) ([]model.Order, int, error)
	UpdateNotes(ctx context.Context, orderID, notes string) error
	ToggleBookmark(ctx context.Context, orderID string, bookmarked bool) error
}

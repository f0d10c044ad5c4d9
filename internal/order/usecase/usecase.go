package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/catalog"
	"github.com/greenbasket/groupbuy-service/internal/events"
	"github.com/greenbasket/groupbuy-service/internal/loyalty"
	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/greenbasket/groupbuy-service/internal/order"
	"github.com/greenbasket/groupbuy-service/internal/order/dto"
	"github.com/greenbasket/groupbuy-service/internal/stock"
	"go.uber.org/zap"
)

// CounterReader is the stock arena read side used for fail-fast
// availability checks. The authoritative guard is the conditional
// decrement inside the reservation transaction.
type CounterReader interface {
	GetRemaining(ctx context.Context, productID, roundID string) (map[stock.CounterKey]*int, error)
}

// AvailabilityInvalidator drops cached ledger views after a committed
// stock mutation.
type AvailabilityInvalidator interface {
	InvalidateAvailability(ctx context.Context, productID, roundID string)
}

type orderUseCase struct {
	repo      order.Repository
	catalog   catalog.Repository
	users     loyalty.Repository
	counters  CounterReader
	views     AvailabilityInvalidator
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewOrderUseCase(
	repo order.Repository,
	catalogRepo catalog.Repository,
	users loyalty.Repository,
	counters CounterReader,
	views AvailabilityInvalidator,
	publisher events.Publisher,
	log *zap.Logger,
) order.UseCase {
	return &orderUseCase{
		repo:      repo,
		catalog:   catalogRepo,
		users:     users,
		counters:  counters,
		views:     views,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

func (uc *orderUseCase) Reserve(ctx context.Context, input *dto.ReserveInput) (*dto.ReserveResult, error) {
	now := uc.now()

	if len(input.Lines) == 0 {
		return nil, apperr.New(apperr.CodeInvalidArgument, "checkout has no lines")
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, apperr.ErrInvalidQuantity
		}
	}

	user, err := uc.users.GetUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user.LoyaltyTier == model.TierRestricted {
		return nil, apperr.New(apperr.CodeForbidden, "participation is currently restricted due to repeated no-shows")
	}

	productIDs := uniqueProductIDs(input.Lines)
	products, err := uc.catalog.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range productIDs {
		if _, ok := products[id]; !ok {
			return nil, apperr.New(apperr.CodeNotFound, "product not found (id: %s)", id)
		}
	}

	// Read the ledger view once per touched round, then track this
	// checkout's own deductions against it so a request with two lines
	// into one pool is validated as a whole.
	remaining := map[string]map[stock.CounterKey]*int{}
	pending := map[stock.CounterKey]int{}

	newOrder := &model.Order{
		BaseModel: model.BaseModel{
			ID:        uuid.NewString(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:                input.UserID,
		OrderNumber:           fmt.Sprintf("GB-%d", now.UnixMilli()),
		Status:                model.StatusReserved,
		Notes:                 input.Notes,
		WasPrepaymentRequired: input.WasPrepaymentRequired,
	}
	var deductions []stock.Adjustment

	for _, line := range input.Lines {
		product := products[line.ProductID]
		round := product.Round(line.RoundID)
		if round == nil || !round.IsOpenForSale(now) {
			return nil, apperr.New(apperr.CodeRoundNotFound, "sales round is not open (product: %s)", product.GroupName)
		}
		if !round.TierAllowed(user.LoyaltyTier) {
			return nil, apperr.New(apperr.CodeForbidden, "this round is limited to selected loyalty tiers")
		}
		group := round.VariantGroup(line.VariantGroupID)
		if group == nil {
			return nil, apperr.New(apperr.CodeOptionNotFound, "option group not found (product: %s)", product.GroupName)
		}
		item := group.Item(line.ItemID)
		if item == nil {
			return nil, apperr.New(apperr.CodeOptionNotFound, "option not found (product: %s)", product.GroupName)
		}

		groupKey := stock.GroupKey(line.ProductID, line.RoundID, group.ID)
		itemKey := stock.ItemKey(line.ProductID, line.RoundID, group.ID, item.ID)
		deduction := item.DeductionAmount()

		if item.LimitQuantity != nil {
			already, err := uc.repo.ReservedQuantityForItem(ctx, input.UserID, line.ProductID, line.RoundID, line.ItemID)
			if err != nil {
				return nil, err
			}
			// earlier lines of this checkout count against the cap too
			if already+pending[itemKey]+line.Quantity > *item.LimitQuantity {
				return nil, apperr.New(apperr.CodeInvalidQuantity,
					"purchase limit is %d per customer for %s", *item.LimitQuantity, item.Name)
			}
		}

		roundKey := line.ProductID + "/" + line.RoundID
		if _, ok := remaining[roundKey]; !ok {
			counters, err := uc.counters.GetRemaining(ctx, line.ProductID, line.RoundID)
			if err != nil {
				return nil, err
			}
			remaining[roundKey] = counters
		}

		pool := afterPending(remaining[roundKey][groupKey], pending[groupKey])
		itemLeft := afterPending(remaining[roundKey][itemKey], pending[itemKey])
		available := stock.AvailableUnits(pool, itemLeft, deduction)
		if stock.Bounded(available) && available < line.Quantity {
			return nil, apperr.New(apperr.CodeInsufficientStock,
				"sorry, %s is out of stock (remaining: %d)", product.GroupName, available)
		}

		pending[groupKey] += line.Quantity * deduction
		pending[itemKey] += line.Quantity
		deductions = append(deductions,
			stock.Reserve(groupKey, line.Quantity, deduction),
			stock.Reserve(itemKey, line.Quantity, 1),
		)

		newOrder.Items = append(newOrder.Items, model.OrderItem{
			ID:                   uuid.NewString(),
			OrderID:              newOrder.ID,
			ProductID:            product.ID,
			ProductName:          product.GroupName,
			RoundID:              round.RoundID,
			RoundName:            round.RoundName,
			VariantGroupID:       group.ID,
			VariantGroupName:     group.GroupName,
			ItemID:               item.ID,
			ItemName:             item.Name,
			Quantity:             line.Quantity,
			UnitPrice:            item.Price,
			StockDeductionAmount: deduction,
			DeadlineDate:         round.DeadlineDate,
			ExpirationDate:       item.ExpirationDate,
		})
		newOrder.TotalPrice += item.Price * line.Quantity

		// Pickup dates come from the round of the first line, the same
		// way a single-pickup storefront schedules mixed checkouts.
		if newOrder.PickupDate.IsZero() {
			newOrder.PickupDate = round.PickupDate
			newOrder.PickupDeadlineDate = round.PickupDeadlineDate
			if round.IsPrepaymentRequired {
				newOrder.WasPrepaymentRequired = true
			}
		}
	}

	if err := uc.repo.CreateReservation(ctx, newOrder, deductions); err != nil {
		return nil, err
	}

	uc.invalidateOrderViews(ctx, newOrder)
	uc.publisher.PublishStatusChanged(ctx, events.StatusChangedPayload{
		OrderID:   newOrder.ID,
		UserID:    newOrder.UserID,
		NewStatus: model.StatusReserved,
	})
	uc.logger.Info("reservation created",
		zap.String("order_id", newOrder.ID),
		zap.String("user_id", newOrder.UserID),
		zap.Int("units", newOrder.Units()),
	)

	return &dto.ReserveResult{
		OrderID:       newOrder.ID,
		OrderNumber:   newOrder.OrderNumber,
		ReservedUnits: newOrder.Units(),
	}, nil
}

func (uc *orderUseCase) Cancel(ctx context.Context, orderID, requestingUserID string) error {
	o, err := uc.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.UserID != requestingUserID {
		return apperr.New(apperr.CodeForbidden, "only the owner may cancel this order")
	}
	return uc.cancel(ctx, o, true)
}

func (uc *orderUseCase) cancel(ctx context.Context, o *model.Order, enforceWindow bool) error {
	now := uc.now()

	if o.Status != model.StatusReserved && o.Status != model.StatusPrepaid {
		return apperr.New(apperr.CodeInvalidState, "only reserved or prepaid orders can be canceled")
	}
	if enforceWindow && !now.Before(o.PickupDate) {
		return apperr.New(apperr.CodeWindowClosed, "cancellation closed at pickup start")
	}

	restorations := make([]stock.Adjustment, 0, len(o.Items)*2)
	for _, it := range o.Items {
		groupKey := stock.GroupKey(it.ProductID, it.RoundID, it.VariantGroupID)
		itemKey := stock.ItemKey(it.ProductID, it.RoundID, it.VariantGroupID, it.ItemID)
		restorations = append(restorations,
			stock.Restore(groupKey, it.Quantity, it.StockDeductionAmount),
			stock.Restore(itemKey, it.Quantity, 1),
		)
	}

	var penalty *loyalty.Update
	if now.After(o.EarliestDeadline()) {
		penalty = loyalty.ComputeLateCancelPenalty(o)
	}

	if err := uc.repo.CancelWithRestore(ctx, o, restorations, penalty); err != nil {
		return err
	}

	uc.invalidateOrderViews(ctx, o)
	uc.publisher.PublishStatusChanged(ctx, events.StatusChangedPayload{
		OrderID:   o.ID,
		UserID:    o.UserID,
		NewStatus: model.StatusCanceled,
	})
	uc.logger.Info("order canceled",
		zap.String("order_id", o.ID),
		zap.Bool("late_penalty", penalty != nil),
	)
	return nil
}

func (uc *orderUseCase) Transition(ctx context.Context, orderID string, newStatus model.OrderStatus) error {
	o, err := uc.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.CanTransition(o.Status, newStatus) {
		return apperr.New(apperr.CodeIllegalTransition,
			"cannot move order from %s to %s", o.Status, newStatus)
	}

	// Canceling through the state machine (admin surface) reuses the
	// restoration path so stock is returned atomically with the flip.
	// The pickup-window cutoff binds the customer, not the admin.
	if newStatus == model.StatusCanceled {
		return uc.cancel(ctx, o, false)
	}

	upd := loyalty.ComputeUpdate(o, newStatus, uc.now())
	if err := uc.repo.UpdateStatus(ctx, o, newStatus, upd); err != nil {
		return err
	}

	uc.publisher.PublishStatusChanged(ctx, events.StatusChangedPayload{
		OrderID:   o.ID,
		UserID:    o.UserID,
		NewStatus: newStatus,
	})
	uc.logger.Info("order status changed",
		zap.String("order_id", o.ID),
		zap.String("status", string(newStatus)),
	)
	return nil
}

func (uc *orderUseCase) BatchTransition(ctx context.Context, orderIDs []string, newStatus model.OrderStatus) []dto.BatchOutcome {
	outcomes := make([]dto.BatchOutcome, 0, len(orderIDs))
	for _, id := range orderIDs {
		outcome := dto.BatchOutcome{OrderID: id}
		if err := uc.Transition(ctx, id, newStatus); err != nil {
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (uc *orderUseCase) BatchCancel(ctx context.Context, orderIDs []string) []dto.BatchOutcome {
	return uc.BatchTransition(ctx, orderIDs, model.StatusCanceled)
}

func (uc *orderUseCase) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return uc.repo.GetByID(ctx, orderID)
}

func (uc *orderUseCase) ListUserOrders(ctx context.Context, f *dto.ListOrdersFilters) ([]model.Order, int, error) {
	return uc.repo.ListByUser(ctx, f.UserID, f.Page, f.PageSize)
}

func (uc *orderUseCase) UpdateNotes(ctx context.Context, orderID, notes string) error {
	return uc.repo.UpdateNotes(ctx, orderID, notes)
}

func (uc *orderUseCase) ToggleBookmark(ctx context.Context, orderID string, bookmarked bool) error {
	return uc.repo.SetBookmarked(ctx, orderID, bookmarked)
}

func (uc *orderUseCase) invalidateOrderViews(ctx context.Context, o *model.Order) {
	if uc.views == nil {
		return
	}
	seen := map[string]bool{}
	for _, it := range o.Items {
		key := it.ProductID + "/" + it.RoundID
		if seen[key] {
			continue
		}
		seen[key] = true
		uc.views.InvalidateAvailability(ctx, it.ProductID, it.RoundID)
	}
}

func uniqueProductIDs(lines []dto.ReserveLine) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			out = append(out, l.ProductID)
		}
	}
	return out
}

func afterPending(remaining *int, pending int) *int {
	if remaining == nil {
		return nil
	}
	v := *remaining - pending
	return &v
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/events"
	"github.com/greenbasket/groupbuy-service/internal/loyalty"
	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/greenbasket/groupbuy-service/internal/order"
	"github.com/greenbasket/groupbuy-service/internal/order/dto"
	"github.com/greenbasket/groupbuy-service/internal/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeArena is a mutex-guarded in-memory stand-in for the counter arena
// plus order store. Its CreateReservation mirrors the SQL guard: the
// whole batch applies atomically or not at all.
type fakeArena struct {
	mu       sync.Mutex
	counters map[stock.CounterKey]*int
	orders   map[string]*model.Order
	updates  []*loyalty.Update
}

func newFakeArena() *fakeArena {
	return &fakeArena{
		counters: map[stock.CounterKey]*int{},
		orders:   map[string]*model.Order{},
	}
}

func (f *fakeArena) setCounter(key stock.CounterKey, remaining *int) {
	f.counters[key] = remaining
}

func (f *fakeArena) apply(adjs []stock.Adjustment) error {
	// validate first so a failing line leaves earlier lines untouched
	for _, adj := range adjs {
		remaining, ok := f.counters[adj.Key]
		if !ok {
			return apperr.ErrOptionNotFound
		}
		if adj.Delta < 0 && remaining != nil && *remaining < -adj.Delta {
			return apperr.New(apperr.CodeInsufficientStock,
				"not enough stock (remaining: %d)", *remaining/adj.PerUnit)
		}
	}
	for _, adj := range adjs {
		if remaining := f.counters[adj.Key]; remaining != nil {
			v := *remaining + adj.Delta
			f.counters[adj.Key] = &v
		}
	}
	return nil
}

func (f *fakeArena) CreateReservation(_ context.Context, o *model.Order, deductions []stock.Adjustment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.apply(deductions); err != nil {
		return err
	}
	f.orders[o.ID] = o
	return nil
}

func (f *fakeArena) GetByID(_ context.Context, id string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "order not found (id: %s)", id)
	}
	return o, nil
}

func (f *fakeArena) ListByUser(_ context.Context, userID string, _, _ int) ([]model.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func (f *fakeArena) UpdateStatus(_ context.Context, o *model.Order, newStatus model.OrderStatus, upd *loyalty.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID].Status = newStatus
	if upd != nil {
		f.updates = append(f.updates, upd)
	}
	return nil
}

func (f *fakeArena) CancelWithRestore(_ context.Context, o *model.Order, restorations []stock.Adjustment, penalty *loyalty.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.apply(restorations); err != nil {
		return err
	}
	f.orders[o.ID].Status = model.StatusCanceled
	if penalty != nil {
		f.updates = append(f.updates, penalty)
	}
	return nil
}

func (f *fakeArena) ReservedQuantityForItem(_ context.Context, userID, productID, roundID, itemID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, o := range f.orders {
		if o.UserID != userID || o.Status == model.StatusCanceled {
			continue
		}
		for _, it := range o.Items {
			if it.ProductID == productID && it.RoundID == roundID && it.ItemID == itemID {
				total += it.Quantity
			}
		}
	}
	return total, nil
}

func (f *fakeArena) UpdateNotes(_ context.Context, orderID, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[orderID].Notes = notes
	return nil
}

func (f *fakeArena) SetBookmarked(_ context.Context, orderID string, bookmarked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[orderID].IsBookmarked = bookmarked
	return nil
}

func (f *fakeArena) Delete(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.orders, orderID)
	return nil
}

func (f *fakeArena) GetRemaining(_ context.Context, productID, roundID string) (map[stock.CounterKey]*int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[stock.CounterKey]*int{}
	for k, v := range f.counters {
		if k.ProductID == productID && k.RoundID == roundID {
			if v == nil {
				out[k] = nil
				continue
			}
			c := *v
			out[k] = &c
		}
	}
	return out, nil
}

type fakeCatalog struct {
	products map[string]*model.Product
}

func (f *fakeCatalog) FindByID(_ context.Context, id string) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) FindByIDs(_ context.Context, ids []string) (map[string]*model.Product, error) {
	out := map[string]*model.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeCatalog) Create(_ context.Context, p *model.Product) error {
	f.products[p.ID] = p
	return nil
}

func (f *fakeCatalog) AppendSalesRound(_ context.Context, productID string, round *model.SalesRound) error {
	p, ok := f.products[productID]
	if !ok {
		return apperr.ErrNotFound
	}
	p.SalesHistory = append(p.SalesHistory, *round)
	return nil
}

type fakeUsers struct {
	users map[string]*model.User
}

func (f *fakeUsers) GetUser(_ context.Context, userID string) (*model.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) ApplyUpdate(_ context.Context, userID string, _ *string, upd *loyalty.Update) (*model.User, error) {
	u := f.users[userID]
	u.Points += upd.PointDelta
	return u, nil
}

func (f *fakeUsers) ListPointHistory(context.Context, string, int) ([]model.PointLog, error) {
	return nil, nil
}

func intp(v int) *int { return &v }

const (
	productID = "prod-1"
	roundID   = "round-1"
	groupID   = "group-1"
	itemAID   = "item-a"
	itemBID   = "item-b"
	buyerID   = "user-1"
)

type fixture struct {
	arena *fakeArena
	uc    order.UseCase
	users *fakeUsers
}

// newFixture builds a selling round with a shared pool of poolSize and
// two unlimited items; item B consumes two pool units per purchase.
func newFixture(t *testing.T, poolSize int) *fixture {
	t.Helper()
	now := time.Now()

	product := &model.Product{
		BaseModel: model.BaseModel{ID: productID},
		GroupName: "Hallabong Box",
		SalesHistory: model.SalesHistory{{
			RoundID:      roundID,
			RoundName:    "Week 12",
			Status:       model.RoundSelling,
			PublishAt:    now.Add(-time.Hour),
			DeadlineDate: now.Add(24 * time.Hour),
			PickupDate:   now.Add(48 * time.Hour),
			VariantGroups: []model.VariantGroup{{
				ID:                 groupID,
				GroupName:          "Size",
				TotalPhysicalStock: intp(poolSize),
				Items: []model.ProductItem{
					{ID: itemAID, Name: "3kg", Price: 10000, Stock: model.UnlimitedStock, StockDeductionAmount: 1},
					{ID: itemBID, Name: "6kg", Price: 18000, Stock: model.UnlimitedStock, StockDeductionAmount: 2},
				},
			}},
		}},
	}

	arena := newFakeArena()
	arena.setCounter(stock.GroupKey(productID, roundID, groupID), intp(poolSize))
	arena.setCounter(stock.ItemKey(productID, roundID, groupID, itemAID), nil)
	arena.setCounter(stock.ItemKey(productID, roundID, groupID, itemBID), nil)

	users := &fakeUsers{users: map[string]*model.User{
		buyerID: {BaseModel: model.BaseModel{ID: buyerID}, LoyaltyTier: model.TierSprout},
	}}
	catalog := &fakeCatalog{products: map[string]*model.Product{productID: product}}

	uc := NewOrderUseCase(arena, catalog, users, arena, nil, events.NopPublisher{}, zap.NewNop())
	return &fixture{arena: arena, uc: uc, users: users}
}

func reserveLine(itemID string, qty int) dto.ReserveLine {
	return dto.ReserveLine{
		ProductID:      productID,
		RoundID:        roundID,
		VariantGroupID: groupID,
		ItemID:         itemID,
		Quantity:       qty,
	}
}

func (fx *fixture) poolRemaining(t *testing.T) int {
	t.Helper()
	v := fx.arena.counters[stock.GroupKey(productID, roundID, groupID)]
	require.NotNil(t, v)
	return *v
}

func TestReserveHappyPath(t *testing.T) {
	fx := newFixture(t, 10)

	result, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 2)},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderID)
	assert.Equal(t, 2, result.ReservedUnits)
	assert.Equal(t, 8, fx.poolRemaining(t))

	o, err := fx.uc.GetOrder(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReserved, o.Status)
	assert.Equal(t, 20000, o.TotalPrice)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Hallabong Box", o.Items[0].ProductName, "snapshot freezes the product name")
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	fx := newFixture(t, 10)

	_, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 0)},
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)
	assert.Equal(t, 10, fx.poolRemaining(t), "nothing may be deducted")
}

func TestReserveDeductionAmountDrainsPool(t *testing.T) {
	fx := newFixture(t, 10)

	// item B consumes 2 pool units per purchase
	_, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemBID, 4)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, fx.poolRemaining(t))
}

func TestReserveInsufficientStockCarriesRemaining(t *testing.T) {
	fx := newFixture(t, 3)

	_, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemBID, 2)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "remaining: 1", "4 pool units needed, 3 left, deduction 2")
	assert.Equal(t, 3, fx.poolRemaining(t))
}

func TestReserveAllOrNothingAcrossLines(t *testing.T) {
	fx := newFixture(t, 3)

	// first line alone fits, the second overshoots the shared pool
	_, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines: []dto.ReserveLine{
			reserveLine(itemAID, 2),
			reserveLine(itemBID, 1),
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 3, fx.poolRemaining(t), "failed checkout must leave no partial deduction")
	assert.Empty(t, fx.arena.orders)
}

func TestReservePurchaseLimitCountsLinesOfOneCheckout(t *testing.T) {
	fx := newFixture(t, 10)
	fx.arenaRound(t).VariantGroups[0].Items[0].LimitQuantity = intp(3)

	// 2+2 of the same item in one request overshoots a limit of 3
	_, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines: []dto.ReserveLine{
			reserveLine(itemAID, 2),
			reserveLine(itemAID, 2),
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidQuantity, apperr.CodeOf(err))
	assert.Equal(t, 10, fx.poolRemaining(t))
	assert.Empty(t, fx.arena.orders)
}

func TestReservePurchaseLimitCountsEarlierOrders(t *testing.T) {
	fx := newFixture(t, 10)
	fx.arenaRound(t).VariantGroups[0].Items[0].LimitQuantity = intp(3)

	_, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 2)},
	})
	require.NoError(t, err)

	_, err = fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 2)},
	})
	assert.Equal(t, apperr.CodeInvalidQuantity, apperr.CodeOf(err))

	// the remaining allowance still goes through
	_, err = fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 1)},
	})
	assert.NoError(t, err)
}

func TestReserveBlocksRestrictedTier(t *testing.T) {
	fx := newFixture(t, 10)
	fx.users.users[buyerID].LoyaltyTier = model.TierRestricted

	_, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 1)},
	})
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestReserveRejectsUnknownOption(t *testing.T) {
	fx := newFixture(t, 10)

	_, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine("item-missing", 1)},
	})
	assert.Equal(t, apperr.CodeOptionNotFound, apperr.CodeOf(err))
}

func TestReserveRejectsClosedRound(t *testing.T) {
	fx := newFixture(t, 10)
	fx.arenaRound(t).Status = model.RoundEnded

	_, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 1)},
	})
	assert.Equal(t, apperr.CodeRoundNotFound, apperr.CodeOf(err))
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	fx := newFixture(t, 5)

	const buyers = 2
	errs := make(chan error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
				UserID: buyerID,
				Lines:  []dto.ReserveLine{reserveLine(itemAID, 3)},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, failed := 0, 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, errors.Is(err, apperr.ErrInsufficientStock), "unexpected error: %v", err)
			failed++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one buyer wins a pool of 5 when both want 3")
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, fx.poolRemaining(t))
}

func TestCancelRestoresStock(t *testing.T) {
	fx := newFixture(t, 10)

	result, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemBID, 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, fx.poolRemaining(t))

	require.NoError(t, fx.uc.Cancel(context.Background(), result.OrderID, buyerID))
	assert.Equal(t, 10, fx.poolRemaining(t))

	o, err := fx.uc.GetOrder(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, o.Status)
	assert.Empty(t, fx.arena.updates, "an on-time cancel carries no penalty")
}

func TestCancelRejectsNonOwner(t *testing.T) {
	fx := newFixture(t, 10)
	result, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 1)},
	})
	require.NoError(t, err)

	err = fx.uc.Cancel(context.Background(), result.OrderID, "someone-else")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestCancelAfterPickupStartIsWindowClosed(t *testing.T) {
	fx := newFixture(t, 10)
	result, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 1)},
	})
	require.NoError(t, err)

	fx.arena.orders[result.OrderID].PickupDate = time.Now().Add(-time.Minute)

	err = fx.uc.Cancel(context.Background(), result.OrderID, buyerID)
	assert.Equal(t, apperr.CodeWindowClosed, apperr.CodeOf(err))
	assert.Equal(t, 9, fx.poolRemaining(t), "stock stays deducted")
}

func TestCancelAfterDeadlineAppliesLatePenalty(t *testing.T) {
	fx := newFixture(t, 10)
	result, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 2)},
	})
	require.NoError(t, err)

	// deadline passed, pickup window still open
	o := fx.arena.orders[result.OrderID]
	o.Items[0].DeadlineDate = time.Now().Add(-time.Hour)

	require.NoError(t, fx.uc.Cancel(context.Background(), result.OrderID, buyerID))
	require.Len(t, fx.arena.updates, 1)
	assert.Equal(t, -50, fx.arena.updates[0].PointDelta)
	assert.Equal(t, 10, fx.poolRemaining(t), "late cancel still restores stock")
}

func TestCancelTerminalOrderIsInvalidState(t *testing.T) {
	fx := newFixture(t, 10)
	result, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 1)},
	})
	require.NoError(t, err)
	require.NoError(t, fx.uc.Transition(context.Background(), result.OrderID, model.StatusPickedUp))

	err = fx.uc.Cancel(context.Background(), result.OrderID, buyerID)
	assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))
}

func TestTransitionPickedUpAwardsPoints(t *testing.T) {
	fx := newFixture(t, 10)
	result, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 2)},
	})
	require.NoError(t, err)

	require.NoError(t, fx.uc.Transition(context.Background(), result.OrderID, model.StatusPickedUp))
	require.Len(t, fx.arena.updates, 1)
	// 0.5% of the 20,000 total
	assert.Equal(t, 100, fx.arena.updates[0].PointDelta)
	assert.Equal(t, 1, fx.arena.updates[0].PickupCountDelta)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	fx := newFixture(t, 10)
	result, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 1)},
	})
	require.NoError(t, err)
	require.NoError(t, fx.uc.Transition(context.Background(), result.OrderID, model.StatusPickedUp))

	err = fx.uc.Transition(context.Background(), result.OrderID, model.StatusNoShow)
	assert.Equal(t, apperr.CodeIllegalTransition, apperr.CodeOf(err))
}

func TestTransitionCanceledRestoresStockWithoutOwnershipCheck(t *testing.T) {
	fx := newFixture(t, 10)
	result, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 3)},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, fx.poolRemaining(t))

	require.NoError(t, fx.uc.Transition(context.Background(), result.OrderID, model.StatusCanceled))
	assert.Equal(t, 10, fx.poolRemaining(t))
}

func TestBatchTransitionReportsIndependentOutcomes(t *testing.T) {
	fx := newFixture(t, 10)
	result, err := fx.uc.Reserve(context.Background(), &dto.ReserveInput{
		UserID: buyerID,
		Lines:  []dto.ReserveLine{reserveLine(itemAID, 1)},
	})
	require.NoError(t, err)

	outcomes := fx.uc.BatchTransition(context.Background(),
		[]string{result.OrderID, "missing-order"}, model.StatusPickedUp)
	require.Len(t, outcomes, 2)
	assert.Empty(t, outcomes[0].Error)
	assert.NotEmpty(t, outcomes[1].Error)

	o, err := fx.uc.GetOrder(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPickedUp, o.Status, "one failure never rolls back the rest")
}

func (fx *fixture) arenaRound(t *testing.T) *model.SalesRound {
	t.Helper()
	uc := fx.uc.(*orderUseCase)
	p, err := uc.catalog.FindByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Round(roundID)
}

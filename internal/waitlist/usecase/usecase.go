package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/catalog"
	"github.com/greenbasket/groupbuy-service/internal/events"
	"github.com/greenbasket/groupbuy-service/internal/loyalty"
	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/greenbasket/groupbuy-service/internal/waitlist"
	"github.com/greenbasket/groupbuy-service/internal/waitlist/dto"
	"go.uber.org/zap"
)

type AvailabilityInvalidator interface {
	InvalidateAvailability(ctx context.Context, productID, roundID string)
}

type waitlistUseCase struct {
	repo      waitlist.Repository
	catalog   catalog.Repository
	users     loyalty.Repository
	views     AvailabilityInvalidator
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewWaitlistUseCase(
	repo waitlist.Repository,
	catalogRepo catalog.Repository,
	users loyalty.Repository,
	views AvailabilityInvalidator,
	publisher events.Publisher,
	log *zap.Logger,
) waitlist.UseCase {
	return &waitlistUseCase{
		repo:      repo,
		catalog:   catalogRepo,
		users:     users,
		views:     views,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

func (uc *waitlistUseCase) Join(ctx context.Context, input *dto.JoinInput) (*model.WaitlistEntry, error) {
	if input.Quantity <= 0 {
		return nil, apperr.ErrInvalidQuantity
	}

	if _, _, _, err := uc.resolveOption(ctx, input.ProductID, input.RoundID, input.VariantGroupID, input.ItemID); err != nil {
		return nil, err
	}

	existing, err := uc.repo.FindForUserOption(ctx, input.UserID, input.ProductID, input.RoundID, input.ItemID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.New(apperr.CodeInvalidState, "you are already on the waitlist for this option")
	}

	entry := &model.WaitlistEntry{
		ID:             uuid.NewString(),
		UserID:         input.UserID,
		ProductID:      input.ProductID,
		RoundID:        input.RoundID,
		VariantGroupID: input.VariantGroupID,
		ItemID:         input.ItemID,
		Quantity:       input.Quantity,
		CreatedAt:      uc.now(),
	}
	if err := uc.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	uc.logger.Info("waitlist joined",
		zap.String("entry_id", entry.ID),
		zap.String("user_id", entry.UserID),
		zap.String("item_id", entry.ItemID),
	)
	return entry, nil
}

func (uc *waitlistUseCase) Withdraw(ctx context.Context, entryID, userID string) error {
	entry, err := uc.repo.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return apperr.New(apperr.CodeForbidden, "only the owner may withdraw this entry")
	}
	return uc.repo.Delete(ctx, entryID)
}

func (uc *waitlistUseCase) ListForUser(ctx context.Context, userID string) ([]model.WaitlistEntry, error) {
	return uc.repo.ListForUser(ctx, userID)
}

func (uc *waitlistUseCase) UsePriorityTicket(ctx context.Context, entryID, userID string) error {
	entry, err := uc.repo.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return apperr.New(apperr.CodeForbidden, "only the owner may prioritize this entry")
	}
	if entry.IsPrioritized {
		return apperr.New(apperr.CodeInvalidState, "entry is already prioritized")
	}

	user, err := uc.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Points < waitlist.PriorityTicketCost {
		return apperr.New(apperr.CodeInvalidState,
			"a priority ticket costs %d points (you have %d)", waitlist.PriorityTicketCost, user.Points)
	}

	ticket := &loyalty.Update{
		PointDelta: -waitlist.PriorityTicketCost,
		Reason:     "priority ticket used",
	}
	if err := uc.repo.Prioritize(ctx, entry, uc.now(), ticket); err != nil {
		return err
	}

	uc.logger.Info("priority ticket used",
		zap.String("entry_id", entryID),
		zap.String("user_id", userID),
	)
	return nil
}

func (uc *waitlistUseCase) PromoteForRestock(ctx context.Context, input *dto.PromoteInput) (*dto.PromotionResult, error) {
	if input.AddedQuantity <= 0 {
		return nil, apperr.ErrInvalidQuantity
	}

	product, round, snap, err := uc.resolveOption(ctx, input.ProductID, input.RoundID, input.VariantGroupID, input.ItemID)
	if err != nil {
		return nil, err
	}

	plan, err := uc.repo.PromoteForRestock(ctx, *snap, input.AddedQuantity)
	if err != nil {
		return nil, err
	}

	uc.views.InvalidateAvailability(ctx, product.ID, round.RoundID)

	result := &dto.PromotionResult{
		PromotedOrderIDs: make([]string, 0, len(plan.Orders)),
		PromotedUsers:    make([]string, 0, len(plan.Orders)),
		RefundedTickets:  len(plan.Refunds),
		LeftoverUnits:    plan.LeftoverUnits,
	}
	for _, o := range plan.Orders {
		result.PromotedOrderIDs = append(result.PromotedOrderIDs, o.ID)
		result.PromotedUsers = append(result.PromotedUsers, o.UserID)
		uc.publisher.PublishStatusChanged(ctx, events.StatusChangedPayload{
			OrderID:   o.ID,
			UserID:    o.UserID,
			NewStatus: model.StatusReserved,
		})
	}

	uc.logger.Info("restock promotion completed",
		zap.String("product_id", product.ID),
		zap.String("item_id", snap.ItemID),
		zap.Int("added", input.AddedQuantity),
		zap.Int("promoted", len(plan.Orders)),
		zap.Int("refunded_tickets", len(plan.Refunds)),
	)
	return result, nil
}

// resolveOption resolves the catalog path of a waitlisted option. A
// product or round that disappeared is NotFound; a missing variant group
// or item is OptionGone, so promotion leaves the entry queued.
func (uc *waitlistUseCase) resolveOption(ctx context.Context, productID, roundID, groupID, itemID string) (*model.Product, *model.SalesRound, *waitlist.OptionSnapshot, error) {
	product, err := uc.catalog.FindByID(ctx, productID)
	if err != nil {
		return nil, nil, nil, err
	}
	round := product.Round(roundID)
	if round == nil {
		return nil, nil, nil, apperr.New(apperr.CodeRoundNotFound, "sales round not found (product: %s)", product.GroupName)
	}
	group := round.VariantGroup(groupID)
	if group == nil {
		return nil, nil, nil, apperr.New(apperr.CodeOptionGone,
			"option group no longer exists (product: %s)", product.GroupName)
	}
	item := group.Item(itemID)
	if item == nil {
		return nil, nil, nil, apperr.New(apperr.CodeOptionGone,
			"option no longer exists (product: %s)", product.GroupName)
	}

	snap := &waitlist.OptionSnapshot{
		ProductID:            product.ID,
		ProductName:          product.GroupName,
		RoundID:              round.RoundID,
		RoundName:            round.RoundName,
		VariantGroupID:       group.ID,
		VariantGroupName:     group.GroupName,
		ItemID:               item.ID,
		ItemName:             item.Name,
		Price:                item.Price,
		DeductionAmount:      item.DeductionAmount(),
		DeadlineDate:         round.DeadlineDate,
		PickupDate:           round.PickupDate,
		PickupDeadlineDate:   round.PickupDeadlineDate,
		IsPrepaymentRequired: round.IsPrepaymentRequired,
		ExpirationDate:       item.ExpirationDate,
	}
	return product, round, snap, nil
}

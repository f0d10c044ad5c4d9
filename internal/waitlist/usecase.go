package waitlist

import (
	"context"

	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/greenbasket/groupbuy-service/internal/waitlist/dto"
)

type UseCase interface {
	// Join queues the user for an option. One entry per user per
	// option; quantity must be positive.
	Join(ctx context.Context, input *dto.JoinInput) (*model.WaitlistEntry, error)

	// Withdraw removes the caller's own entry.
	Withdraw(ctx context.Context, entryID, userID string) error

	ListForUser(ctx context.Context, userID string) ([]model.WaitlistEntry, error)

	// UsePriorityTicket spends points to move the entry ahead of the
	// unprioritized queue.
	UsePriorityTicket(ctx context.Context, entryID, userID string) error

	// PromoteForRestock tops up one option's stock and promotes queued
	// entries into reserved orders, oldest tickets first.
	PromoteForRestock(ctx context.Context, input *dto.PromoteInput) (*dto.PromotionResult, error)
}

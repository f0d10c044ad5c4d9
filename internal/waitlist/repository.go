package waitlist

import (
	"context"
	"time"

	"github.com/greenbasket/groupbuy-service/internal/loyalty"
	"github.com/greenbasket/groupbuy-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, e *model.WaitlistEntry) error
	GetByID(ctx context.Context, id string) (*model.WaitlistEntry, error)
	// FindForUserOption finds the user's existing entry for an option,
	// nil when absent.
	FindForUserOption(ctx context.Context, userID, productID, roundID, itemID string) (*model.WaitlistEntry, error)
	ListForUser(ctx context.Context, userID string) ([]model.WaitlistEntry, error)
	Delete(ctx context.Context, id string) error

	// Prioritize marks the entry and charges the ticket points in one
	// transaction.
	Prioritize(ctx context.Context, e *model.WaitlistEntry, at time.Time, ticket *loyalty.Update) error

	// PromoteForRestock runs one restock cycle in a single transaction:
	// top up the option's counters by addedQuantity, lock and read the
	// queue in service order, promote what the plan covers, delete the
	// consumed entries and refund unserved tickets.
	PromoteForRestock(ctx context.Context, snap OptionSnapshot, addedQuantity int) (*PromotionPlan, error)
}

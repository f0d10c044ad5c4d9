package loyalty

import (
	"context"

	"github.com/greenbasket/groupbuy-service/internal/model"
)

type Repository interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	// ApplyUpdate atomically applies a ledger update to the user row,
	// recomputes the tier from the new lifetime counters, and appends
	// the point log entry.
	ApplyUpdate(ctx context.Context, userID string, orderID *string, upd *Update) (*model.User, error)
	ListPointHistory(ctx context.Context, userID string, limit int) ([]model.PointLog, error)
}

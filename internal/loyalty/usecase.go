package loyalty

import (
	"context"

	"github.com/greenbasket/groupbuy-service/internal/model"
)

type UseCase interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	// AdjustPoints applies a manual (admin) point grant or deduction.
	// The tier is untouched: it derives from pickup reliability, not
	// from the points balance.
	AdjustPoints(ctx context.Context, userID string, amount int, reason string) (*model.User, error)
	GetPointHistory(ctx context.Context, userID string, limit int) ([]model.PointLog, error)
}

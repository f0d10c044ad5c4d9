package usecase

import (
	"context"
	"time"

	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/loyalty"
	"github.com/greenbasket/groupbuy-service/internal/model"
	"go.uber.org/zap"
)

type loyaltyUseCase struct {
	repo   loyalty.Repository
	logger *zap.Logger
}

func NewLoyaltyUseCase(repo loyalty.Repository, log *zap.Logger) loyalty.UseCase {
	return &loyaltyUseCase{repo: repo, logger: log}
}

func (uc *loyaltyUseCase) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return uc.repo.GetUser(ctx, userID)
}

func (uc *loyaltyUseCase) AdjustPoints(ctx context.Context, userID string, amount int, reason string) (*model.User, error) {
	if amount == 0 {
		return nil, apperr.New(apperr.CodeInvalidArgument, "adjustment amount cannot be zero")
	}
	if reason == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "adjustment reason is required")
	}

	upd := &loyalty.Update{
		PointDelta: amount,
		Reason:     "(manual) " + reason,
	}
	if amount > 0 {
		expires := time.Now().AddDate(1, 0, 0)
		upd.ExpiresAt = &expires
	}

	user, err := uc.repo.ApplyUpdate(ctx, userID, nil, upd)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("points adjusted manually",
		zap.String("user_id", userID),
		zap.Int("amount", amount),
		zap.String("reason", reason),
	)
	return user, nil
}

func (uc *loyaltyUseCase) GetPointHistory(ctx context.Context, userID string, limit int) ([]model.PointLog, error) {
	return uc.repo.ListPointHistory(ctx, userID, limit)
}

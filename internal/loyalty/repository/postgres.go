package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/loyalty"
	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/greenbasket/groupbuy-service/internal/txn"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB  *sqlx.DB
	Txm *txn.Manager
}

func NewPGRepository(db *sqlx.DB, txm *txn.Manager) *PGRepository {
	return &PGRepository{DB: db, Txm: txm}
}

func (r *PGRepository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	err := r.DB.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *PGRepository) ApplyUpdate(ctx context.Context, userID string, orderID *string, upd *loyalty.Update) (*model.User, error) {
	var user *model.User
	err := r.Txm.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		user, err = ApplyUpdateTx(ctx, tx, userID, orderID, upd)
		return err
	})
	return user, err
}

// ApplyUpdateTx applies a ledger update inside the caller's transaction.
// The order engines call this so the point mutation commits atomically
// with the status flip that caused it.
func ApplyUpdateTx(ctx context.Context, tx *sqlx.Tx, userID string, orderID *string, upd *loyalty.Update) (*model.User, error) {
	var user model.User
	err := tx.GetContext(ctx, &user, `
		UPDATE users
		SET points = points + $2,
		    pickup_count = pickup_count + $3,
		    no_show_count = no_show_count + $4,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING *`,
		userID, upd.PointDelta, upd.PickupCountDelta, upd.NoShowCountDelta,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	tier := loyalty.CalculateTier(user.PickupCount, user.NoShowCount)
	if tier != user.LoyaltyTier {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET loyalty_tier = $2 WHERE id = $1`, userID, tier); err != nil {
			return nil, err
		}
		user.LoyaltyTier = tier
	}

	log := model.PointLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    upd.PointDelta,
		Reason:    upd.Reason,
		OrderID:   orderID,
		ExpiresAt: upd.ExpiresAt,
		CreatedAt: time.Now(),
	}
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO point_logs (id, user_id, amount, reason, order_id, expires_at, created_at)
		VALUES (:id, :user_id, :amount, :reason, :order_id, :expires_at, :created_at)`, &log,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PGRepository) ListPointHistory(ctx context.Context, userID string, limit int) ([]model.PointLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []model.PointLog
	err := r.DB.SelectContext(ctx, &logs, `
		SELECT * FROM point_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	return logs, err
}

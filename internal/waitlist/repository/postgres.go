package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/loyalty"
	loyaltyrepo "github.com/greenbasket/groupbuy-service/internal/loyalty/repository"
	"github.com/greenbasket/groupbuy-service/internal/model"
	orderrepo "github.com/greenbasket/groupbuy-service/internal/order/repository"
	"github.com/greenbasket/groupbuy-service/internal/stock"
	"github.com/greenbasket/groupbuy-service/internal/txn"
	"github.com/greenbasket/groupbuy-service/internal/waitlist"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB  *sqlx.DB
	Txm *txn.Manager
}

func NewPGRepository(db *sqlx.DB, txm *txn.Manager) *PGRepository {
	return &PGRepository{DB: db, Txm: txm}
}

func (r *PGRepository) Create(ctx context.Context, e *model.WaitlistEntry) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO waitlist_entries (
			id, user_id, product_id, round_id, variant_group_id, item_id,
			quantity, is_prioritized, prioritized_at, created_at
		) VALUES (
			:id, :user_id, :product_id, :round_id, :variant_group_id, :item_id,
			:quantity, :is_prioritized, :prioritized_at, :created_at
		)`, e)
	return err
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	err := r.DB.GetContext(ctx, &e, `SELECT * FROM waitlist_entries WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "waitlist entry not found (id: %s)", id)
		}
		return nil, err
	}
	return &e, nil
}

func (r *PGRepository) FindForUserOption(ctx context.Context, userID, productID, roundID, itemID string) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	err := r.DB.GetContext(ctx, &e, `
		SELECT * FROM waitlist_entries
		WHERE user_id = $1 AND product_id = $2 AND round_id = $3 AND item_id = $4`,
		userID, productID, roundID, itemID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *PGRepository) ListForUser(ctx context.Context, userID string) ([]model.WaitlistEntry, error) {
	var entries []model.WaitlistEntry
	err := r.DB.SelectContext(ctx, &entries, `
		SELECT * FROM waitlist_entries
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	return entries, err
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.CodeNotFound, "waitlist entry not found (id: %s)", id)
	}
	return nil
}

func (r *PGRepository) Prioritize(ctx context.Context, e *model.WaitlistEntry, at time.Time, ticket *loyalty.Update) error {
	return r.Txm.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE waitlist_entries
			SET is_prioritized = TRUE, prioritized_at = $2
			WHERE id = $1 AND is_prioritized = FALSE`,
			e.ID, at,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.New(apperr.CodeInvalidState, "entry is already prioritized")
		}
		_, err = loyaltyrepo.ApplyUpdateTx(ctx, tx, e.UserID, nil, ticket)
		return err
	})
}

// serviceOrderQuery locks the option's queue in the order promotions are
// served: ticket holders first (oldest ticket wins), then join time.
const serviceOrderQuery = `
	SELECT * FROM waitlist_entries
	WHERE product_id = $1 AND round_id = $2 AND variant_group_id = $3 AND item_id = $4
	ORDER BY is_prioritized DESC, prioritized_at ASC NULLS LAST, created_at ASC
	FOR UPDATE`

func (r *PGRepository) PromoteForRestock(ctx context.Context, snap waitlist.OptionSnapshot, addedQuantity int) (*waitlist.PromotionPlan, error) {
	groupKey := stock.GroupKey(snap.ProductID, snap.RoundID, snap.VariantGroupID)
	itemKey := stock.ItemKey(snap.ProductID, snap.RoundID, snap.VariantGroupID, snap.ItemID)

	var plan *waitlist.PromotionPlan
	err := r.Txm.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := stock.ApplyTx(ctx, tx, []stock.Adjustment{
			stock.Restore(groupKey, addedQuantity, snap.DeductionAmount),
			stock.Restore(itemKey, addedQuantity, 1),
		}); err != nil {
			return err
		}

		pool, err := lockRemaining(ctx, tx, groupKey)
		if err != nil {
			return err
		}
		itemLeft, err := lockRemaining(ctx, tx, itemKey)
		if err != nil {
			return err
		}
		available := stock.AvailableUnits(pool, itemLeft, snap.DeductionAmount)

		var queue []model.WaitlistEntry
		if err := tx.SelectContext(ctx, &queue, serviceOrderQuery,
			snap.ProductID, snap.RoundID, snap.VariantGroupID, snap.ItemID,
		); err != nil {
			return err
		}

		plan = waitlist.BuildPromotionPlan(queue, available, snap, time.Now())

		for _, o := range plan.Orders {
			if err := stock.ApplyTx(ctx, tx, []stock.Adjustment{
				stock.Reserve(groupKey, o.Units(), snap.DeductionAmount),
				stock.Reserve(itemKey, o.Units(), 1),
			}); err != nil {
				return err
			}
			if err := orderrepo.InsertOrderTx(ctx, tx, o); err != nil {
				return err
			}
		}

		if len(plan.ConsumedIDs) > 0 {
			query, args, err := sqlx.In(`DELETE FROM waitlist_entries WHERE id IN (?)`, plan.ConsumedIDs)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
				return err
			}
		}

		for _, refund := range plan.Refunds {
			if _, err := loyaltyrepo.ApplyUpdateTx(ctx, tx, refund.UserID, nil, refund.Update); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func lockRemaining(ctx context.Context, tx *sqlx.Tx, key stock.CounterKey) (*int, error) {
	var remaining sql.NullInt64
	err := tx.GetContext(ctx, &remaining, `
		SELECT remaining FROM stock_counters
		WHERE product_id = $1 AND round_id = $2 AND variant_group_id = $3 AND item_id = $4
		FOR UPDATE`,
		key.ProductID, key.RoundID, key.VariantGroupID, key.ItemID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrOptionGone
		}
		return nil, err
	}
	if !remaining.Valid {
		return nil, nil
	}
	v := int(remaining.Int64)
	return &v, nil
}

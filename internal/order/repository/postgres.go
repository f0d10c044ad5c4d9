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
	"github.com/greenbasket/groupbuy-service/internal/stock"
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

const insertOrderQuery = `
	INSERT INTO orders (
		id, user_id, order_number, status, total_price,
		pickup_date, pickup_deadline_date, notes, is_bookmarked,
		was_prepayment_required, created_at, updated_at
	) VALUES (
		:id, :user_id, :order_number, :status, :total_price,
		:pickup_date, :pickup_deadline_date, :notes, :is_bookmarked,
		:was_prepayment_required, :created_at, :updated_at
	)`

const insertOrderItemQuery = `
	INSERT INTO order_items (
		id, order_id, product_id, product_name, round_id, round_name,
		variant_group_id, variant_group_name, item_id, item_name,
		quantity, unit_price, stock_deduction_amount,
		deadline_date, expiration_date
	) VALUES (
		:id, :order_id, :product_id, :product_name, :round_id, :round_name,
		:variant_group_id, :variant_group_name, :item_id, :item_name,
		:quantity, :unit_price, :stock_deduction_amount,
		:deadline_date, :expiration_date
	)`

// InsertOrderTx writes the order and its item snapshots inside the
// caller's transaction. The waitlist promoter calls this so a promoted
// order commits with the counter top-up that funded it.
func InsertOrderTx(ctx context.Context, tx *sqlx.Tx, o *model.Order) error {
	if _, err := tx.NamedExecContext(ctx, insertOrderQuery, o); err != nil {
		return err
	}
	for i := range o.Items {
		if _, err := tx.NamedExecContext(ctx, insertOrderItemQuery, &o.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepository) CreateReservation(ctx context.Context, o *model.Order, deductions []stock.Adjustment) error {
	return r.Txm.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := stock.ApplyTx(ctx, tx, deductions); err != nil {
			return err
		}
		return InsertOrderTx(ctx, tx, o)
	})
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	err := r.DB.GetContext(ctx, &o, `SELECT * FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "order not found (id: %s)", id)
		}
		return nil, err
	}
	if err := r.DB.SelectContext(ctx, &o.Items, `
		SELECT * FROM order_items WHERE order_id = $1 ORDER BY product_name, item_name`, id,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]model.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int
	if err := r.DB.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID,
	); err != nil {
		return nil, 0, err
	}

	var orders []model.Order
	if err := r.DB.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, pageSize, (page-1)*pageSize,
	); err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *PGRepository) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*model.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}
	query, args, err := sqlx.In(`SELECT * FROM order_items WHERE order_id IN (?)`, ids)
	if err != nil {
		return err
	}
	var items []model.OrderItem
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return err
	}
	for _, it := range items {
		o := byID[it.OrderID]
		o.Items = append(o.Items, it)
	}
	return nil
}

// statusStamp maps each status to the timestamp column it sets.
var statusStamp = map[model.OrderStatus]string{
	model.StatusPrepaid:  "prepaid_at",
	model.StatusPickedUp: "picked_up_at",
	model.StatusCanceled: "canceled_at",
}

func updateStatusTx(ctx context.Context, tx *sqlx.Tx, o *model.Order, newStatus model.OrderStatus, now time.Time) error {
	query := `UPDATE orders SET status = $2, updated_at = $3`
	if col, ok := statusStamp[newStatus]; ok {
		query += `, ` + col + ` = $3`
	}
	query += ` WHERE id = $1 AND status = $4`

	res, err := tx.ExecContext(ctx, query, o.ID, newStatus, now, o.Status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// The guard on the prior status catches a concurrent flip between
	// the caller's read and this write.
	if n == 0 {
		return apperr.New(apperr.CodeIllegalTransition,
			"order %s is no longer in status %s", o.ID, o.Status)
	}
	return nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, o *model.Order, newStatus model.OrderStatus, upd *loyalty.Update) error {
	return r.Txm.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := updateStatusTx(ctx, tx, o, newStatus, time.Now()); err != nil {
			return err
		}
		if upd != nil {
			if _, err := loyaltyrepo.ApplyUpdateTx(ctx, tx, o.UserID, &o.ID, upd); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PGRepository) CancelWithRestore(ctx context.Context, o *model.Order, restorations []stock.Adjustment, penalty *loyalty.Update) error {
	return r.Txm.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := updateStatusTx(ctx, tx, o, model.StatusCanceled, time.Now()); err != nil {
			return err
		}
		if err := stock.ApplyTx(ctx, tx, restorations); err != nil {
			return err
		}
		if penalty != nil {
			if _, err := loyaltyrepo.ApplyUpdateTx(ctx, tx, o.UserID, &o.ID, penalty); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PGRepository) ReservedQuantityForItem(ctx context.Context, userID, productID, roundID, itemID string) (int, error) {
	var total int
	err := r.DB.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = $1
		  AND o.status <> $2
		  AND oi.product_id = $3
		  AND oi.round_id = $4
		  AND oi.item_id = $5`,
		userID, model.StatusCanceled, productID, roundID, itemID,
	)
	return total, err
}

func (r *PGRepository) UpdateNotes(ctx context.Context, orderID, notes string) error {
	return r.execOnOrder(ctx, orderID,
		`UPDATE orders SET notes = $2, updated_at = NOW() WHERE id = $1`, notes)
}

func (r *PGRepository) SetBookmarked(ctx context.Context, orderID string, bookmarked bool) error {
	return r.execOnOrder(ctx, orderID,
		`UPDATE orders SET is_bookmarked = $2, updated_at = NOW() WHERE id = $1`, bookmarked)
}

func (r *PGRepository) Delete(ctx context.Context, orderID string) error {
	return r.execOnOrder(ctx, orderID, `DELETE FROM orders WHERE id = $1`)
}

func (r *PGRepository) execOnOrder(ctx context.Context, orderID, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, append([]any{orderID}, args...)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.CodeNotFound, "order not found (id: %s)", orderID)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/greenbasket/groupbuy-service/internal/stock"
	"github.com/greenbasket/groupbuy-service/internal/txn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PGRepository struct {
	DB  *sqlx.DB
	Txm *txn.Manager
}

func NewPGRepository(db *sqlx.DB, txm *txn.Manager) *PGRepository {
	return &PGRepository{DB: db, Txm: txm}
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	err := r.DB.GetContext(ctx, &product, `SELECT * FROM products WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "product not found (id: %s)", id)
		}
		return nil, err
	}
	return &product, nil
}

func (r *PGRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Product, error) {
	out := make(map[string]*model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []model.Product
	err := r.DB.SelectContext(ctx, &products, `SELECT * FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            id, group_name, description, category, storage_type,
            is_archived, sales_history, created_at, updated_at
        )
        VALUES (
            :id, :group_name, :description, :category, :storage_type,
            :is_archived, :sales_history, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) AppendSalesRound(ctx context.Context, productID string, round *model.SalesRound) error {
	return r.Txm.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var product model.Product
		err := tx.GetContext(ctx, &product, `SELECT * FROM products WHERE id = $1 FOR UPDATE`, productID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.CodeNotFound, "product not found (id: %s)", productID)
			}
			return err
		}

		product.SalesHistory = append(product.SalesHistory, *round)
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET sales_history = $2, updated_at = NOW() WHERE id = $1`,
			productID, product.SalesHistory,
		); err != nil {
			return err
		}

		return stock.SeedRoundCountersTx(ctx, tx, productID, round)
	})
}

package stock

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// ApplyTx applies a batch of counter adjustments inside the caller's
// transaction. It is the single write primitive shared by direct
// reservations, cancellations and waitlist promotions, which is what lets
// a promotion compose with whatever transaction is already running.
//
// Reservations are guarded in SQL: the decrement only happens when the
// counter is unlimited (NULL) or still holds enough, so oversell is
// impossible regardless of isolation level. A failed guard is reported as
// InsufficientStock with the remaining sellable units.
func ApplyTx(ctx context.Context, tx sqlx.ExtContext, adjs []Adjustment) error {
	// Deterministic order keeps concurrent multi-line checkouts from
	// deadlocking each other.
	sorted := make([]Adjustment, len(adjs))
	copy(sorted, adjs)
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i].Key, sorted[j].Key) })

	for _, adj := range sorted {
		if adj.Delta == 0 {
			continue
		}
		if adj.Delta < 0 {
			if err := deduct(ctx, tx, adj); err != nil {
				return err
			}
			continue
		}
		if err := restore(ctx, tx, adj); err != nil {
			return err
		}
	}
	return nil
}

func deduct(ctx context.Context, tx sqlx.ExtContext, adj Adjustment) error {
	need := -adj.Delta
	res, err := tx.ExecContext(ctx, `
		UPDATE stock_counters
		SET remaining = remaining - $5, updated_at = NOW()
		WHERE product_id = $1 AND round_id = $2 AND variant_group_id = $3 AND item_id = $4
		  AND (remaining IS NULL OR remaining >= $5)`,
		adj.Key.ProductID, adj.Key.RoundID, adj.Key.VariantGroupID, adj.Key.ItemID, need,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	remaining, err := readRemaining(ctx, tx, adj.Key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrOptionNotFound
		}
		return err
	}
	units := 0
	if remaining != nil {
		perUnit := adj.PerUnit
		if perUnit < 1 {
			perUnit = 1
		}
		units = *remaining / perUnit
	}
	return apperr.New(apperr.CodeInsufficientStock, "not enough stock (remaining: %d)", units)
}

// restore adds stock back. Unlimited counters stay NULL, so the guard
// keeps the sentinel intact; zero affected rows is fine.
func restore(ctx context.Context, tx sqlx.ExtContext, adj Adjustment) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE stock_counters
		SET remaining = remaining + $5, updated_at = NOW()
		WHERE product_id = $1 AND round_id = $2 AND variant_group_id = $3 AND item_id = $4
		  AND remaining IS NOT NULL`,
		adj.Key.ProductID, adj.Key.RoundID, adj.Key.VariantGroupID, adj.Key.ItemID, adj.Delta,
	)
	return err
}

func readRemaining(ctx context.Context, tx sqlx.ExtContext, key CounterKey) (*int, error) {
	var remaining sql.NullInt64
	err := sqlx.GetContext(ctx, tx, &remaining, `
		SELECT remaining FROM stock_counters
		WHERE product_id = $1 AND round_id = $2 AND variant_group_id = $3 AND item_id = $4`,
		key.ProductID, key.RoundID, key.VariantGroupID, key.ItemID,
	)
	if err != nil {
		return nil, err
	}
	if !remaining.Valid {
		return nil, nil
	}
	v := int(remaining.Int64)
	return &v, nil
}

func less(a, b CounterKey) bool {
	if a.ProductID != b.ProductID {
		return a.ProductID < b.ProductID
	}
	if a.RoundID != b.RoundID {
		return a.RoundID < b.RoundID
	}
	if a.VariantGroupID != b.VariantGroupID {
		return a.VariantGroupID < b.VariantGroupID
	}
	return a.ItemID < b.ItemID
}

// PGRepository reads the arena outside of write transactions (the stock
// ledger view).
type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

type counterRow struct {
	ProductID      string        `db:"product_id"`
	RoundID        string        `db:"round_id"`
	VariantGroupID string        `db:"variant_group_id"`
	ItemID         string        `db:"item_id"`
	Remaining      sql.NullInt64 `db:"remaining"`
}

func (r *counterRow) counter() Counter {
	c := Counter{Key: CounterKey{
		ProductID:      r.ProductID,
		RoundID:        r.RoundID,
		VariantGroupID: r.VariantGroupID,
		ItemID:         r.ItemID,
	}}
	if r.Remaining.Valid {
		v := int(r.Remaining.Int64)
		c.Remaining = &v
	}
	return c
}

// GetRemaining reads the counters for one product round.
func (r *PGRepository) GetRemaining(ctx context.Context, productID, roundID string) (map[CounterKey]*int, error) {
	var rows []counterRow
	err := r.DB.SelectContext(ctx, &rows, `
		SELECT product_id, round_id, variant_group_id, item_id, remaining
		FROM stock_counters
		WHERE product_id = $1 AND round_id = $2`,
		productID, roundID,
	)
	if err != nil {
		return nil, err
	}
	out := make(map[CounterKey]*int, len(rows))
	for i := range rows {
		c := rows[i].counter()
		out[c.Key] = c.Remaining
	}
	return out, nil
}

// SeedRoundCountersTx creates the counter rows for a newly published
// round from the authored stock figures. Idempotent: existing counters
// are left untouched so a re-publish never resets live stock.
func SeedRoundCountersTx(ctx context.Context, tx sqlx.ExtContext, productID string, round *model.SalesRound) error {
	for gi := range round.VariantGroups {
		group := &round.VariantGroups[gi]
		var pool *int
		if !group.Unlimited() {
			pool = group.TotalPhysicalStock
		}
		if err := insertCounter(ctx, tx, GroupKey(productID, round.RoundID, group.ID), pool); err != nil {
			return err
		}
		for ii := range group.Items {
			item := &group.Items[ii]
			var remaining *int
			if item.Stock != model.UnlimitedStock {
				v := item.Stock
				remaining = &v
			}
			if err := insertCounter(ctx, tx, ItemKey(productID, round.RoundID, group.ID, item.ID), remaining); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertCounter(ctx context.Context, tx sqlx.ExtContext, key CounterKey, remaining *int) error {
	var value sql.NullInt64
	if remaining != nil {
		value = sql.NullInt64{Int64: int64(*remaining), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_counters (product_id, round_id, variant_group_id, item_id, remaining, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (product_id, round_id, variant_group_id, item_id) DO NOTHING`,
		key.ProductID, key.RoundID, key.VariantGroupID, key.ItemID, value,
	)
	return err
}

package catalog

import (
	"context"

	"github.com/greenbasket/groupbuy-service/internal/model"
)

type Repository interface {
	FindByID(ctx context.Context, id string) (*model.Product, error)
	// FindByIDs returns the products that exist, keyed by id. Missing
	// ids are simply absent from the map.
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Product, error)
	Create(ctx context.Context, p *model.Product) error
	// AppendSalesRound appends the round to the product's sales history
	// and seeds its stock counters in one transaction. Rounds are
	// append-only: they are re-edited while in draft, never removed.
	AppendSalesRound(ctx context.Context, productID string, round *model.SalesRound) error
}

package catalog

import (
	"context"

	"github.com/greenbasket/groupbuy-service/internal/catalog/dto"
	"github.com/greenbasket/groupbuy-service/internal/model"
)

type UseCase interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	AppendSalesRound(ctx context.Context, productID string, round *model.SalesRound) error
	// GetAvailability resolves the round's options against the stock
	// counter arena (cached for a few seconds).
	GetAvailability(ctx context.Context, productID, roundID string) (*dto.RoundAvailability, error)
	// InvalidateAvailability drops the cached view after a stock
	// mutation so the next read reflects the commit.
	InvalidateAvailability(ctx context.Context, productID, roundID string)
}

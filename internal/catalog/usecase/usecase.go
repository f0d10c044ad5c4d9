package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/catalog"
	"github.com/greenbasket/groupbuy-service/internal/catalog/dto"
	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/greenbasket/groupbuy-service/internal/stock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const availabilityTTL = 5 * time.Second

// CounterReader is the read side of the stock arena.
type CounterReader interface {
	GetRemaining(ctx context.Context, productID, roundID string) (map[stock.CounterKey]*int, error)
}

type catalogUseCase struct {
	repo     catalog.Repository
	counters CounterReader
	cache    *redis.Client
	logger   *zap.Logger
}

func NewCatalogUseCase(repo catalog.Repository, counters CounterReader, cache *redis.Client, log *zap.Logger) catalog.UseCase {
	return &catalogUseCase{repo: repo, counters: counters, cache: cache, logger: log}
}

func (uc *catalogUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *catalogUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	now := time.Now()
	p := &model.Product{
		BaseModel: model.BaseModel{
			ID:        uuid.NewString(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		GroupName:    input.GroupName,
		StorageType:  model.StorageType(input.StorageType),
		SalesHistory: model.SalesHistory{},
	}
	if p.StorageType == "" {
		p.StorageType = model.StorageRoom
	}
	if input.Description != "" {
		p.Description = &input.Description
	}
	if input.Category != "" {
		p.Category = &input.Category
	}
	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *catalogUseCase) AppendSalesRound(ctx context.Context, productID string, round *model.SalesRound) error {
	if round.RoundID == "" {
		round.RoundID = uuid.NewString()
	}
	if round.CreatedAt.IsZero() {
		round.CreatedAt = time.Now()
	}
	for gi := range round.VariantGroups {
		group := &round.VariantGroups[gi]
		if group.ID == "" {
			group.ID = uuid.NewString()
		}
		for ii := range group.Items {
			if group.Items[ii].ID == "" {
				group.Items[ii].ID = uuid.NewString()
			}
		}
	}
	return uc.repo.AppendSalesRound(ctx, productID, round)
}

func (uc *catalogUseCase) GetAvailability(ctx context.Context, productID, roundID string) (*dto.RoundAvailability, error) {
	key := availabilityKey(productID, roundID)
	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, key).Bytes(); err == nil {
			var view dto.RoundAvailability
			if err := json.Unmarshal(cached, &view); err == nil {
				return &view, nil
			}
		}
	}

	view, err := uc.buildAvailability(ctx, productID, roundID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if encoded, err := json.Marshal(view); err == nil {
			if err := uc.cache.Set(ctx, key, encoded, availabilityTTL).Err(); err != nil {
				uc.logger.Warn("failed to cache availability", zap.Error(err))
			}
		}
	}
	return view, nil
}

func (uc *catalogUseCase) buildAvailability(ctx context.Context, productID, roundID string) (*dto.RoundAvailability, error) {
	product, err := uc.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	round := product.Round(roundID)
	if round == nil {
		return nil, apperr.ErrRoundNotFound
	}

	remaining, err := uc.counters.GetRemaining(ctx, productID, roundID)
	if err != nil {
		return nil, err
	}

	view := &dto.RoundAvailability{ProductID: productID, RoundID: roundID}
	for gi := range round.VariantGroups {
		group := &round.VariantGroups[gi]
		pool := remaining[stock.GroupKey(productID, roundID, group.ID)]
		ga := dto.GroupAvailability{
			VariantGroupID: group.ID,
			GroupName:      group.GroupName,
			PoolRemaining:  pool,
		}
		for ii := range group.Items {
			item := &group.Items[ii]
			itemLeft := remaining[stock.ItemKey(productID, roundID, group.ID, item.ID)]
			ga.Items = append(ga.Items, dto.ItemAvailability{
				ItemID:         item.ID,
				Name:           item.Name,
				Price:          item.Price,
				AvailableUnits: stock.AvailableUnits(pool, itemLeft, item.DeductionAmount()),
			})
		}
		view.Groups = append(view.Groups, ga)
	}
	return view, nil
}

func (uc *catalogUseCase) InvalidateAvailability(ctx context.Context, productID, roundID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Del(ctx, availabilityKey(productID, roundID)).Err(); err != nil {
		uc.logger.Warn("failed to invalidate availability cache",
			zap.String("product_id", productID),
			zap.Error(err),
		)
	}
}

func availabilityKey(productID, roundID string) string {
	return fmt.Sprintf("availability:%s:%s", productID, roundID)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const featuredKey = "product:featured"

func slugKey(slug string) string {
	return "product:slug:" + slug
}

// cachedProductService reads product pages through redis. Every admin write
// drops the affected entries.
type cachedProductService struct {
	next        ProductService
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      *zap.Logger
}

func NewCachedProductService(next ProductService, redisClient *redis.Client, cacheTTL time.Duration, logger *zap.Logger) ProductService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	return &cachedProductService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func (s *cachedProductService) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	return s.next.List(ctx, filter)
}

func (s *cachedProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.next.GetByID(ctx, id)
}

func (s *cachedProductService) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.readThrough(ctx, slugKey(slug), func() (*domain.Product, error) {
		return s.next.GetBySlug(ctx, slug)
	})
}

func (s *cachedProductService) GetFeatured(ctx context.Context) (*domain.Product, error) {
	return s.readThrough(ctx, featuredKey, func() (*domain.Product, error) {
		return s.next.GetFeatured(ctx)
	})
}

func (s *cachedProductService) readThrough(ctx context.Context, key string, load func() (*domain.Product, error)) (*domain.Product, error) {
	val, err := s.redisClient.Get(ctx, key).Bytes()
	if err == nil {
		var product domain.Product
		if err := json.Unmarshal(val, &product); err == nil {
			return &product, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		mylogger.Warn(ctx, s.logger, "Product cache read failed", zap.String("key", key), zap.Error(err))
	}

	product, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := s.redisClient.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
			mylogger.Warn(ctx, s.logger, "Product cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return product, nil
}

func (s *cachedProductService) invalidate(ctx context.Context, slugs ...string) {
	keys := []string{featuredKey}
	for _, slug := range slugs {
		if slug != "" {
			keys = append(keys, slugKey(slug))
		}
	}

	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
		mylogger.Warn(ctx, s.logger, "Product cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *cachedProductService) afterWrite(ctx context.Context, product *domain.Product, err error) (*domain.Product, error) {
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, product.Slug)
	return product, nil
}

func (s *cachedProductService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	product, err := s.next.Create(ctx, input)
	return s.afterWrite(ctx, product, err)
}

func (s *cachedProductService) Update(ctx context.Context, id int64, input *domain.UpdateProductInput) (*domain.Product, error) {
	product, err := s.next.Update(ctx, id, input)
	return s.afterWrite(ctx, product, err)
}

func (s *cachedProductService) Delete(ctx context.Context, id int64) error {
	product, err := s.next.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, product.Slug)
	return nil
}

func (s *cachedProductService) SetFeatured(ctx context.Context, id int64, featured bool) (*domain.Product, error) {
	product, err := s.next.SetFeatured(ctx, id, featured)
	return s.afterWrite(ctx, product, err)
}

func (s *cachedProductService) AddVariant(ctx context.Context, productID int64, variant *domain.ProductVariant) (*domain.Product, error) {
	product, err := s.next.AddVariant(ctx, productID, variant)
	return s.afterWrite(ctx, product, err)
}

func (s *cachedProductService) DeleteVariant(ctx context.Context, variantID int64) (*domain.Product, error) {
	product, err := s.next.DeleteVariant(ctx, variantID)
	return s.afterWrite(ctx, product, err)
}

func (s *cachedProductService) AddImage(ctx context.Context, productID int64, image *domain.ProductImage) (*domain.Product, error) {
	product, err := s.next.AddImage(ctx, productID, image)
	return s.afterWrite(ctx, product, err)
}

func (s *cachedProductService) SetPrimaryImage(ctx context.Context, imageID int64) (*domain.Product, error) {
	product, err := s.next.SetPrimaryImage(ctx, imageID)
	return s.afterWrite(ctx, product, err)
}

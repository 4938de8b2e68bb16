package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxSlugAttempts = 20

type CreateProductInput struct {
	Name        string
	Description string
	Category    string
	Material    string
	BasePrice   int64
	Variants    []domain.ProductVariant
	Images      []domain.ProductImage
}

// ProductService is the catalog. Mutations return the reloaded product.
type ProductService interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetFeatured(ctx context.Context) (*domain.Product, error)

	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, id int64, input *domain.UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	SetFeatured(ctx context.Context, id int64, featured bool) (*domain.Product, error)

	AddVariant(ctx context.Context, productID int64, variant *domain.ProductVariant) (*domain.Product, error)
	DeleteVariant(ctx context.Context, variantID int64) (*domain.Product, error)
	AddImage(ctx context.Context, productID int64, image *domain.ProductImage) (*domain.Product, error)
	SetPrimaryImage(ctx context.Context, imageID int64) (*domain.Product, error)
}

type productService struct {
	pool        *pgxpool.Pool
	productRepo repository.ProductRepository
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewProductService(pool *pgxpool.Pool, productRepo repository.ProductRepository, logger *zap.Logger) ProductService {
	return &productService{
		pool:        pool,
		productRepo: productRepo,
		logger:      logger,
		tracer:      otel.Tracer("service/product"),
	}
}

func (s *productService) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Search = strings.TrimSpace(filter.Search)

	return s.productRepo.List(ctx, filter)
}

func (s *productService) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.productRepo.GetBySlug(ctx, slug)
}

func (s *productService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

func (s *productService) GetFeatured(ctx context.Context) (*domain.Product, error) {
	return s.productRepo.GetFeatured(ctx)
}

// Create derives the slug from the name and appends -2, -3, ... until it is
// free. Each attempt runs in its own transaction.
func (s *productService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Create")
	defer span.End()

	base := domain.Slugify(input.Name)
	span.SetAttributes(attribute.String("slug", base))

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		product := &domain.Product{
			Name:        strings.TrimSpace(input.Name),
			Slug:        domain.SlugCandidate(base, attempt),
			Description: input.Description,
			Category:    input.Category,
			Material:    input.Material,
			BasePrice:   input.BasePrice,
		}

		err := s.createOnce(ctx, product, input)
		if errors.Is(err, repository.ErrSlugTaken) {
			mylogger.Info(ctx, s.logger, "Slug taken, retrying", zap.String("slug", product.Slug))
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		mylogger.Info(ctx, s.logger, "Product created", zap.Int64("product_id", product.ID), zap.String("slug", product.Slug))

		return s.productRepo.GetByID(ctx, product.ID)
	}

	return nil, repository.ErrSlugTaken
}

func (s *productService) createOnce(ctx context.Context, product *domain.Product, input CreateProductInput) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	if err := s.productRepo.Create(ctx, tx, product); err != nil {
		return err
	}

	for i := range input.Variants {
		v := input.Variants[i]
		v.ProductID = product.ID
		if err := s.productRepo.AddVariant(ctx, tx, &v); err != nil {
			return err
		}
	}

	hasPrimary := false
	for _, img := range input.Images {
		hasPrimary = hasPrimary || img.IsPrimary
	}

	for i := range input.Images {
		img := input.Images[i]
		img.ProductID = product.ID
		img.Position = i
		// The first image is primary unless another one asks to be.
		img.IsPrimary = (hasPrimary && img.IsPrimary) || (!hasPrimary && i == 0)
		hasPrimary = hasPrimary || img.IsPrimary
		if img.IsPrimary {
			if err := s.productRepo.ClearPrimaryImage(ctx, tx, product.ID); err != nil {
				return err
			}
		}
		if err := s.productRepo.AddImage(ctx, tx, &img); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *productService) Update(ctx context.Context, id int64, input *domain.UpdateProductInput) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", id))

	if err := s.productRepo.Update(ctx, id, input); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return s.productRepo.GetByID(ctx, id)
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "ProductService.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", id))

	if err := s.productRepo.SoftDelete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}

	mylogger.Info(ctx, s.logger, "Product deleted", zap.Int64("product_id", id))
	return nil
}

// SetFeatured keeps at most one featured product: the previous one is
// cleared in the same transaction.
func (s *productService) SetFeatured(ctx context.Context, id int64, featured bool) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.SetFeatured")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", id),
		attribute.Bool("featured", featured),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	if featured {
		if err := s.productRepo.ClearFeatured(ctx, tx); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	if err := s.productRepo.SetFeatured(ctx, tx, id, featured); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.productRepo.GetByID(ctx, id)
}

func (s *productService) AddVariant(ctx context.Context, productID int64, variant *domain.ProductVariant) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.AddVariant")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", productID))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	variant.ProductID = productID
	if err := s.productRepo.AddVariant(ctx, tx, variant); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.productRepo.GetByID(ctx, productID)
}

func (s *productService) DeleteVariant(ctx context.Context, variantID int64) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.DeleteVariant")
	defer span.End()

	span.SetAttributes(attribute.Int64("variant_id", variantID))

	productID, err := s.productRepo.DeleteVariant(ctx, variantID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return s.productRepo.GetByID(ctx, productID)
}

// AddImage makes the first image of a product primary. A new primary image
// demotes the old one in the same transaction.
func (s *productService) AddImage(ctx context.Context, productID int64, image *domain.ProductImage) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.AddImage")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", productID))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	count, err := s.productRepo.CountImages(ctx, tx, productID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	image.ProductID = productID
	image.Position = count
	if count == 0 {
		image.IsPrimary = true
	} else if image.IsPrimary {
		if err := s.productRepo.ClearPrimaryImage(ctx, tx, productID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	if err := s.productRepo.AddImage(ctx, tx, image); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.productRepo.GetByID(ctx, productID)
}

func (s *productService) SetPrimaryImage(ctx context.Context, imageID int64) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.SetPrimaryImage")
	defer span.End()

	span.SetAttributes(attribute.Int64("image_id", imageID))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	productID, err := s.productRepo.ImageProductID(ctx, tx, imageID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.productRepo.ClearPrimaryImage(ctx, tx, productID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.productRepo.MarkPrimaryImage(ctx, tx, imageID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.productRepo.GetByID(ctx, productID)
}

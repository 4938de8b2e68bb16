package service

import (
	"context"
	"strings"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type GalleryService interface {
	List(ctx context.Context, category string) ([]domain.GalleryItem, error)
	Create(ctx context.Context, item *domain.GalleryItem) (*domain.GalleryItem, error)
	Delete(ctx context.Context, id int64) error

	SubmitCustomization(ctx context.Context, owner domain.Owner, c *domain.Customization) (*domain.Customization, error)
	ListCustomizations(ctx context.Context, limit, offset int) ([]domain.Customization, int64, error)
}

type galleryService struct {
	galleryRepo       repository.GalleryRepository
	customizationRepo repository.CustomizationRepository
	productRepo       repository.ProductRepository
	logger            *zap.Logger
	tracer            trace.Tracer
}

func NewGalleryService(
	galleryRepo repository.GalleryRepository,
	customizationRepo repository.CustomizationRepository,
	productRepo repository.ProductRepository,
	logger *zap.Logger,
) GalleryService {
	return &galleryService{
		galleryRepo:       galleryRepo,
		customizationRepo: customizationRepo,
		productRepo:       productRepo,
		logger:            logger,
		tracer:            otel.Tracer("service/gallery"),
	}
}

func (s *galleryService) List(ctx context.Context, category string) ([]domain.GalleryItem, error) {
	ctx, span := s.tracer.Start(ctx, "GalleryService.List")
	defer span.End()

	return s.galleryRepo.List(ctx, strings.TrimSpace(category))
}

func (s *galleryService) Create(ctx context.Context, item *domain.GalleryItem) (*domain.GalleryItem, error) {
	ctx, span := s.tracer.Start(ctx, "GalleryService.Create")
	defer span.End()

	item.Title = strings.TrimSpace(item.Title)
	item.Category = strings.TrimSpace(item.Category)
	item.IsActive = true

	if err := s.galleryRepo.Create(ctx, item); err != nil {
		span.RecordError(err)
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Gallery item created", zap.Int64("gallery_item_id", item.ID))
	return item, nil
}

func (s *galleryService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "GalleryService.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("gallery_item_id", id))

	return s.galleryRepo.SoftDelete(ctx, id)
}

// SubmitCustomization stores engraving or logo details for an active product.
func (s *galleryService) SubmitCustomization(ctx context.Context, owner domain.Owner, c *domain.Customization) (*domain.Customization, error) {
	ctx, span := s.tracer.Start(ctx, "GalleryService.SubmitCustomization")
	defer span.End()

	if err := owner.Validate(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("product_id", c.ProductID),
		attribute.String("owner_kind", string(owner.Kind)),
	)

	product, err := s.productRepo.GetByID(ctx, c.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsAvailable() {
		return nil, ErrProductUnavailable
	}

	c.SetOwner(owner)
	c.EngravingText = strings.TrimSpace(c.EngravingText)

	if err := s.customizationRepo.Create(ctx, c); err != nil {
		span.RecordError(err)
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Customization submitted",
		zap.Int64("customization_id", c.ID),
		zap.Int64("product_id", c.ProductID),
	)

	return c, nil
}

func (s *galleryService) ListCustomizations(ctx context.Context, limit, offset int) ([]domain.Customization, int64, error) {
	ctx, span := s.tracer.Start(ctx, "GalleryService.ListCustomizations")
	defer span.End()

	limit, offset = normalizePage(limit, offset)
	return s.customizationRepo.List(ctx, limit, offset)
}

package repository

import (
	"context"
	"fmt"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type GalleryRepository interface {
	List(ctx context.Context, category string) ([]domain.GalleryItem, error)
	Create(ctx context.Context, item *domain.GalleryItem) error
	SoftDelete(ctx context.Context, id int64) error
}

type galleryRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewGalleryRepository(pool *pgxpool.Pool, logger *zap.Logger) GalleryRepository {
	return &galleryRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/gallery_repository"),
	}
}

func (r *galleryRepo) List(ctx context.Context, category string) ([]domain.GalleryItem, error) {
	ctx, span := r.tracer.Start(ctx, "GalleryRepository.List")
	defer span.End()

	span.SetAttributes(attribute.String("category", category))

	query := `
		SELECT id, title, image_url, category, position, is_active, created_at
		FROM galleries
		WHERE deleted_at IS NULL AND is_active AND ($1 = '' OR category = $1)
		ORDER BY position ASC, created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, category)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to list gallery", zap.Error(err))

		return nil, fmt.Errorf("error listing gallery: %w", err)
	}
	defer rows.Close()

	items := []domain.GalleryItem{}
	for rows.Next() {
		var g domain.GalleryItem
		if err := rows.Scan(&g.ID, &g.Title, &g.ImageURL, &g.Category, &g.Position, &g.IsActive, &g.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning gallery item: %w", err)
		}
		items = append(items, g)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return items, nil
}

func (r *galleryRepo) Create(ctx context.Context, item *domain.GalleryItem) error {
	ctx, span := r.tracer.Start(ctx, "GalleryRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("title", item.Title))

	query := `
		INSERT INTO galleries (title, image_url, category, position, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, is_active, created_at
	`

	err := r.pool.QueryRow(ctx, query, item.Title, item.ImageURL, item.Category, item.Position).
		Scan(&item.ID, &item.IsActive, &item.CreatedAt)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to create gallery item", zap.Error(err))

		return fmt.Errorf("error creating gallery item: %w", err)
	}

	return nil
}

func (r *galleryRepo) SoftDelete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "GalleryRepository.SoftDelete")
	defer span.End()

	span.SetAttributes(attribute.Int64("gallery_id", id))

	commandTag, err := r.pool.Exec(ctx, `UPDATE galleries SET deleted_at = NOW(), is_active = FALSE WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error deleting gallery item: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrGalleryItemNotFound
	}

	return nil
}

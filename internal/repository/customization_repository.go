package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CustomizationRepository interface {
	Create(ctx context.Context, c *domain.Customization) error
	GetByID(ctx context.Context, id int64) (*domain.Customization, error)
	List(ctx context.Context, limit, offset int) ([]domain.Customization, int64, error)
}

type customizationRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCustomizationRepository(pool *pgxpool.Pool, logger *zap.Logger) CustomizationRepository {
	return &customizationRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/customization_repository"),
	}
}

const customizationColumns = `id, product_id, user_id, guest_id, engraving_text, font, logo_url, notes, created_at`

func scanCustomization(row pgx.Row, c *domain.Customization) error {
	return row.Scan(
		&c.ID,
		&c.ProductID,
		&c.UserID,
		&c.GuestID,
		&c.EngravingText,
		&c.Font,
		&c.LogoURL,
		&c.Notes,
		&c.CreatedAt,
	)
}

func (r *customizationRepo) Create(ctx context.Context, c *domain.Customization) error {
	ctx, span := r.tracer.Start(ctx, "CustomizationRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", c.ProductID))

	query := `
		INSERT INTO product_customizations (product_id, user_id, guest_id, engraving_text, font, logo_url, notes)
		SELECT $1::bigint, $2::bigint, $3::text, $4::text, $5::text, $6::text, $7::text
		WHERE EXISTS (SELECT 1 FROM products WHERE id = $1 AND deleted_at IS NULL)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		c.ProductID,
		c.UserID,
		c.GuestID,
		c.EngravingText,
		c.Font,
		c.LogoURL,
		c.Notes,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to create customization", zap.Error(err))

		return fmt.Errorf("error creating customization: %w", err)
	}

	return nil
}

func (r *customizationRepo) GetByID(ctx context.Context, id int64) (*domain.Customization, error) {
	ctx, span := r.tracer.Start(ctx, "CustomizationRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("customization_id", id))

	var c domain.Customization
	if err := scanCustomization(r.pool.QueryRow(ctx, `SELECT `+customizationColumns+` FROM product_customizations WHERE id = $1`, id), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomizationMissing
		}

		span.RecordError(err)
		return nil, fmt.Errorf("error getting customization: %w", err)
	}

	return &c, nil
}

func (r *customizationRepo) List(ctx context.Context, limit, offset int) ([]domain.Customization, int64, error) {
	ctx, span := r.tracer.Start(ctx, "CustomizationRepository.List")
	defer span.End()

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM product_customizations`).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to count customizations: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+customizationColumns+` FROM product_customizations ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to list customizations", zap.Error(err))

		return nil, 0, fmt.Errorf("failed to list customizations: %w", err)
	}
	defer rows.Close()

	result := []domain.Customization{}
	for rows.Next() {
		var c domain.Customization
		if err := scanCustomization(rows, &c); err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("failed to scan customization: %w", err)
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, total, nil
}

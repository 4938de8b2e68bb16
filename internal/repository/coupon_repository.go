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

type CouponRepository interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	GetByID(ctx context.Context, id int64) (*domain.Coupon, error)
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	LockByCode(ctx context.Context, tx pgx.Tx, code string) (*domain.Coupon, error)
	List(ctx context.Context, limit, offset int) ([]domain.Coupon, int64, error)
	Update(ctx context.Context, coupon *domain.Coupon) error
	Deactivate(ctx context.Context, id int64) error

	// RecordUsage inserts the redemption and bumps times_used in tx.
	RecordUsage(ctx context.Context, tx pgx.Tx, usage *domain.CouponUsage) error
	CountUsageByUser(ctx context.Context, couponID, userID int64) (int, error)
}

type couponRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCouponRepository(pool *pgxpool.Pool, logger *zap.Logger) CouponRepository {
	return &couponRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/coupon_repository"),
	}
}

const couponColumns = `id, code, description, discount_type, discount_value, min_order_amount,
		max_discount_amount, usage_limit, times_used, is_active, starts_at, expires_at, created_at, updated_at`

func scanCoupon(row pgx.Row, c *domain.Coupon) error {
	var discountType string
	if err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Description,
		&discountType,
		&c.DiscountValue,
		&c.MinOrderAmount,
		&c.MaxDiscountAmount,
		&c.UsageLimit,
		&c.TimesUsed,
		&c.IsActive,
		&c.StartsAt,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return err
	}
	c.DiscountType = domain.DiscountType(discountType)
	return nil
}

func (r *couponRepo) Create(ctx context.Context, coupon *domain.Coupon) error {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("coupon_code", coupon.Code))

	query := `
		INSERT INTO coupons (code, description, discount_type, discount_value, min_order_amount,
			max_discount_amount, usage_limit, is_active, starts_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, times_used, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		coupon.Code,
		coupon.Description,
		string(coupon.DiscountType),
		coupon.DiscountValue,
		coupon.MinOrderAmount,
		coupon.MaxDiscountAmount,
		coupon.UsageLimit,
		coupon.IsActive,
		coupon.StartsAt,
		coupon.ExpiresAt,
	).Scan(&coupon.ID, &coupon.TimesUsed, &coupon.CreatedAt, &coupon.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "coupons_code_key") {
			mylogger.Warn(ctx, r.logger, "Coupon code already exists", zap.String("coupon_code", coupon.Code))
			return ErrCouponCodeTaken
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to create coupon", zap.Error(err))

		return fmt.Errorf("error creating coupon: %w", err)
	}

	return nil
}

func (r *couponRepo) getOne(ctx context.Context, span trace.Span, q querier, query string, arg any) (*domain.Coupon, error) {
	var c domain.Coupon
	if err := scanCoupon(q.QueryRow(ctx, query, arg), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to get coupon", zap.Error(err))

		return nil, fmt.Errorf("error getting coupon: %w", err)
	}

	return &c, nil
}

func (r *couponRepo) GetByID(ctx context.Context, id int64) (*domain.Coupon, error) {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("coupon_id", id))

	return r.getOne(ctx, span, r.pool, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id)
}

func (r *couponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.GetByCode")
	defer span.End()

	span.SetAttributes(attribute.String("coupon_code", code))

	return r.getOne(ctx, span, r.pool, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
}

func (r *couponRepo) LockByCode(ctx context.Context, tx pgx.Tx, code string) (*domain.Coupon, error) {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.LockByCode")
	defer span.End()

	span.SetAttributes(attribute.String("coupon_code", code))

	return r.getOne(ctx, span, tx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1 FOR UPDATE`, code)
}

func (r *couponRepo) List(ctx context.Context, limit, offset int) ([]domain.Coupon, int64, error) {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to count coupons: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to list coupons", zap.Error(err))

		return nil, 0, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []domain.Coupon{}
	for rows.Next() {
		var c domain.Coupon
		if err := scanCoupon(rows, &c); err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return coupons, total, nil
}

func (r *couponRepo) Update(ctx context.Context, coupon *domain.Coupon) error {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("coupon_id", coupon.ID),
		attribute.String("coupon_code", coupon.Code),
	)

	query := `
		UPDATE coupons
		SET code = $1, description = $2, discount_type = $3, discount_value = $4,
			min_order_amount = $5, max_discount_amount = $6, usage_limit = $7,
			is_active = $8, starts_at = $9, expires_at = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		coupon.Code,
		coupon.Description,
		string(coupon.DiscountType),
		coupon.DiscountValue,
		coupon.MinOrderAmount,
		coupon.MaxDiscountAmount,
		coupon.UsageLimit,
		coupon.IsActive,
		coupon.StartsAt,
		coupon.ExpiresAt,
		coupon.ID,
	).Scan(&coupon.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCouponNotFound
		}
		if isUniqueViolation(err, "coupons_code_key") {
			return ErrCouponCodeTaken
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to update coupon", zap.Int64("coupon_id", coupon.ID), zap.Error(err))

		return fmt.Errorf("error updating coupon: %w", err)
	}

	return nil
}

func (r *couponRepo) Deactivate(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.Deactivate")
	defer span.End()

	span.SetAttributes(attribute.Int64("coupon_id", id))

	commandTag, err := r.pool.Exec(ctx, `UPDATE coupons SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error deactivating coupon: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}

	return nil
}

func (r *couponRepo) RecordUsage(ctx context.Context, tx pgx.Tx, usage *domain.CouponUsage) error {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.RecordUsage")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("coupon_id", usage.CouponID),
		attribute.Int64("order_id", usage.OrderID),
		attribute.Int64("user_id", usage.UserID),
	)

	query := `
		INSERT INTO coupon_usages (coupon_id, user_id, order_id, discount_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query, usage.CouponID, usage.UserID, usage.OrderID, usage.DiscountAmount).
		Scan(&usage.ID, &usage.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "coupon_usages_coupon_id_order_id_key") {
			mylogger.Warn(
				ctx,
				r.logger,
				"Coupon already applied to order",
				zap.Int64("coupon_id", usage.CouponID),
				zap.Int64("order_id", usage.OrderID),
			)
			return ErrCouponAlreadyApplied
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to record coupon usage", zap.Error(err))

		return fmt.Errorf("error recording coupon usage: %w", err)
	}

	increment := `
		UPDATE coupons
		SET times_used = times_used + 1, updated_at = NOW()
		WHERE id = $1 AND (usage_limit IS NULL OR times_used < usage_limit)
	`

	commandTag, err := tx.Exec(ctx, increment, usage.CouponID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error incrementing coupon usage: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCouponUsageLimit
	}

	return nil
}

func (r *couponRepo) CountUsageByUser(ctx context.Context, couponID, userID int64) (int, error) {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.CountUsageByUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("coupon_id", couponID),
		attribute.Int64("user_id", userID),
	)

	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`, couponID, userID).Scan(&count)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("error counting coupon usage: %w", err)
	}

	return count, nil
}

package service

import (
	"context"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// UpdateCouponInput changes only the fields that are set.
type UpdateCouponInput struct {
	Code              *string              `json:"code"`
	Description       *string              `json:"description"`
	DiscountType      *domain.DiscountType `json:"discount_type"`
	DiscountValue     *int64               `json:"discount_value"`
	MinOrderAmount    *int64               `json:"min_order_amount"`
	MaxDiscountAmount *int64               `json:"max_discount_amount"`
	UsageLimit        *int                 `json:"usage_limit"`
	IsActive          *bool                `json:"is_active"`
	StartsAt          *time.Time           `json:"starts_at"`
	ExpiresAt         *time.Time           `json:"expires_at"`
}

type CouponQuote struct {
	Code        string `json:"code"`
	Discount    int64  `json:"discount"`
	FinalAmount int64  `json:"final_amount"`
}

type CouponService interface {
	Create(ctx context.Context, coupon *domain.Coupon) (*domain.Coupon, error)
	Get(ctx context.Context, id int64) (*domain.Coupon, error)
	List(ctx context.Context, limit, offset int) ([]domain.Coupon, int64, error)
	Update(ctx context.Context, id int64, input *UpdateCouponInput) (*domain.Coupon, error)
	Deactivate(ctx context.Context, id int64) error

	Quote(ctx context.Context, code string, orderAmount int64) (*CouponQuote, error)
	UsageByUser(ctx context.Context, couponID, userID int64) (int, error)
}

type couponService struct {
	couponRepo repository.CouponRepository
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func NewCouponService(couponRepo repository.CouponRepository, logger *zap.Logger) CouponService {
	return &couponService{
		couponRepo: couponRepo,
		logger:     logger,
		tracer:     otel.Tracer("service/coupon"),
		now:        time.Now,
	}
}

func (s *couponService) Create(ctx context.Context, coupon *domain.Coupon) (*domain.Coupon, error) {
	ctx, span := s.tracer.Start(ctx, "CouponService.Create")
	defer span.End()

	coupon.Code = domain.NormalizeCouponCode(coupon.Code)
	span.SetAttributes(attribute.String("coupon_code", coupon.Code))

	if err := coupon.Validate(); err != nil {
		return nil, err
	}

	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		span.RecordError(err)
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Coupon created", zap.String("coupon_code", coupon.Code))

	return coupon, nil
}

func (s *couponService) Get(ctx context.Context, id int64) (*domain.Coupon, error) {
	return s.couponRepo.GetByID(ctx, id)
}

func (s *couponService) List(ctx context.Context, limit, offset int) ([]domain.Coupon, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.couponRepo.List(ctx, limit, offset)
}

func (s *couponService) Update(ctx context.Context, id int64, input *UpdateCouponInput) (*domain.Coupon, error) {
	ctx, span := s.tracer.Start(ctx, "CouponService.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("coupon_id", id))

	coupon, err := s.couponRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Code != nil {
		coupon.Code = domain.NormalizeCouponCode(*input.Code)
	}
	if input.Description != nil {
		coupon.Description = *input.Description
	}
	if input.DiscountType != nil {
		coupon.DiscountType = *input.DiscountType
	}
	if input.DiscountValue != nil {
		coupon.DiscountValue = *input.DiscountValue
	}
	if input.MinOrderAmount != nil {
		coupon.MinOrderAmount = *input.MinOrderAmount
	}
	if input.MaxDiscountAmount != nil {
		coupon.MaxDiscountAmount = input.MaxDiscountAmount
	}
	if input.UsageLimit != nil {
		coupon.UsageLimit = input.UsageLimit
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	if input.StartsAt != nil {
		coupon.StartsAt = input.StartsAt
	}
	if input.ExpiresAt != nil {
		coupon.ExpiresAt = input.ExpiresAt
	}

	if err := coupon.Validate(); err != nil {
		return nil, err
	}

	if err := s.couponRepo.Update(ctx, coupon); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return coupon, nil
}

func (s *couponService) Deactivate(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "CouponService.Deactivate")
	defer span.End()

	span.SetAttributes(attribute.Int64("coupon_id", id))

	if err := s.couponRepo.Deactivate(ctx, id); err != nil {
		return err
	}

	mylogger.Info(ctx, s.logger, "Coupon deactivated", zap.Int64("coupon_id", id))
	return nil
}

// Quote prices a coupon against an order amount without redeeming it.
func (s *couponService) Quote(ctx context.Context, code string, orderAmount int64) (*CouponQuote, error) {
	ctx, span := s.tracer.Start(ctx, "CouponService.Quote")
	defer span.End()

	code = domain.NormalizeCouponCode(code)
	span.SetAttributes(
		attribute.String("coupon_code", code),
		attribute.Int64("order_amount", orderAmount),
	)

	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	discount, err := coupon.CalculateDiscount(orderAmount, s.now())
	if err != nil {
		mylogger.Info(ctx, s.logger, "Coupon rejected", zap.String("coupon_code", code), zap.Error(err))
		return nil, err
	}

	return &CouponQuote{
		Code:        coupon.Code,
		Discount:    discount,
		FinalAmount: orderAmount - discount,
	}, nil
}

// UsageByUser counts redemptions of a coupon by a user. No per-user limit is
// enforced on it.
func (s *couponService) UsageByUser(ctx context.Context, couponID, userID int64) (int, error) {
	return s.couponRepo.CountUsageByUser(ctx, couponID, userID)
}

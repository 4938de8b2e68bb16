package handler

import (
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CouponHandler struct {
	svc      service.CouponService
	validate *validator.Validate
	logger   *zap.Logger
}

type quoteRequest struct {
	Code        string `json:"code" validate:"required,max=50"`
	OrderAmount int64  `json:"order_amount" validate:"gt=0"`
}

type couponRequest struct {
	Code              string              `json:"code" validate:"required,max=50"`
	Description       string              `json:"description" validate:"max=500"`
	DiscountType      domain.DiscountType `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue     int64               `json:"discount_value" validate:"gt=0"`
	MinOrderAmount    int64               `json:"min_order_amount" validate:"gte=0"`
	MaxDiscountAmount *int64              `json:"max_discount_amount" validate:"omitempty,gt=0"`
	UsageLimit        *int                `json:"usage_limit" validate:"omitempty,gt=0"`
	StartsAt          *time.Time          `json:"starts_at"`
	ExpiresAt         *time.Time          `json:"expires_at"`
}

func NewCouponHandler(svc service.CouponService, logger *zap.Logger) *CouponHandler {
	return &CouponHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *CouponHandler) Validate(c *fiber.Ctx) error {
	var req quoteRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	quote, err := h.svc.Quote(c.UserContext(), req.Code, req.OrderAmount)
	if err != nil {
		return writeError(c, h.logger, "quote coupon", err)
	}
	return response.OK(c, quote)
}

func (h *CouponHandler) List(c *fiber.Ctx) error {
	limit, offset := page(c)

	coupons, total, err := h.svc.List(c.UserContext(), limit, offset)
	if err != nil {
		return writeError(c, h.logger, "list coupons", err)
	}
	return response.OK(c, paged(coupons, total, limit, offset))
}

func (h *CouponHandler) Create(c *fiber.Ctx) error {
	var req couponRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	coupon, err := h.svc.Create(c.UserContext(), &domain.Coupon{
		Code:              req.Code,
		Description:       req.Description,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MinOrderAmount:    req.MinOrderAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		UsageLimit:        req.UsageLimit,
		IsActive:          true,
		StartsAt:          req.StartsAt,
		ExpiresAt:         req.ExpiresAt,
	})
	if err != nil {
		return writeError(c, h.logger, "create coupon", err)
	}
	return response.Created(c, coupon)
}

func (h *CouponHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	coupon, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, "get coupon", err)
	}
	return response.OK(c, coupon)
}

func (h *CouponHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req service.UpdateCouponInput
	if err := c.BodyParser(&req); err != nil {
		return rejectBody(c, errBadBody)
	}

	coupon, err := h.svc.Update(c.UserContext(), id, &req)
	if err != nil {
		return writeError(c, h.logger, "update coupon", err)
	}
	return response.OK(c, coupon)
}

func (h *CouponHandler) Deactivate(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.Deactivate(c.UserContext(), id); err != nil {
		return writeError(c, h.logger, "deactivate coupon", err)
	}
	return response.Message(c, "coupon deactivated")
}

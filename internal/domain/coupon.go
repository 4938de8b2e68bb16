package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID                int64        `json:"id"`
	Code              string       `json:"code"`
	Description       string       `json:"description,omitempty"`
	DiscountType      DiscountType `json:"discount_type"`
	DiscountValue     int64        `json:"discount_value"`
	MinOrderAmount    int64        `json:"min_order_amount"`
	MaxDiscountAmount *int64       `json:"max_discount_amount,omitempty"`
	UsageLimit        *int         `json:"usage_limit,omitempty"`
	TimesUsed         int          `json:"times_used"`
	IsActive          bool         `json:"is_active"`
	StartsAt          *time.Time   `json:"starts_at,omitempty"`
	ExpiresAt         *time.Time   `json:"expires_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// CouponUsage records one redemption of a coupon on one order.
type CouponUsage struct {
	ID             int64     `json:"id"`
	CouponID       int64     `json:"coupon_id"`
	UserID         int64     `json:"user_id"`
	OrderID        int64     `json:"order_id"`
	DiscountAmount int64     `json:"discount_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the coupon definition itself, not its applicability.
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidCoupon)
	}

	switch c.DiscountType {
	case DiscountPercentage:
		if c.DiscountValue <= 0 || c.DiscountValue > 100 {
			return fmt.Errorf("%w: percentage must be between 1 and 100", ErrInvalidCoupon)
		}
	case DiscountFixed:
		if c.DiscountValue <= 0 {
			return fmt.Errorf("%w: fixed discount must be positive", ErrInvalidCoupon)
		}
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrInvalidCoupon, c.DiscountType)
	}

	if c.MinOrderAmount < 0 {
		return fmt.Errorf("%w: min order amount must not be negative", ErrInvalidCoupon)
	}
	if c.MaxDiscountAmount != nil && *c.MaxDiscountAmount < 0 {
		return fmt.Errorf("%w: max discount must not be negative", ErrInvalidCoupon)
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return fmt.Errorf("%w: usage limit must not be negative", ErrInvalidCoupon)
	}
	if c.StartsAt != nil && c.ExpiresAt != nil && c.ExpiresAt.Before(*c.StartsAt) {
		return fmt.Errorf("%w: expiry is before start", ErrInvalidCoupon)
	}

	return nil
}

// CheckValidity returns why the coupon cannot be used at now, or nil.
func (c *Coupon) CheckValidity(now time.Time) error {
	if !c.IsActive {
		return ErrCouponInactive
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return ErrCouponNotStarted
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrCouponExpired
	}
	if c.UsageLimit != nil && c.TimesUsed >= *c.UsageLimit {
		return ErrCouponExhausted
	}
	return nil
}

func (c *Coupon) IsValidAt(now time.Time) bool {
	return c.CheckValidity(now) == nil
}

// CalculateDiscount returns the discount for orderAmount. Percentages round
// half away from zero. The result never exceeds MaxDiscountAmount nor the
// order amount.
func (c *Coupon) CalculateDiscount(orderAmount int64, now time.Time) (int64, error) {
	if err := c.CheckValidity(now); err != nil {
		return 0, err
	}
	if orderAmount < c.MinOrderAmount {
		return 0, fmt.Errorf("%w: minimum is %d", ErrCouponMinOrder, c.MinOrderAmount)
	}

	var discount int64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = decimal.NewFromInt(orderAmount).
			Mul(decimal.NewFromInt(c.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	case DiscountFixed:
		discount = c.DiscountValue
	default:
		return 0, fmt.Errorf("%w: unknown discount type %q", ErrInvalidCoupon, c.DiscountType)
	}

	if c.MaxDiscountAmount != nil && discount > *c.MaxDiscountAmount {
		discount = *c.MaxDiscountAmount
	}
	if discount > orderAmount {
		discount = orderAmount
	}
	if discount < 0 {
		discount = 0
	}

	return discount, nil
}

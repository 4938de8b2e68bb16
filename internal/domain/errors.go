package domain

import "errors"

var (
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrInvalidPaymentStatus = errors.New("invalid payment status transition")
	ErrOrderNotCancellable  = errors.New("order can no longer be cancelled")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrInvalidQuantity      = errors.New("quantity must be greater than zero")
	ErrInvalidOwner         = errors.New("invalid cart owner")
	ErrCouponInactive       = errors.New("coupon is not active")
	ErrCouponNotStarted     = errors.New("coupon is not yet valid")
	ErrCouponExpired        = errors.New("coupon has expired")
	ErrCouponExhausted      = errors.New("coupon usage limit reached")
	ErrCouponMinOrder       = errors.New("order amount is below the coupon minimum")
	ErrInvalidCoupon        = errors.New("invalid coupon definition")
	ErrVariantUnavailable   = errors.New("product variant is unavailable")
)

package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrAddressNotFound      = errors.New("address not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrVariantNotFound      = errors.New("variant not found")
	ErrImageNotFound        = errors.New("image not found")
	ErrSlugTaken            = errors.New("slug already taken")
	ErrSKUTaken             = errors.New("sku already taken")
	ErrCartNotFound         = errors.New("cart not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrCouponCodeTaken      = errors.New("coupon code already exists")
	ErrCouponAlreadyApplied = errors.New("coupon already applied to this order")
	ErrCouponUsageLimit     = errors.New("coupon usage limit reached")
	ErrGalleryItemNotFound  = errors.New("gallery item not found")
	ErrCustomizationMissing = errors.New("customization not found")
)

const uniqueViolation = "23505"

// isUniqueViolation reports a 23505 error, optionally on a given constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is disabled")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrCartChanged        = errors.New("cart changed, review it before checkout")
	ErrAddressRequired    = errors.New("shipping address is required")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidSignature   = errors.New("invalid payment signature")
	ErrPaymentNotRequired = errors.New("order does not need an online payment")
	ErrOrderAlreadyPaid   = errors.New("order is already paid")
	ErrOrderNotPayable    = errors.New("order can no longer be paid")
	ErrShipmentExists     = errors.New("shipment already created for this order")
	ErrNotShippable       = errors.New("order is not ready to ship")
	ErrInvalidWebhook     = errors.New("invalid webhook request")
	ErrGuestRequired      = errors.New("guest id is required")
)

package handler

import (
	"strings"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderRecorder counts order operations by outcome.
type OrderRecorder interface {
	OrderOperation(operation string, err error)
}

type OrderHandler struct {
	svc      service.OrderService
	metrics  OrderRecorder
	validate *validator.Validate
	logger   *zap.Logger
}

type shippingAddressRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,max=20"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=12"`
	Country    string `json:"country" validate:"max=100"`
}

type checkoutRequest struct {
	AddressID       *int64                  `json:"address_id" validate:"omitempty,gt=0"`
	ShippingAddress *shippingAddressRequest `json:"shipping_address" validate:"omitempty"`
	CouponCode      string                  `json:"coupon_code" validate:"max=50"`
	PaymentMethod   string                  `json:"payment_method" validate:"required,oneof=razorpay cod"`
	Notes           string                  `json:"notes" validate:"max=1000"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func NewOrderHandler(svc service.OrderService, metrics OrderRecorder, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req checkoutRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	input := service.CheckoutInput{
		AddressID:     req.AddressID,
		CouponCode:    strings.TrimSpace(req.CouponCode),
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
	}
	if a := req.ShippingAddress; a != nil {
		input.Shipping = &domain.ShippingAddress{
			Name:       a.Name,
			Phone:      a.Phone,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		}
	}

	order, err := h.svc.Checkout(c.UserContext(), userID, input)
	h.metrics.OrderOperation("checkout", err)
	if err != nil {
		return writeError(c, h.logger, "checkout", err)
	}

	mylogger.Info(c.UserContext(), h.logger, "order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total", order.TotalAmount),
	)

	return response.Created(c, order)
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)

	orders, total, err := h.svc.ListForUser(c.UserContext(), userID, limit, offset)
	if err != nil {
		return writeError(c, h.logger, "list orders", err)
	}
	return response.OK(c, paged(orders, total, limit, offset))
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	orderID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.svc.GetForUser(c.UserContext(), userID, orderID)
	if err != nil {
		return writeError(c, h.logger, "get order", err)
	}
	return response.OK(c, order)
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	orderID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.svc.Cancel(c.UserContext(), userID, orderID)
	h.metrics.OrderOperation("cancel", err)
	if err != nil {
		return writeError(c, h.logger, "cancel order", err)
	}
	return response.OK(c, order)
}

func (h *OrderHandler) AdminList(c *fiber.Ctx) error {
	limit, offset := page(c)

	filter := repository.OrderFilter{
		Status: domain.OrderStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "invalid status")
	}
	if raw := c.Query("user_id"); raw != "" {
		uid := int64(c.QueryInt("user_id"))
		if uid <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
		}
		filter.UserID = &uid
	}

	orders, total, err := h.svc.ListAll(c.UserContext(), filter)
	if err != nil {
		return writeError(c, h.logger, "list all orders", err)
	}
	return response.OK(c, paged(orders, total, limit, offset))
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	orderID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req statusRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	order, err := h.svc.UpdateStatus(c.UserContext(), orderID, domain.OrderStatus(req.Status))
	h.metrics.OrderOperation("update_status", err)
	if err != nil {
		return writeError(c, h.logger, "update order status", err)
	}
	return response.OK(c, order)
}

func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	orderID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.UserContext(), orderID); err != nil {
		return writeError(c, h.logger, "delete order", err)
	}
	return response.Message(c, "order deleted")
}

package handler

import (
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const razorpaySignatureHeader = "X-Razorpay-Signature"

type PaymentHandler struct {
	svc      service.PaymentService
	validate *validator.Validate
	logger   *zap.Logger
}

type createPaymentRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

func NewPaymentHandler(svc service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *PaymentHandler) CreateOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req createPaymentRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	po, err := h.svc.CreatePaymentOrder(c.UserContext(), userID, req.OrderID)
	if err != nil {
		return writeError(c, h.logger, "create payment order", err)
	}
	return response.OK(c, po)
}

func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req verifyPaymentRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	order, err := h.svc.Verify(c.UserContext(), userID, service.VerifyPaymentInput{
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		Signature:         req.RazorpaySignature,
	})
	if err != nil {
		return writeError(c, h.logger, "verify payment", err)
	}
	return response.OK(c, order)
}

// Webhook needs the raw body: the signature covers the exact bytes sent.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	signature := c.Get(razorpaySignatureHeader)
	if signature == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing signature")
	}

	body := append([]byte(nil), c.Body()...)
	if err := h.svc.HandleWebhook(c.UserContext(), body, signature); err != nil {
		mylogger.Warn(c.UserContext(), h.logger, "razorpay webhook rejected", zap.Error(err))
		return writeError(c, h.logger, "payment webhook", err)
	}
	return response.Message(c, "ok")
}

package handler

import (
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/shiprocket"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/transport/http/middleware"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const shiprocketTokenHeader = "x-api-key"

type ShippingHandler struct {
	svc      service.ShippingService
	validate *validator.Validate
	logger   *zap.Logger
}

type createShipmentRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

func NewShippingHandler(svc service.ShippingService, logger *zap.Logger) *ShippingHandler {
	return &ShippingHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *ShippingHandler) CreateShipment(c *fiber.Ctx) error {
	var req createShipmentRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	order, err := h.svc.CreateShipment(c.UserContext(), req.OrderID)
	if err != nil {
		return writeError(c, h.logger, "create shipment", err)
	}
	return response.Created(c, order)
}

func (h *ShippingHandler) Track(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	awb := c.Params("awb")
	if awb == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid awb")
	}

	tracking, err := h.svc.Track(c.UserContext(), userID, middleware.IsAdmin(c), awb)
	if err != nil {
		return writeError(c, h.logger, "track shipment", err)
	}
	return response.OK(c, tracking)
}

func (h *ShippingHandler) Webhook(c *fiber.Ctx) error {
	var payload shiprocket.WebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return rejectBody(c, errBadBody)
	}

	if err := h.svc.HandleWebhook(c.UserContext(), c.Get(shiprocketTokenHeader), payload); err != nil {
		return writeError(c, h.logger, "shipping webhook", err)
	}
	return response.Message(c, "ok")
}

package handler

import (
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/transport/http/middleware"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CartHandler serves both user and guest carts; OptionalAuth decides whose.
type CartHandler struct {
	svc      service.CartService
	validate *validator.Validate
	logger   *zap.Logger
}

type addItemRequest struct {
	ProductID       int64  `json:"product_id" validate:"required,gt=0"`
	VariantID       *int64 `json:"variant_id" validate:"omitempty,gt=0"`
	Quantity        int    `json:"quantity" validate:"required,gt=0,lte=100"`
	CustomizationID *int64 `json:"customization_id" validate:"omitempty,gt=0"`
}

type updateItemRequest struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"gte=0,lte=100"`
}

type mergeRequest struct {
	GuestID string `json:"guest_id" validate:"required,uuid"`
}

type guestResponse struct {
	GuestID string `json:"guest_id"`
	Header  string `json:"header"`
}

func NewCartHandler(svc service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
	}
}

func owner(c *fiber.Ctx) (domain.Owner, error) {
	o, ok := middleware.Owner(c)
	if !ok {
		return domain.Owner{}, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: missing cart owner")
	}
	return o, nil
}

func (h *CartHandler) NewGuest(c *fiber.Ctx) error {
	guest := h.svc.NewGuest()
	return response.Created(c, guestResponse{GuestID: guest.ID, Header: middleware.GuestHeader})
}

func (h *CartHandler) Get(c *fiber.Ctx) error {
	o, err := owner(c)
	if err != nil {
		return err
	}

	cart, err := h.svc.Get(c.UserContext(), o)
	if err != nil {
		return writeError(c, h.logger, "get cart", err)
	}
	return response.OK(c, cart)
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	o, err := owner(c)
	if err != nil {
		return err
	}

	var req addItemRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	cart, err := h.svc.AddItem(c.UserContext(), o, service.AddItemInput{
		ProductID:       req.ProductID,
		VariantID:       req.VariantID,
		Quantity:        req.Quantity,
		CustomizationID: req.CustomizationID,
	})
	if err != nil {
		return writeError(c, h.logger, "add cart item", err)
	}
	return response.OK(c, cart)
}

func (h *CartHandler) Update(c *fiber.Ctx) error {
	o, err := owner(c)
	if err != nil {
		return err
	}

	var req updateItemRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	cart, err := h.svc.UpdateItem(c.UserContext(), o, req.ItemID, req.Quantity)
	if err != nil {
		return writeError(c, h.logger, "update cart item", err)
	}
	return response.OK(c, cart)
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	o, err := owner(c)
	if err != nil {
		return err
	}

	itemID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	cart, err := h.svc.RemoveItem(c.UserContext(), o, itemID)
	if err != nil {
		return writeError(c, h.logger, "remove cart item", err)
	}
	return response.OK(c, cart)
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	o, err := owner(c)
	if err != nil {
		return err
	}

	cart, err := h.svc.Clear(c.UserContext(), o)
	if err != nil {
		return writeError(c, h.logger, "clear cart", err)
	}
	return response.OK(c, cart)
}

func (h *CartHandler) Validate(c *fiber.Ctx) error {
	o, err := owner(c)
	if err != nil {
		return err
	}

	res, err := h.svc.Validate(c.UserContext(), o)
	if err != nil {
		return writeError(c, h.logger, "validate cart", err)
	}
	return response.OK(c, res)
}

func (h *CartHandler) Sync(c *fiber.Ctx) error {
	o, err := owner(c)
	if err != nil {
		return err
	}

	var local domain.Cart
	if err := c.BodyParser(&local); err != nil {
		return rejectBody(c, errBadBody)
	}

	res, err := h.svc.Sync(c.UserContext(), o, &local)
	if err != nil {
		return writeError(c, h.logger, "sync cart", err)
	}
	if !res.Synced {
		mylogger.Warn(c.UserContext(), h.logger, "cart sync fell back to client copy", zap.String("owner", o.String()))
	}
	return response.OK(c, res)
}

func (h *CartHandler) Merge(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req mergeRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	cart, err := h.svc.Merge(c.UserContext(), userID, req.GuestID)
	if err != nil {
		return writeError(c, h.logger, "merge cart", err)
	}
	return response.OK(c, cart)
}

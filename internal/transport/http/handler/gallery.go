package handler

import (
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type GalleryHandler struct {
	svc      service.GalleryService
	validate *validator.Validate
	logger   *zap.Logger
}

type galleryItemRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	ImageURL string `json:"image_url" validate:"required,url"`
	Category string `json:"category" validate:"max=100"`
	Position int    `json:"position" validate:"gte=0"`
}

type customizationRequest struct {
	ProductID     int64  `json:"product_id" validate:"required,gt=0"`
	EngravingText string `json:"engraving_text" validate:"max=500"`
	Font          string `json:"font" validate:"max=100"`
	LogoURL       string `json:"logo_url" validate:"omitempty,url"`
	Notes         string `json:"notes" validate:"max=1000"`
}

func NewGalleryHandler(svc service.GalleryService, logger *zap.Logger) *GalleryHandler {
	return &GalleryHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *GalleryHandler) List(c *fiber.Ctx) error {
	items, err := h.svc.List(c.UserContext(), c.Query("category"))
	if err != nil {
		return writeError(c, h.logger, "list gallery", err)
	}
	return response.OK(c, items)
}

func (h *GalleryHandler) Create(c *fiber.Ctx) error {
	var req galleryItemRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	item, err := h.svc.Create(c.UserContext(), &domain.GalleryItem{
		Title:    req.Title,
		ImageURL: req.ImageURL,
		Category: req.Category,
		Position: req.Position,
	})
	if err != nil {
		return writeError(c, h.logger, "create gallery item", err)
	}
	return response.Created(c, item)
}

func (h *GalleryHandler) Delete(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.UserContext(), id); err != nil {
		return writeError(c, h.logger, "delete gallery item", err)
	}
	return response.Message(c, "gallery item deleted")
}

func (h *GalleryHandler) SubmitCustomization(c *fiber.Ctx) error {
	o, err := owner(c)
	if err != nil {
		return err
	}

	var req customizationRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	cz, err := h.svc.SubmitCustomization(c.UserContext(), o, &domain.Customization{
		ProductID:     req.ProductID,
		EngravingText: req.EngravingText,
		Font:          req.Font,
		LogoURL:       req.LogoURL,
		Notes:         req.Notes,
	})
	if err != nil {
		return writeError(c, h.logger, "submit customization", err)
	}
	return response.Created(c, cz)
}

func (h *GalleryHandler) ListCustomizations(c *fiber.Ctx) error {
	limit, offset := page(c)

	items, total, err := h.svc.ListCustomizations(c.UserContext(), limit, offset)
	if err != nil {
		return writeError(c, h.logger, "list customizations", err)
	}
	return response.OK(c, paged(items, total, limit, offset))
}

package handler

import (
	"strings"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ProductHandler struct {
	svc      service.ProductService
	validate *validator.Validate
	logger   *zap.Logger
}

type variantRequest struct {
	Size     string `json:"size" validate:"required,max=50"`
	SKU      string `json:"sku" validate:"required,max=64"`
	Price    int64  `json:"price" validate:"gt=0"`
	Stock    int    `json:"stock" validate:"gte=0"`
	IsActive *bool  `json:"is_active"`
}

func (r variantRequest) toDomain() domain.ProductVariant {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return domain.ProductVariant{
		Size:     strings.TrimSpace(r.Size),
		SKU:      strings.TrimSpace(r.SKU),
		Price:    r.Price,
		Stock:    r.Stock,
		IsActive: active,
	}
}

type imageRequest struct {
	URL string `json:"url" validate:"required,url"`
	Alt string `json:"alt" validate:"max=200"`
}

type createProductRequest struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description"`
	Category    string           `json:"category" validate:"max=100"`
	Material    string           `json:"material" validate:"max=100"`
	BasePrice   int64            `json:"base_price" validate:"gt=0"`
	Variants    []variantRequest `json:"variants" validate:"dive"`
	Images      []imageRequest   `json:"images" validate:"dive"`
}

type featuredRequest struct {
	Featured bool `json:"featured"`
}

func NewProductHandler(svc service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	limit, offset := page(c)

	filter := domain.ProductFilter{
		Category: c.Query("category"),
		Material: c.Query("material"),
		Search:   c.Query("search"),
		Limit:    limit,
		Offset:   offset,
	}
	if f := c.Query("featured"); f != "" {
		featured := c.QueryBool("featured")
		filter.Featured = &featured
	}

	products, total, err := h.svc.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, h.logger, "list products", err)
	}

	return response.OK(c, paged(products, total, limit, offset))
}

func (h *ProductHandler) Featured(c *fiber.Ctx) error {
	product, err := h.svc.GetFeatured(c.UserContext())
	if err != nil {
		return writeError(c, h.logger, "get featured product", err)
	}
	return response.OK(c, product)
}

func (h *ProductHandler) GetBySlug(c *fiber.Ctx) error {
	product, err := h.svc.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return writeError(c, h.logger, "get product", err)
	}
	return response.OK(c, product)
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var req createProductRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	input := service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Material:    req.Material,
		BasePrice:   req.BasePrice,
	}
	for _, v := range req.Variants {
		input.Variants = append(input.Variants, v.toDomain())
	}
	for _, img := range req.Images {
		input.Images = append(input.Images, domain.ProductImage{URL: img.URL, Alt: img.Alt})
	}

	product, err := h.svc.Create(c.UserContext(), input)
	if err != nil {
		return writeError(c, h.logger, "create product", err)
	}

	mylogger.Info(c.UserContext(), h.logger, "product created", zap.Int64("product_id", product.ID), zap.String("slug", product.Slug))

	return response.Created(c, product)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req domain.UpdateProductInput
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	product, err := h.svc.Update(c.UserContext(), id, &req)
	if err != nil {
		return writeError(c, h.logger, "update product", err)
	}
	return response.OK(c, product)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.UserContext(), id); err != nil {
		return writeError(c, h.logger, "delete product", err)
	}
	return response.Message(c, "product deleted")
}

func (h *ProductHandler) SetFeatured(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	req := featuredRequest{Featured: true}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return rejectBody(c, errBadBody)
		}
	}

	product, err := h.svc.SetFeatured(c.UserContext(), id, req.Featured)
	if err != nil {
		return writeError(c, h.logger, "set featured product", err)
	}
	return response.OK(c, product)
}

func (h *ProductHandler) AddVariant(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req variantRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	variant := req.toDomain()
	product, err := h.svc.AddVariant(c.UserContext(), id, &variant)
	if err != nil {
		return writeError(c, h.logger, "add variant", err)
	}
	return response.Created(c, product)
}

func (h *ProductHandler) DeleteVariant(c *fiber.Ctx) error {
	id, err := idParam(c, "variantId")
	if err != nil {
		return err
	}

	product, err := h.svc.DeleteVariant(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, "delete variant", err)
	}
	return response.OK(c, product)
}

func (h *ProductHandler) AddImage(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req imageRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	product, err := h.svc.AddImage(c.UserContext(), id, &domain.ProductImage{URL: req.URL, Alt: req.Alt})
	if err != nil {
		return writeError(c, h.logger, "add image", err)
	}
	return response.Created(c, product)
}

func (h *ProductHandler) SetPrimaryImage(c *fiber.Ctx) error {
	id, err := idParam(c, "imageId")
	if err != nil {
		return err
	}

	product, err := h.svc.SetPrimaryImage(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, "set primary image", err)
	}
	return response.OK(c, product)
}

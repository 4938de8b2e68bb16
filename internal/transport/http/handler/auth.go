package handler

import (
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	svc      service.AuthService
	validate *validator.Validate
	logger   *zap.Logger
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

type addressRequest struct {
	FullName   string `json:"full_name" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,max=20"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=12"`
	Country    string `json:"country" validate:"max=100"`
	IsDefault  bool   `json:"is_default"`
}

func NewAuthHandler(svc service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	res, err := h.svc.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		return writeError(c, h.logger, "register", err)
	}

	return response.Created(c, res)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	res, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.logger, "login", err)
	}

	mylogger.Info(c.UserContext(), h.logger, "login succeeded", zap.Int64("user_id", res.User.ID))

	return response.OK(c, res)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	user, err := h.svc.Me(c.UserContext(), userID)
	if err != nil {
		return writeError(c, h.logger, "get me", err)
	}

	return response.OK(c, user)
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	user, err := h.svc.UpdateProfile(c.UserContext(), userID, &domain.UpdateProfileInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, h.logger, "update profile", err)
	}

	return response.OK(c, user)
}

func (h *AuthHandler) ListAddresses(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	addresses, err := h.svc.ListAddresses(c.UserContext(), userID)
	if err != nil {
		return writeError(c, h.logger, "list addresses", err)
	}

	return response.OK(c, addresses)
}

func (h *AuthHandler) AddAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req addressRequest
	if err := bind(c, h.validate, &req); err != nil {
		return rejectBody(c, err)
	}

	addr, err := h.svc.AddAddress(c.UserContext(), userID, &domain.Address{
		FullName:   req.FullName,
		Phone:      req.Phone,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		return writeError(c, h.logger, "add address", err)
	}

	return response.Created(c, addr)
}

func (h *AuthHandler) SetDefaultAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	addressID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.SetDefaultAddress(c.UserContext(), userID, addressID); err != nil {
		return writeError(c, h.logger, "set default address", err)
	}

	return response.Message(c, "default address updated")
}

func (h *AuthHandler) DeleteAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	addressID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.DeleteAddress(c.UserContext(), userID, addressID); err != nil {
		return writeError(c, h.logger, "delete address", err)
	}

	return response.Message(c, "address deleted")
}

package handler

import (
	"errors"
	"strconv"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/transport/http/middleware"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var errBadBody = errors.New("cannot parse JSON body")

// bind parses the JSON body into out and validates it.
func bind(c *fiber.Ctx, v *validator.Validate, out any) error {
	if err := c.BodyParser(out); err != nil {
		return errBadBody
	}
	return v.Struct(out)
}

func rejectBody(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return response.ValidationFailed(c, utils.FormatValidationError(err))
	}
	return response.Fail(c, fiber.StatusBadRequest, response.CodeBadRequest, err.Error())
}

// idParam returns a *fiber.Error for the app error handler to render.
func idParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// page reads ?page=&limit= (page is 1-based) into limit and offset.
func page(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	p := c.QueryInt("page", 1)
	if p < 1 {
		p = 1
	}
	return limit, (p - 1) * limit
}

type pageResult struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func paged(items any, total int64, limit, offset int) pageResult {
	return pageResult{Items: items, Total: total, Page: offset/limit + 1, Limit: limit}
}

func currentUser(c *fiber.Ctx) (int64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: missing user")
	}
	return id, nil
}

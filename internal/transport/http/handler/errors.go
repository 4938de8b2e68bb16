package handler

import (
	"errors"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/upstream"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type errorMapping struct {
	status int
	code   string
}

var (
	notFound     = errorMapping{fiber.StatusNotFound, response.CodeNotFound}
	conflict     = errorMapping{fiber.StatusConflict, response.CodeConflict}
	badRequest   = errorMapping{fiber.StatusBadRequest, response.CodeBadRequest}
	validation   = errorMapping{fiber.StatusBadRequest, response.CodeValidation}
	unauthorized = errorMapping{fiber.StatusUnauthorized, response.CodeUnauthorized}
	forbidden    = errorMapping{fiber.StatusForbidden, response.CodeForbidden}
)

var knownErrors = []struct {
	err error
	to  errorMapping
}{
	{repository.ErrUserNotFound, notFound},
	{repository.ErrAddressNotFound, notFound},
	{repository.ErrProductNotFound, notFound},
	{repository.ErrVariantNotFound, notFound},
	{repository.ErrImageNotFound, notFound},
	{repository.ErrCartNotFound, notFound},
	{repository.ErrOrderNotFound, notFound},
	{repository.ErrCouponNotFound, notFound},
	{repository.ErrGalleryItemNotFound, notFound},
	{repository.ErrCustomizationMissing, notFound},
	{domain.ErrCartItemNotFound, notFound},

	{repository.ErrUserAlreadyExists, conflict},
	{repository.ErrSlugTaken, conflict},
	{repository.ErrSKUTaken, conflict},
	{repository.ErrCouponCodeTaken, conflict},
	{repository.ErrCouponAlreadyApplied, conflict},
	{service.ErrShipmentExists, conflict},
	{service.ErrOrderAlreadyPaid, conflict},
	{service.ErrCartChanged, conflict},

	{utils.ErrPasswordTooShort, validation},
	{utils.ErrPasswordTooWeak, validation},
	{domain.ErrInvalidQuantity, validation},
	{domain.ErrInvalidCoupon, validation},
	{service.ErrAddressRequired, validation},

	{domain.ErrInvalidOwner, badRequest},
	{domain.ErrInvalidTransition, badRequest},
	{domain.ErrInvalidPaymentStatus, badRequest},
	{domain.ErrOrderNotCancellable, badRequest},
	{domain.ErrVariantUnavailable, badRequest},
	{domain.ErrCouponInactive, badRequest},
	{domain.ErrCouponNotStarted, badRequest},
	{domain.ErrCouponExpired, badRequest},
	{domain.ErrCouponExhausted, badRequest},
	{domain.ErrCouponMinOrder, badRequest},
	{service.ErrProductUnavailable, badRequest},
	{service.ErrCartEmpty, badRequest},
	{service.ErrPaymentNotRequired, badRequest},
	{service.ErrOrderNotPayable, badRequest},
	{service.ErrNotShippable, badRequest},
	{service.ErrInvalidSignature, badRequest},
	{service.ErrInvalidWebhook, badRequest},
	{service.ErrGuestRequired, badRequest},

	{service.ErrInvalidCredentials, unauthorized},
	{service.ErrUserInactive, forbidden},

	{upstream.ErrUnavailable, errorMapping{fiber.StatusServiceUnavailable, response.CodeUnavailable}},
	{upstream.ErrUpstream, errorMapping{fiber.StatusBadGateway, response.CodeUpstream}},
}

// writeError maps a service error to its status code. Unknown errors are
// logged and reported as 500 without details.
func writeError(c *fiber.Ctx, logger *zap.Logger, op string, err error) error {
	for _, k := range knownErrors {
		if errors.Is(err, k.err) {
			if k.to.status >= fiber.StatusInternalServerError {
				mylogger.Warn(c.UserContext(), logger, op+" failed", zap.Int("http_code", k.to.status), zap.Error(err))
			}
			return response.Fail(c, k.to.status, k.to.code, err.Error())
		}
	}

	mylogger.Error(c.UserContext(), logger, op+" failed", zap.Error(err))
	return response.Fail(c, fiber.StatusInternalServerError, response.CodeInternal, "internal server error")
}

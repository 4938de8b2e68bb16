package middleware

import (
	"errors"
	"strings"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const GuestHeader = "X-Guest-ID"

const (
	localUserID = "userId"
	localRole   = "role"
	localOwner  = "owner"
)

var errNoToken = errors.New("missing bearer token")

func bearer(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", errNoToken
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

func authenticate(c *fiber.Ctx, secret, token string) bool {
	claims, err := utils.ValidateToken(secret, token)
	if err != nil || claims.UserID <= 0 {
		return false
	}

	c.Locals(localUserID, claims.UserID)
	c.Locals(localRole, claims.Role)
	c.Locals(localOwner, domain.UserOwner(claims.UserID))
	return true
}

// RequireAuth rejects requests without a valid access token. The 401 carries
// the UNAUTHORIZED code so clients drop the stored token.
func RequireAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearer(c)
		if err != nil {
			return response.Fail(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized: "+err.Error())
		}

		if !authenticate(c, secret, token) {
			return response.Fail(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized: invalid token")
		}

		return c.Next()
	}
}

// OptionalAuth resolves the cart owner: the token's user when present,
// otherwise the guest named by X-Guest-ID.
func OptionalAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearer(c)
		switch {
		case err == nil:
			if !authenticate(c, secret, token) {
				return response.Fail(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized: invalid token")
			}
			return c.Next()
		case !errors.Is(err, errNoToken):
			return response.Fail(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized: "+err.Error())
		}

		guestID := strings.TrimSpace(c.Get(GuestHeader))
		if _, err := uuid.Parse(guestID); err != nil {
			return response.Fail(c, fiber.StatusBadRequest, response.CodeBadRequest, GuestHeader+" header must be a valid UUID")
		}

		c.Locals(localOwner, domain.GuestOwner(guestID))
		return c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsAdmin(c) {
			return response.Fail(c, fiber.StatusForbidden, response.CodeForbidden, "admin access required")
		}
		return c.Next()
	}
}

func UserID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(localUserID).(int64)
	return id, ok && id > 0
}

func IsAdmin(c *fiber.Ctx) bool {
	role, _ := c.Locals(localRole).(string)
	return role == string(domain.RoleAdmin)
}

func Owner(c *fiber.Ctx) (domain.Owner, bool) {
	owner, ok := c.Locals(localOwner).(domain.Owner)
	return owner, ok
}

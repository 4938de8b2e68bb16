package http

import (
	"strings"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/transport/http/handler"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/transport/http/middleware"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/config"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/response"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Coupon   *handler.CouponHandler
	Order    *handler.OrderHandler
	Payment  *handler.PaymentHandler
	Shipping *handler.ShippingHandler
	Gallery  *handler.GalleryHandler
}

// NewApp builds the fiber app with the global middleware chain. metrics may
// be nil.
func NewApp(cfg config.HTTP, lim config.Limiter, metrics *middleware.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "mytradeaward-api",
		ErrorHandler: response.ErrorHandler,
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: strings.Join([]string{
			fiber.HeaderOrigin,
			fiber.HeaderContentType,
			fiber.HeaderAccept,
			fiber.HeaderAuthorization,
			middleware.GuestHeader,
		}, ", "),
	}))

	if metrics != nil {
		app.Use(metrics.Handler())
	}

	app.Use(limiter.New(limiter.Config{
		Max:        lim.Max,
		Expiration: lim.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Fail(c, fiber.StatusTooManyRequests, response.CodeRateLimited, "Too many requests. Try again later.")
		},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return app
}

func RegisterRoutes(app *fiber.App, h *Handlers, jwtSecret string) {
	requireAuth := middleware.RequireAuth(jwtSecret)
	optionalAuth := middleware.OptionalAuth(jwtSecret)
	admin := []fiber.Handler{requireAuth, middleware.RequireAdmin()}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Get("/me", requireAuth, h.Auth.Me)
	auth.Put("/me", requireAuth, h.Auth.UpdateProfile)

	users := api.Group("/users", requireAuth)
	users.Get("/addresses", h.Auth.ListAddresses)
	users.Post("/addresses", h.Auth.AddAddress)
	users.Put("/addresses/:id/default", h.Auth.SetDefaultAddress)
	users.Delete("/addresses/:id", h.Auth.DeleteAddress)

	products := api.Group("/products")
	products.Get("", h.Product.List)
	products.Get("/featured", h.Product.Featured)

	productAdmin := products.Group("/admin", admin...)
	productAdmin.Post("", h.Product.Create)
	productAdmin.Delete("/variants/:variantId", h.Product.DeleteVariant)
	productAdmin.Put("/images/:imageId/primary", h.Product.SetPrimaryImage)
	productAdmin.Put("/:id", h.Product.Update)
	productAdmin.Delete("/:id", h.Product.Delete)
	productAdmin.Put("/:id/featured", h.Product.SetFeatured)
	productAdmin.Post("/:id/variants", h.Product.AddVariant)
	productAdmin.Post("/:id/images", h.Product.AddImage)

	products.Get("/:slug", h.Product.GetBySlug)

	// Registered ahead of the cart group so its owner middleware does not run.
	api.Post("/cart/guest", h.Cart.NewGuest)
	api.Post("/cart/merge", requireAuth, h.Cart.Merge)
	cart := api.Group("/cart", optionalAuth)
	cart.Get("", h.Cart.Get)
	cart.Post("/add", h.Cart.Add)
	cart.Put("/update", h.Cart.Update)
	cart.Delete("/remove/:id", h.Cart.Remove)
	cart.Delete("/clear", h.Cart.Clear)
	cart.Post("/validate", h.Cart.Validate)
	cart.Post("/sync", h.Cart.Sync)

	api.Post("/coupons/validate", requireAuth, h.Coupon.Validate)

	orders := api.Group("/orders", requireAuth)
	orders.Post("", h.Order.Checkout)
	orders.Get("", h.Order.List)

	orderAdmin := orders.Group("/admin", middleware.RequireAdmin())
	orderAdmin.Get("/all", h.Order.AdminList)
	orderAdmin.Put("/:id/status", h.Order.UpdateStatus)
	orderAdmin.Delete("/:id", h.Order.Delete)

	orders.Get("/:id", h.Order.Get)
	orders.Post("/:id/cancel", h.Order.Cancel)

	payments := api.Group("/payments")
	payments.Post("/webhook", h.Payment.Webhook)
	payments.Post("/create-order", requireAuth, h.Payment.CreateOrder)
	payments.Post("/verify", requireAuth, h.Payment.Verify)

	shipping := api.Group("/shiprocket")
	shipping.Post("/webhook", h.Shipping.Webhook)
	shipping.Post("/create-shipment", append(admin, h.Shipping.CreateShipment)...)
	shipping.Get("/track/:awb", requireAuth, h.Shipping.Track)

	api.Get("/gallery", h.Gallery.List)
	api.Post("/customizations", optionalAuth, h.Gallery.SubmitCustomization)

	adminGroup := api.Group("/admin", admin...)
	adminGroup.Get("/coupons", h.Coupon.List)
	adminGroup.Post("/coupons", h.Coupon.Create)
	adminGroup.Get("/coupons/:id", h.Coupon.Get)
	adminGroup.Put("/coupons/:id", h.Coupon.Update)
	adminGroup.Delete("/coupons/:id", h.Coupon.Deactivate)
	adminGroup.Post("/gallery", h.Gallery.Create)
	adminGroup.Delete("/gallery/:id", h.Gallery.Delete)
	adminGroup.Get("/customizations", h.Gallery.ListCustomizations)
}

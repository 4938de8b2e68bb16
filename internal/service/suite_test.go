package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/razorpay"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/shiprocket"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/kafka"
	outboxRepository "github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/worker"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/testsuite"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const (
	orderTopic     = "order_events"
	webhookToken   = "ship-hook"
	razorpaySecret = "key_secret"
	razorpayHook   = "hook_secret"
)

type IntegrationTestSuite struct {
	testsuite.BaseSuite

	AuthService     service.AuthService
	ProductService  service.ProductService
	CartService     service.CartService
	CouponService   service.CouponService
	OrderService    service.OrderService
	PaymentService  service.PaymentService
	ShippingService service.ShippingService
	GalleryService  service.GalleryService

	Producer      kafka.Producer
	Relay         *worker.Relay
	relayCancel   context.CancelFunc
	razorpaySrv   *httptest.Server
	shiprocketSrv *httptest.Server
	razorpayCalls atomic.Int32
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.SetupInfrastructure("../../migrations", testsuite.Options{Kafka: true, Redis: true})

	s.razorpaySrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := s.razorpayCalls.Add(1)

		var req struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_rzp" + string(rune('A'+n)),
			"amount":   req.Amount,
			"currency": req.Currency,
			"receipt":  req.Receipt,
			"status":   "created",
		})
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/external/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token":"tok"}`))
	})
	mux.HandleFunc("/v1/external/orders/create/adhoc", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"order_id":991,"shipment_id":1771,"status":"NEW","awb_code":"AWB123","courier_name":"Delhivery"}`))
	})
	mux.HandleFunc("/v1/external/courier/track/awb/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tracking_data":{"track_status":1,"shipment_track":[{"awb_code":"AWB123","current_status":"IN TRANSIT","courier_name":"Delhivery"}],"shipment_track_activities":[]}}`))
	})
	s.shiprocketSrv = httptest.NewServer(mux)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.razorpaySrv != nil {
		s.razorpaySrv.Close()
	}
	if s.shiprocketSrv != nil {
		s.shiprocketSrv.Close()
	}
	s.TearDownInfrastructure()
}

func (s *IntegrationTestSuite) SetupTest() {
	s.TruncateTable(
		"users", "user_addresses",
		"products", "product_images", "product_variants", "product_customizations", "galleries",
		"carts", "cart_items",
		"coupons", "coupon_usages",
		"orders", "order_items",
		"outbox", "processed_events",
	)
	s.Require().NoError(s.Redis.FlushAll(s.Ctx).Err())

	logger := zap.NewNop()

	userRepo := repository.NewUserRepository(s.DbPool, logger)
	productRepo := repository.NewProductRepository(s.DbPool, logger)
	cartRepo := repository.NewCartRepository(s.DbPool, logger)
	couponRepo := repository.NewCouponRepository(s.DbPool, logger)
	orderRepo := repository.NewOrderRepository(s.DbPool, logger)
	galleryRepo := repository.NewGalleryRepository(s.DbPool, logger)
	customizationRepo := repository.NewCustomizationRepository(s.DbPool, logger)
	outboxRepo := outboxRepository.NewOutboxRepository()

	s.AuthService = service.NewAuthService(s.DbPool, userRepo, service.AuthConfig{Secret: "test-secret", TokenTTL: time.Hour}, logger)
	s.ProductService = service.NewCachedProductService(
		service.NewProductService(s.DbPool, productRepo, logger),
		s.Redis,
		time.Minute,
		logger,
	)
	s.CartService = service.NewCartService(s.DbPool, cartRepo, productRepo, logger)
	s.CouponService = service.NewCouponService(couponRepo, logger)
	s.OrderService = service.NewOrderService(s.DbPool, service.OrderDeps{
		OrderRepo:   orderRepo,
		CartRepo:    cartRepo,
		ProductRepo: productRepo,
		CouponRepo:  couponRepo,
		UserRepo:    userRepo,
		OutboxRepo:  outboxRepo,
		Topic:       orderTopic,
		Pricing:     domain.Pricing{TaxRatePercent: 18, ShippingFee: 9900, FreeShippingThreshold: 200000},
	}, logger)

	rzp := razorpay.NewClient(razorpay.Config{
		BaseURL:       s.razorpaySrv.URL,
		KeyID:         "rzp_test_key",
		KeySecret:     razorpaySecret,
		WebhookSecret: razorpayHook,
		Timeout:       2 * time.Second,
	}, logger)
	s.PaymentService = service.NewPaymentService(s.DbPool, service.PaymentDeps{
		OrderRepo:  orderRepo,
		UserRepo:   userRepo,
		OutboxRepo: outboxRepo,
		Gateway:    rzp,
		Topic:      orderTopic,
	}, logger)

	ship := shiprocket.NewClient(shiprocket.Config{
		BaseURL:        s.shiprocketSrv.URL,
		Email:          "ops@mytradeaward.com",
		Password:       "secret",
		PickupLocation: "Primary",
		Timeout:        2 * time.Second,
	}, logger)
	s.ShippingService = service.NewShippingService(s.DbPool, service.ShippingDeps{
		OrderRepo:    orderRepo,
		UserRepo:     userRepo,
		OutboxRepo:   outboxRepo,
		Courier:      ship,
		Topic:        orderTopic,
		WebhookToken: webhookToken,
	}, logger)

	s.GalleryService = service.NewGalleryService(galleryRepo, customizationRepo, productRepo, logger)

	var err error
	s.Producer, err = kafka.NewProducer(s.KafkaBrokers)
	s.Require().NoError(err, "failed to create kafka producer")

	s.Relay = worker.NewRelay(s.DbPool, outboxRepo, s.Producer, logger)

	relayCtx, cancel := context.WithCancel(s.Ctx)
	s.relayCancel = cancel
	go s.Relay.Start(relayCtx)
}

func (s *IntegrationTestSuite) TearDownTest() {
	if s.relayCancel != nil {
		s.relayCancel()
	}
	if s.Producer != nil {
		_ = s.Producer.Close()
	}
}

func (s *IntegrationTestSuite) registerUser(email string) *domain.User {
	res, err := s.AuthService.Register(s.Ctx, service.RegisterInput{
		Email:    email,
		Password: "plaque2024",
		Name:     "Asha Rao",
		Phone:    "9876543210",
	})
	s.Require().NoError(err)

	_, err = s.AuthService.AddAddress(s.Ctx, res.User.ID, &domain.Address{
		FullName:   "Asha Rao",
		Phone:      "9876543210",
		Line1:      "12 MG Road",
		City:       "Pune",
		State:      "MH",
		PostalCode: "411001",
	})
	s.Require().NoError(err)

	return res.User
}

// createProduct adds an active product with one variant priced at price paise.
func (s *IntegrationTestSuite) createProduct(name string, price int64) (*domain.Product, int64) {
	p, err := s.ProductService.Create(s.Ctx, service.CreateProductInput{
		Name:      name,
		Category:  "awards",
		Material:  "wood",
		BasePrice: price,
		Variants: []domain.ProductVariant{
			{Size: "8x10", SKU: domain.Slugify(name) + "-8x10", Price: price, Stock: 10, IsActive: true},
		},
		Images: []domain.ProductImage{{URL: "https://cdn.example.com/" + domain.Slugify(name) + ".jpg"}},
	})
	s.Require().NoError(err)
	s.Require().Len(p.Variants, 1)

	return p, p.Variants[0].ID
}

func (s *IntegrationTestSuite) fillCart(userID int64, price int64, qty int) {
	p, variantID := s.createProduct("Plaque "+time.Now().Format("150405.000000"), price)
	_, err := s.CartService.AddItem(s.Ctx, domain.UserOwner(userID), service.AddItemInput{
		ProductID: p.ID,
		VariantID: &variantID,
		Quantity:  qty,
	})
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) checkout(userID int64, method domain.PaymentMethod, coupon string) *domain.Order {
	order, err := s.OrderService.Checkout(s.Ctx, userID, service.CheckoutInput{
		PaymentMethod: method,
		CouponCode:    coupon,
	})
	s.Require().NoError(err)
	return order
}

func (s *IntegrationTestSuite) outboxEvents(orderID int64) []string {
	rows, err := s.DbPool.Query(s.Ctx, `
		SELECT event_type
		FROM outbox
		WHERE aggregate_type = 'order' AND aggregate_id = $1
		ORDER BY id
	`, strconv.FormatInt(orderID, 10))
	s.Require().NoError(err)
	defer rows.Close()

	var events []string
	for rows.Next() {
		var ev string
		s.Require().NoError(rows.Scan(&ev))
		events = append(events, ev)
	}
	s.Require().NoError(rows.Err())

	return events
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration tests need docker")
	}
	suite.Run(t, new(IntegrationTestSuite))
}

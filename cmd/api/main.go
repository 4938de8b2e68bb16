package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/razorpay"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/shiprocket"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	httptransport "github.com/abhirajkale-hub/plaque-e-com-sub001/internal/transport/http"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/transport/http/handler"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/transport/http/middleware"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/config"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/db"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/kafka"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	outboxRepository "github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/worker"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	logger, err := config.NewLogger(config.LoggerConfig{
		Level:   cfg.LogLevel,
		Env:     cfg.Env,
		Service: "api",
	})
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT secret is not configured")
	}

	tp, err := utils.InitTracer(ctx, utils.TracerConfig{
		ServiceName: "mytradeaward-api",
		Endpoint:    cfg.Tracing.Endpoint,
		Env:         cfg.Env,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Fatal("Failed to init tracer", zap.Error(err))
	}

	if cfg.Postgres.Migrate {
		if err := db.Migrate(cfg.Postgres.MigrationsURL, cfg.Postgres.URL); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres.URL, db.Options{
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		PingAttempts:    cfg.Postgres.PingAttempts,
	})
	if err != nil {
		logger.Fatal("Failed to create pool", zap.Error(err))
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	defer func() {
		_ = redisClient.Close()
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		mylogger.Warn(ctx, logger, "Redis unreachable, product cache will miss", zap.Error(err))
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		logger.Fatal("Error creating kafka producer", zap.Error(err))
	}
	defer func() {
		_ = producer.Close()
	}()

	userRepo := repository.NewUserRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	galleryRepo := repository.NewGalleryRepository(pool, logger)
	customizationRepo := repository.NewCustomizationRepository(pool, logger)
	outboxRepo := outboxRepository.NewOutboxRepository()

	relay := worker.NewRelay(pool, outboxRepo, producer, logger)
	go relay.Start(ctx)

	gateway := razorpay.NewClient(razorpay.Config{
		BaseURL:       cfg.Razorpay.BaseURL,
		KeyID:         cfg.Razorpay.KeyID,
		KeySecret:     cfg.Razorpay.KeySecret,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
		Timeout:       cfg.Razorpay.Timeout,
	}, logger)

	courier := shiprocket.NewClient(shiprocket.Config{
		BaseURL:        cfg.Shiprocket.BaseURL,
		Email:          cfg.Shiprocket.Email,
		Password:       cfg.Shiprocket.Password,
		PickupLocation: cfg.Shiprocket.PickupLocation,
		Timeout:        cfg.Shiprocket.Timeout,
	}, logger)

	authService := service.NewAuthService(pool, userRepo, service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		TokenTTL: cfg.JWT.TokenTTL,
	}, logger)
	productService := service.NewCachedProductService(
		service.NewProductService(pool, productRepo, logger),
		redisClient,
		cfg.Redis.CacheTTL,
		logger,
	)
	cartService := service.NewCartService(pool, cartRepo, productRepo, logger)
	couponService := service.NewCouponService(couponRepo, logger)
	orderService := service.NewOrderService(pool, service.OrderDeps{
		OrderRepo:   orderRepo,
		CartRepo:    cartRepo,
		ProductRepo: productRepo,
		CouponRepo:  couponRepo,
		UserRepo:    userRepo,
		OutboxRepo:  outboxRepo,
		Topic:       cfg.Kafka.OrderTopic,
		Pricing: domain.Pricing{
			TaxRatePercent:        cfg.Checkout.TaxRatePercent,
			ShippingFee:           cfg.Checkout.ShippingFee,
			FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
		},
	}, logger)
	paymentService := service.NewPaymentService(pool, service.PaymentDeps{
		OrderRepo:  orderRepo,
		UserRepo:   userRepo,
		OutboxRepo: outboxRepo,
		Gateway:    gateway,
		Topic:      cfg.Kafka.OrderTopic,
		Currency:   cfg.Checkout.Currency,
	}, logger)
	shippingService := service.NewShippingService(pool, service.ShippingDeps{
		OrderRepo:    orderRepo,
		UserRepo:     userRepo,
		OutboxRepo:   outboxRepo,
		Courier:      courier,
		Topic:        cfg.Kafka.OrderTopic,
		WebhookToken: cfg.Shiprocket.WebhookToken,
	}, logger)
	if cfg.Shiprocket.WebhookToken == "" {
		mylogger.Warn(ctx, logger, "SHIPROCKET_WEBHOOK_TOKEN is unset, courier webhooks will be rejected")
	}
	galleryService := service.NewGalleryService(galleryRepo, customizationRepo, productRepo, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	handlers := &httptransport.Handlers{
		Auth:     handler.NewAuthHandler(authService, logger),
		Product:  handler.NewProductHandler(productService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Coupon:   handler.NewCouponHandler(couponService, logger),
		Order:    handler.NewOrderHandler(orderService, metrics, logger),
		Payment:  handler.NewPaymentHandler(paymentService, logger),
		Shipping: handler.NewShippingHandler(shippingService, logger),
		Gallery:  handler.NewGalleryHandler(galleryService, logger),
	}

	app := httptransport.NewApp(cfg.HTTP, cfg.Limiter, metrics)
	httptransport.RegisterRoutes(app, handlers, cfg.JWT.Secret)

	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Port,
		Handler:           otelhttp.NewHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), "metrics"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		mylogger.Info(ctx, logger, "Metrics server listening", zap.String("port", cfg.Metrics.Port))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mylogger.Error(ctx, logger, "Metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		mylogger.Info(ctx, logger, "HTTP server listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			logger.Fatal("Error listening on HTTP port", zap.String("port", cfg.HTTP.Port), zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mylogger.Info(shutdownCtx, logger, "Shutting down api")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Error shutting down HTTP app", zap.Error(err))
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Error shutting down metrics server", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	} else {
		mylogger.Info(shutdownCtx, logger, "Telemetry stopped")
	}
}

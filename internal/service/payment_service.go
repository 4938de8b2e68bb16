package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/razorpay"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/worker"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PaymentGateway is the part of the Razorpay client checkout uses.
type PaymentGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

type PaymentOrder struct {
	KeyID           string `json:"key_id"`
	RazorpayOrderID string `json:"razorpay_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	OrderID         int64  `json:"order_id"`
	OrderNumber     string `json:"order_number"`
}

type VerifyPaymentInput struct {
	RazorpayOrderID   string
	RazorpayPaymentID string
	Signature         string
}

type PaymentService interface {
	CreatePaymentOrder(ctx context.Context, userID, orderID int64) (*PaymentOrder, error)
	Verify(ctx context.Context, userID int64, input VerifyPaymentInput) (*domain.Order, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type paymentService struct {
	pool      *pgxpool.Pool
	orderRepo repository.OrderRepository
	gateway   PaymentGateway
	events    *orderEvents
	currency  string
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

type PaymentDeps struct {
	OrderRepo  repository.OrderRepository
	UserRepo   repository.UserRepository
	OutboxRepo worker.OutboxRepository
	Gateway    PaymentGateway
	Topic      string
	Currency   string
}

func NewPaymentService(pool *pgxpool.Pool, deps PaymentDeps, logger *zap.Logger) PaymentService {
	currency := deps.Currency
	if currency == "" {
		currency = "INR"
	}

	return &paymentService{
		pool:      pool,
		orderRepo: deps.OrderRepo,
		gateway:   deps.Gateway,
		events:    &orderEvents{outboxRepo: deps.OutboxRepo, userRepo: deps.UserRepo, topic: deps.Topic, logger: logger},
		currency:  currency,
		logger:    logger,
		tracer:    otel.Tracer("service/payment"),
		now:       time.Now,
	}
}

// CreatePaymentOrder opens a Razorpay order for an unpaid order. An open
// Razorpay order is reused.
func (s *paymentService) CreatePaymentOrder(ctx context.Context, userID, orderID int64) (*PaymentOrder, error) {
	ctx, span := s.tracer.Start(ctx, "PaymentService.CreatePaymentOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("order_id", orderID),
	)

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	if err := payable(order); err != nil {
		return nil, err
	}

	if order.RazorpayOrderID != "" && order.PaymentStatus == domain.PaymentProcessing {
		return s.paymentOrder(order), nil
	}

	rzpOrder, err := s.gateway.CreateOrder(ctx, order.TotalAmount, s.currency, order.OrderNumber, map[string]string{
		"order_id": strconv.FormatInt(order.ID, 10),
	})
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, s.logger, "Failed to create razorpay order", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	order, err = s.orderRepo.LockByID(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := payable(order); err != nil {
		return nil, err
	}

	order.RazorpayOrderID = rzpOrder.ID
	if err := order.SetPaymentStatus(domain.PaymentProcessing, s.now()); err != nil {
		return nil, err
	}

	if err := s.orderRepo.Update(ctx, tx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Razorpay order created",
		zap.Int64("order_id", order.ID),
		zap.String("razorpay_order_id", rzpOrder.ID),
	)

	return s.paymentOrder(order), nil
}

func payable(order *domain.Order) error {
	switch {
	case order.PaymentMethod != domain.PaymentMethodRazorpay:
		return ErrPaymentNotRequired
	case order.PaymentStatus == domain.PaymentCompleted:
		return ErrOrderAlreadyPaid
	case order.Status == domain.OrderStatusCancelled,
		order.PaymentStatus == domain.PaymentRefunded,
		order.PaymentStatus == domain.PaymentCancelled:
		return ErrOrderNotPayable
	}
	return nil
}

func (s *paymentService) paymentOrder(order *domain.Order) *PaymentOrder {
	return &PaymentOrder{
		KeyID:           s.gateway.KeyID(),
		RazorpayOrderID: order.RazorpayOrderID,
		Amount:          order.TotalAmount,
		Currency:        s.currency,
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
	}
}

// Verify checks the checkout signature. A bad signature marks the payment
// failed; a good one completes it and confirms the order.
func (s *paymentService) Verify(ctx context.Context, userID int64, input VerifyPaymentInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "PaymentService.Verify")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.String("razorpay_order_id", input.RazorpayOrderID),
	)

	valid := s.gateway.VerifyPaymentSignature(input.RazorpayOrderID, input.RazorpayPaymentID, input.Signature)

	order, err := s.settle(ctx, input.RazorpayOrderID, func(order *domain.Order) error {
		if order.UserID != userID {
			return repository.ErrOrderNotFound
		}
		if !valid {
			return s.fail(order)
		}
		return s.complete(order, input.RazorpayPaymentID)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !valid {
		mylogger.Warn(ctx, s.logger, "Payment signature mismatch", zap.Int64("order_id", order.ID))
		return nil, ErrInvalidSignature
	}

	return order, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.HandleWebhook")
	defer span.End()

	if !s.gateway.VerifyWebhookSignature(body, signature) {
		mylogger.Warn(ctx, s.logger, "Razorpay webhook signature mismatch")
		return ErrInvalidWebhook
	}

	event, err := razorpay.ParseWebhook(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	entity := event.Payload.Payment.Entity
	span.SetAttributes(
		attribute.String("event", event.Event),
		attribute.String("razorpay_order_id", entity.OrderID),
	)

	var apply func(order *domain.Order) error
	switch event.Event {
	case razorpay.EventPaymentCaptured:
		apply = func(order *domain.Order) error {
			return s.complete(order, entity.ID)
		}
	case razorpay.EventPaymentFailed:
		apply = s.fail
	default:
		mylogger.Info(ctx, s.logger, "Ignoring razorpay webhook", zap.String("event", event.Event))
		return nil
	}

	_, err = s.settle(ctx, entity.OrderID, apply)
	if errors.Is(err, repository.ErrOrderNotFound) {
		mylogger.Warn(ctx, s.logger, "Webhook for unknown razorpay order", zap.String("razorpay_order_id", entity.OrderID))
		return nil
	}
	if errors.Is(err, domain.ErrInvalidPaymentStatus) {
		mylogger.Info(ctx, s.logger, "Webhook does not change payment", zap.String("razorpay_order_id", entity.OrderID), zap.Error(err))
		return nil
	}
	return err
}

func (s *paymentService) complete(order *domain.Order, paymentID string) error {
	now := s.now()
	if order.PaymentStatus != domain.PaymentCompleted && paymentID != "" {
		order.RazorpayPaymentID = paymentID
	}
	if err := order.SetPaymentStatus(domain.PaymentCompleted, now); err != nil {
		return err
	}
	if order.Status == domain.OrderStatusNew {
		return order.TransitionTo(domain.OrderStatusConfirmed, now)
	}
	return nil
}

// fail records a failed attempt; a completed payment is left alone.
func (s *paymentService) fail(order *domain.Order) error {
	if order.PaymentStatus == domain.PaymentCompleted {
		return nil
	}
	return order.SetPaymentStatus(domain.PaymentFailed, s.now())
}

// settle locks the order behind a Razorpay order id, applies fn and stores
// it with the resulting events.
func (s *paymentService) settle(ctx context.Context, razorpayOrderID string, fn func(order *domain.Order) error) (*domain.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	order, err := s.orderRepo.LockByRazorpayOrderID(ctx, tx, razorpayOrderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	wasPaid := order.PaymentStatus == domain.PaymentCompleted

	if err := fn(order); err != nil {
		return nil, err
	}

	if err := s.orderRepo.Update(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := s.emit(ctx, tx, order, from, wasPaid); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to save outbox event", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Payment updated",
		zap.Int64("order_id", order.ID),
		zap.String("payment_status", string(order.PaymentStatus)),
	)

	return order, nil
}

func (s *paymentService) emit(ctx context.Context, tx pgx.Tx, order *domain.Order, from domain.OrderStatus, wasPaid bool) error {
	if !wasPaid && order.PaymentStatus == domain.PaymentCompleted {
		if err := s.events.paymentCompleted(ctx, tx, order); err != nil {
			return err
		}
	}
	return s.events.statusChanged(ctx, tx, order, from, s.now())
}

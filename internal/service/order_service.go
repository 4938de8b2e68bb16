package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CheckoutInput struct {
	AddressID     *int64
	Shipping      *domain.ShippingAddress
	CouponCode    string
	PaymentMethod domain.PaymentMethod
	Notes         string
}

type OrderService interface {
	Checkout(ctx context.Context, userID int64, input CheckoutInput) (*domain.Order, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, int64, error)
	GetForUser(ctx context.Context, userID, orderID int64) (*domain.Order, error)
	Cancel(ctx context.Context, userID, orderID int64) (*domain.Order, error)

	ListAll(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error)
	Delete(ctx context.Context, orderID int64) error
}

type orderService struct {
	pool        *pgxpool.Pool
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	couponRepo  repository.CouponRepository
	userRepo    repository.UserRepository
	events      *orderEvents
	pricing     domain.Pricing
	logger      *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

type OrderDeps struct {
	OrderRepo   repository.OrderRepository
	CartRepo    repository.CartRepository
	ProductRepo repository.ProductRepository
	CouponRepo  repository.CouponRepository
	UserRepo    repository.UserRepository
	OutboxRepo  worker.OutboxRepository
	Topic       string
	Pricing     domain.Pricing
}

func NewOrderService(pool *pgxpool.Pool, deps OrderDeps, logger *zap.Logger) OrderService {
	return &orderService{
		pool:        pool,
		orderRepo:   deps.OrderRepo,
		cartRepo:    deps.CartRepo,
		productRepo: deps.ProductRepo,
		couponRepo:  deps.CouponRepo,
		userRepo:    deps.UserRepo,
		events:      &orderEvents{outboxRepo: deps.OutboxRepo, userRepo: deps.UserRepo, topic: deps.Topic, logger: logger},
		pricing:     deps.Pricing,
		logger:      logger,
		tracer:      otel.Tracer("service/order"),
		now:         time.Now,
	}
}

func (s *orderService) shippingAddress(ctx context.Context, userID int64, input CheckoutInput) (domain.ShippingAddress, error) {
	if input.AddressID != nil {
		addr, err := s.userRepo.GetAddress(ctx, userID, *input.AddressID)
		if err != nil {
			return domain.ShippingAddress{}, err
		}
		return addr.ToShipping(), nil
	}

	if input.Shipping != nil {
		sa := *input.Shipping
		if strings.TrimSpace(sa.Name) == "" || strings.TrimSpace(sa.Line1) == "" ||
			strings.TrimSpace(sa.City) == "" || strings.TrimSpace(sa.PostalCode) == "" {
			return domain.ShippingAddress{}, ErrAddressRequired
		}
		if sa.Country == "" {
			sa.Country = "India"
		}
		return sa, nil
	}

	addresses, err := s.userRepo.ListAddresses(ctx, userID)
	if err != nil {
		return domain.ShippingAddress{}, err
	}
	for _, a := range addresses {
		if a.IsDefault {
			return a.ToShipping(), nil
		}
	}

	return domain.ShippingAddress{}, ErrAddressRequired
}

// Checkout turns the user's cart into an order. Order, coupon redemption,
// cart clearing and the OrderCreated event commit together.
func (s *orderService) Checkout(ctx context.Context, userID int64, input CheckoutInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Checkout")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.String("payment_method", string(input.PaymentMethod)),
	)

	if input.PaymentMethod == "" {
		input.PaymentMethod = domain.PaymentMethodRazorpay
	}

	shipping, err := s.shippingAddress(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	cart, err := s.cartRepo.FindLocked(ctx, tx, domain.UserOwner(userID))
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrCartEmpty
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	verrs, err := revalidateCart(ctx, s.productRepo, cart)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(verrs) > 0 {
		// The cleaned cart is kept so the customer reviews what remains.
		if err := s.cartRepo.Save(ctx, tx, cart); err != nil {
			span.RecordError(err)
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		mylogger.Info(ctx, s.logger, "Checkout blocked by stale cart", zap.Int64("user_id", userID), zap.Int("dropped", len(verrs)))
		return nil, ErrCartChanged
	}
	if cart.IsEmpty() {
		return nil, ErrCartEmpty
	}

	now := s.now()
	order := &domain.Order{
		UserID:        userID,
		Items:         domain.ItemsFromCart(cart),
		Status:        domain.OrderStatusNew,
		PaymentStatus: domain.PaymentPending,
		PaymentMethod: input.PaymentMethod,
		Shipping:      shipping,
		Notes:         strings.TrimSpace(input.Notes),
	}
	order.Recalculate()
	order.TaxAmount = s.pricing.Tax(order.Subtotal)
	order.ShippingAmount = s.pricing.Shipping(order.Subtotal)

	var coupon *domain.Coupon
	if code := domain.NormalizeCouponCode(input.CouponCode); code != "" {
		coupon, err = s.couponRepo.LockByCode(ctx, tx, code)
		if err != nil {
			return nil, err
		}

		discount, err := coupon.CalculateDiscount(order.Subtotal, now)
		if err != nil {
			return nil, err
		}

		order.CouponID = &coupon.ID
		order.CouponCode = coupon.Code
		order.DiscountAmount = discount
	}
	order.Recalculate()

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("order_number", order.OrderNumber))

	if coupon != nil {
		usage := &domain.CouponUsage{
			CouponID:       coupon.ID,
			UserID:         userID,
			OrderID:        order.ID,
			DiscountAmount: order.DiscountAmount,
		}
		if err := s.couponRepo.RecordUsage(ctx, tx, usage); err != nil {
			span.RecordError(err)
			if errors.Is(err, repository.ErrCouponUsageLimit) {
				return nil, domain.ErrCouponExhausted
			}
			return nil, err
		}
	}

	cart.Clear()
	if err := s.cartRepo.Save(ctx, tx, cart); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.events.created(ctx, tx, order, domain.Recipient{Email: user.Email, Name: user.Name}); err != nil {
		span.RecordError(err)
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
		"Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_amount", order.TotalAmount),
	)

	return order, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *orderService) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, int64, error) {
	limit, offset = normalizePage(limit, offset)
	return s.orderRepo.List(ctx, repository.OrderFilter{UserID: &userID, Limit: limit, Offset: offset})
}

// GetForUser hides orders of other users behind ErrOrderNotFound.
func (s *orderService) GetForUser(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Cancel")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("order_id", orderID),
	)

	return s.transition(ctx, orderID, func(order *domain.Order, now time.Time) error {
		if order.UserID != userID {
			return repository.ErrOrderNotFound
		}
		return order.Cancel(now)
	})
}

func (s *orderService) ListAll(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int64, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return s.orderRepo.List(ctx, filter)
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	return s.transition(ctx, orderID, func(order *domain.Order, now time.Time) error {
		return order.TransitionTo(status, now)
	})
}

// transition locks the order, applies fn and stores the result together with
// the matching outbox event.
func (s *orderService) transition(ctx context.Context, orderID int64, fn func(order *domain.Order, now time.Time) error) (*domain.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	order, err := s.orderRepo.LockByID(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	now := s.now()
	if err := fn(order, now); err != nil {
		mylogger.Warn(ctx, s.logger, "Order transition rejected", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, err
	}

	if err := s.orderRepo.Update(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := s.events.statusChanged(ctx, tx, order, from, now); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to save outbox event", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if from != order.Status {
		mylogger.Info(
			ctx,
			s.logger,
			"Order status changed",
			zap.Int64("order_id", orderID),
			zap.String("from", string(from)),
			zap.String("to", string(order.Status)),
		)
	}

	return order, nil
}

func (s *orderService) Delete(ctx context.Context, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	if err := s.orderRepo.SoftDelete(ctx, orderID); err != nil {
		return err
	}

	mylogger.Info(ctx, s.logger, "Order deleted", zap.Int64("order_id", orderID))
	return nil
}

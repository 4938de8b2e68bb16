package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/email"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/shiprocket"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Courier is the part of the Shiprocket client shipping uses.
type Courier interface {
	CreateShipment(ctx context.Context, req shiprocket.ShipmentRequest) (*shiprocket.Shipment, error)
	Track(ctx context.Context, awb string) (*shiprocket.Tracking, error)
}

// Parcel is the default package size sent with every shipment, in cm and kg.
type Parcel struct {
	Length  float64
	Breadth float64
	Height  float64
	Weight  float64
}

var defaultParcel = Parcel{Length: 30, Breadth: 25, Height: 10, Weight: 1.5}

type ShippingService interface {
	CreateShipment(ctx context.Context, orderID int64) (*domain.Order, error)
	Track(ctx context.Context, userID int64, isAdmin bool, awb string) (*shiprocket.Tracking, error)
	HandleWebhook(ctx context.Context, token string, payload shiprocket.WebhookPayload) error
}

type shippingService struct {
	pool         *pgxpool.Pool
	orderRepo    repository.OrderRepository
	userRepo     repository.UserRepository
	courier      Courier
	events       *orderEvents
	webhookToken string
	parcel       Parcel
	logger       *zap.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

type ShippingDeps struct {
	OrderRepo    repository.OrderRepository
	UserRepo     repository.UserRepository
	OutboxRepo   worker.OutboxRepository
	Courier      Courier
	Topic        string
	WebhookToken string
}

func NewShippingService(pool *pgxpool.Pool, deps ShippingDeps, logger *zap.Logger) ShippingService {
	return &shippingService{
		pool:         pool,
		orderRepo:    deps.OrderRepo,
		userRepo:     deps.UserRepo,
		courier:      deps.Courier,
		events:       &orderEvents{outboxRepo: deps.OutboxRepo, userRepo: deps.UserRepo, topic: deps.Topic, logger: logger},
		webhookToken: deps.WebhookToken,
		parcel:       defaultParcel,
		logger:       logger,
		tracer:       otel.Tracer("service/shipping"),
		now:          time.Now,
	}
}

func shippable(order *domain.Order) error {
	if order.ShipmentID != "" {
		return ErrShipmentExists
	}
	switch order.Status {
	case domain.OrderStatusNew, domain.OrderStatusConfirmed, domain.OrderStatusProcessing:
	default:
		return fmt.Errorf("%w: status %s", ErrNotShippable, order.Status)
	}
	if order.PaymentMethod == domain.PaymentMethodRazorpay && order.PaymentStatus != domain.PaymentCompleted {
		return fmt.Errorf("%w: payment %s", ErrNotShippable, order.PaymentStatus)
	}
	return nil
}

func (s *shippingService) shipmentRequest(ctx context.Context, order *domain.Order) shiprocket.ShipmentRequest {
	to := s.events.recipient(ctx, order.UserID)

	items := make([]shiprocket.ShipmentItem, 0, len(order.Items))
	for _, it := range order.Items {
		sku := it.SKU
		if sku == "" {
			sku = "P" + strconv.FormatInt(it.ProductID, 10)
		}
		items = append(items, shiprocket.ShipmentItem{
			Name:         it.Name,
			SKU:          sku,
			Units:        it.Quantity,
			SellingPrice: email.Rupees(it.Price),
		})
	}

	method := "Prepaid"
	if order.PaymentMethod == domain.PaymentMethodCOD {
		method = "COD"
	}

	name := order.Shipping.Name
	if name == "" {
		name = to.Name
	}

	return shiprocket.ShipmentRequest{
		OrderID:         order.OrderNumber,
		OrderDate:       order.CreatedAt.Format("2006-01-02 15:04"),
		BillingName:     name,
		BillingAddress:  order.Shipping.Line1,
		BillingAddress2: order.Shipping.Line2,
		BillingCity:     order.Shipping.City,
		BillingPincode:  order.Shipping.PostalCode,
		BillingState:    order.Shipping.State,
		BillingCountry:  order.Shipping.Country,
		BillingEmail:    to.Email,
		BillingPhone:    order.Shipping.Phone,
		ShippingIsBill:  true,
		Items:           items,
		PaymentMethod:   method,
		SubTotal:        email.Rupees(order.TotalAmount),
		Length:          s.parcel.Length,
		Breadth:         s.parcel.Breadth,
		Height:          s.parcel.Height,
		Weight:          s.parcel.Weight,
	}
}

// CreateShipment books the order with Shiprocket, stores the AWB and moves
// the order to processing.
func (s *shippingService) CreateShipment(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "ShippingService.CreateShipment")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := shippable(order); err != nil {
		return nil, err
	}

	shipment, err := s.courier.CreateShipment(ctx, s.shipmentRequest(ctx, order))
	if err != nil {
		span.RecordError(err)
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
	if err := shippable(order); err != nil {
		mylogger.Error(ctx, s.logger, "Order changed while booking shipment", zap.Int64("order_id", orderID), zap.Int64("shipment_id", shipment.ShipmentID), zap.Error(err))
		return nil, err
	}

	from := order.Status
	now := s.now()

	order.ShipmentID = strconv.FormatInt(shipment.ShipmentID, 10)
	order.AWBCode = shipment.AWBCode
	order.Courier = shipment.Courier
	order.TrackingURL = shipment.TrackingURL
	if err := order.TransitionTo(domain.OrderStatusProcessing, now); err != nil {
		return nil, err
	}

	if err := s.orderRepo.Update(ctx, tx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.events.statusChanged(ctx, tx, order, from, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Shipment created",
		zap.Int64("order_id", orderID),
		zap.String("shipment_id", order.ShipmentID),
		zap.String("awb_code", order.AWBCode),
	)

	return order, nil
}

// Track returns courier tracking for an AWB. Customers can only track their
// own orders.
func (s *shippingService) Track(ctx context.Context, userID int64, isAdmin bool, awb string) (*shiprocket.Tracking, error) {
	ctx, span := s.tracer.Start(ctx, "ShippingService.Track")
	defer span.End()

	awb = strings.TrimSpace(awb)
	span.SetAttributes(attribute.String("awb_code", awb))

	if !isAdmin {
		order, err := s.orderRepo.GetByAWB(ctx, awb)
		if err != nil {
			return nil, err
		}
		if order.UserID != userID {
			return nil, repository.ErrOrderNotFound
		}
	}

	return s.courier.Track(ctx, awb)
}

// HandleWebhook applies courier milestones to the order carrying the AWB.
// Unknown AWBs and statuses are acknowledged and ignored.
func (s *shippingService) HandleWebhook(ctx context.Context, token string, payload shiprocket.WebhookPayload) error {
	ctx, span := s.tracer.Start(ctx, "ShippingService.HandleWebhook")
	defer span.End()

	// An unset token rejects every call.
	if s.webhookToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.webhookToken)) != 1 {
		mylogger.Warn(ctx, s.logger, "Shiprocket webhook token mismatch")
		return ErrInvalidWebhook
	}

	status := payload.CurrentStatus
	if status == "" {
		status = payload.ShipmentStatus
	}

	span.SetAttributes(
		attribute.String("awb_code", payload.AWB),
		attribute.String("courier_status", status),
	)

	var next domain.OrderStatus
	switch shiprocket.MilestoneFor(status) {
	case shiprocket.MilestoneShipped:
		next = domain.OrderStatusShipped
	case shiprocket.MilestoneDelivered:
		next = domain.OrderStatusDelivered
	default:
		mylogger.Info(ctx, s.logger, "Ignoring courier status", zap.String("awb_code", payload.AWB), zap.String("status", status))
		return nil
	}

	if payload.AWB == "" {
		return ErrInvalidWebhook
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	order, err := s.orderRepo.LockByAWB(ctx, tx, payload.AWB)
	if errors.Is(err, repository.ErrOrderNotFound) {
		mylogger.Warn(ctx, s.logger, "Webhook for unknown AWB", zap.String("awb_code", payload.AWB))
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	from := order.Status
	now := s.now()
	if err := order.TransitionTo(next, now); err != nil {
		mylogger.Info(ctx, s.logger, "Courier status does not move order", zap.Int64("order_id", order.ID), zap.Error(err))
		return nil
	}
	if payload.Courier != "" && order.Courier == "" {
		order.Courier = payload.Courier
	}

	if err := s.orderRepo.Update(ctx, tx, order); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.events.statusChanged(ctx, tx, order, from, now); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

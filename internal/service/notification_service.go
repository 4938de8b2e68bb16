package service

import (
	"context"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/email"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/dedup"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OnceFunc runs action at most once per event id.
type OnceFunc func(ctx context.Context, eventID int64, action func(ctx context.Context) error) error

// PoolOnce records processed events in postgres.
func PoolOnce(pool *pgxpool.Pool, logger *zap.Logger) OnceFunc {
	return func(ctx context.Context, eventID int64, action func(ctx context.Context) error) error {
		return dedup.Once(ctx, pool, logger, eventID, action)
	}
}

type NotificationService struct {
	sender email.Sender
	once   OnceFunc
	logger *zap.Logger
	tracer trace.Tracer
}

func NewNotificationService(sender email.Sender, once OnceFunc, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		sender: sender,
		once:   once,
		logger: logger,
		tracer: otel.Tracer("service/notification"),
	}
}

func (s *NotificationService) HandleOrderCreated(ctx context.Context, eventID int64, e domain.OrderCreatedPayload) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.HandleOrderCreated")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", eventID),
		attribute.String("order_number", e.OrderNumber),
	)

	return s.once(ctx, eventID, func(ctx context.Context) error {
		return s.sender.SendOrderPlaced(ctx, e)
	})
}

// HandleOrderStatusChanged mails the customer when the order ships or is
// delivered. Other transitions are recorded and skipped.
func (s *NotificationService) HandleOrderStatusChanged(ctx context.Context, eventID int64, e domain.OrderStatusChangedPayload) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.HandleOrderStatusChanged")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", eventID),
		attribute.String("order_number", e.OrderNumber),
		attribute.String("status", e.To),
	)

	var send func(context.Context, domain.OrderStatusChangedPayload) error
	switch domain.OrderStatus(e.To) {
	case domain.OrderStatusShipped:
		send = s.sender.SendOrderShipped
	case domain.OrderStatusDelivered:
		send = s.sender.SendOrderDelivered
	default:
		mylogger.Debug(ctx, s.logger, "No email for status", zap.String("order_number", e.OrderNumber), zap.String("status", e.To))
		return nil
	}

	return s.once(ctx, eventID, func(ctx context.Context) error {
		return send(ctx, e)
	})
}

func (s *NotificationService) HandleOrderCancelled(ctx context.Context, eventID int64, e domain.OrderCancelledPayload) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.HandleOrderCancelled")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", eventID),
		attribute.String("order_number", e.OrderNumber),
	)

	return s.once(ctx, eventID, func(ctx context.Context) error {
		return s.sender.SendOrderCancelled(ctx, e)
	})
}

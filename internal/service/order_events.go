package service

import (
	"context"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/worker"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// orderEvents writes order lifecycle events to the outbox.
type orderEvents struct {
	outboxRepo worker.OutboxRepository
	userRepo   repository.UserRepository
	topic      string
	logger     *zap.Logger
}

func (e *orderEvents) recipient(ctx context.Context, userID int64) domain.Recipient {
	user, err := e.userRepo.GetByID(ctx, userID)
	if err != nil {
		mylogger.Warn(ctx, e.logger, "Order owner lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return domain.Recipient{}
	}
	return domain.Recipient{Email: user.Email, Name: user.Name}
}

func (e *orderEvents) created(ctx context.Context, tx pgx.Tx, order *domain.Order, to domain.Recipient) error {
	return emitOrderEvent(ctx, tx, e.outboxRepo, e.topic, order.ID, domain.EventOrderCreated, domain.OrderCreatedPayload{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Recipient:     to,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: string(order.PaymentMethod),
		ItemCount:     len(order.Items),
		CreatedAt:     order.CreatedAt,
	})
}

// statusChanged emits OrderCancelled or OrderStatusChanged when the status
// moved away from `from`. Nothing is emitted for a no-op transition.
func (e *orderEvents) statusChanged(ctx context.Context, tx pgx.Tx, order *domain.Order, from domain.OrderStatus, now time.Time) error {
	if order.Status == from {
		return nil
	}

	to := e.recipient(ctx, order.UserID)

	if order.Status == domain.OrderStatusCancelled {
		return emitOrderEvent(ctx, tx, e.outboxRepo, e.topic, order.ID, domain.EventOrderCancelled, domain.OrderCancelledPayload{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			UserID:        order.UserID,
			Recipient:     to,
			PaymentStatus: string(order.PaymentStatus),
			CancelledAt:   now,
		})
	}

	return emitOrderEvent(ctx, tx, e.outboxRepo, e.topic, order.ID, domain.EventOrderStatusChanged, domain.OrderStatusChangedPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Recipient:   to,
		From:        string(from),
		To:          string(order.Status),
		AWBCode:     order.AWBCode,
		Courier:     order.Courier,
		TrackingURL: order.TrackingURL,
		ChangedAt:   now,
	})
}

func (e *orderEvents) paymentCompleted(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	var paidAt time.Time
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}

	return emitOrderEvent(ctx, tx, e.outboxRepo, e.topic, order.ID, domain.EventPaymentCompleted, domain.PaymentCompletedPayload{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		UserID:            order.UserID,
		Amount:            order.TotalAmount,
		RazorpayPaymentID: order.RazorpayPaymentID,
		PaidAt:            paidAt,
	})
}

package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/kafka"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	outboxDomain "github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/domain"
	"go.uber.org/zap"
)

// OrderEventHandler is implemented by the notification service.
type OrderEventHandler interface {
	HandleOrderCreated(ctx context.Context, eventID int64, e domain.OrderCreatedPayload) error
	HandleOrderStatusChanged(ctx context.Context, eventID int64, e domain.OrderStatusChangedPayload) error
	HandleOrderCancelled(ctx context.Context, eventID int64, e domain.OrderCancelledPayload) error
}

type Consumer struct {
	handler OrderEventHandler
	logger  *zap.Logger
}

func NewConsumer(handler OrderEventHandler, logger *zap.Logger) *Consumer {
	return &Consumer{
		handler: handler,
		logger:  logger,
	}
}

// Start blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, brokers []string, groupID, topic string) error {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		[]string{topic},
		c.processMessage,
		c.logger,
	)

	return consumerGroup.Run(ctx)
}

// processMessage returns nil for malformed messages so they are committed
// and not redelivered forever. A handler error leaves the offset unmarked
// and the consumer group redelivers the message.
func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var env outboxDomain.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		mylogger.Error(ctx, c.logger, "Error unmarshalling envelope", zap.String("topic", msg.Topic), zap.Error(err))
		return nil
	}

	mylogger.Info(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
		zap.String("event", env.Event),
		zap.Int64("event_id", env.EventID),
	)

	switch env.Event {
	case domain.EventOrderCreated:
		var e domain.OrderCreatedPayload
		if !c.decode(ctx, env, &e) {
			return nil
		}
		return c.handler.HandleOrderCreated(ctx, env.EventID, e)
	case domain.EventOrderStatusChanged:
		var e domain.OrderStatusChangedPayload
		if !c.decode(ctx, env, &e) {
			return nil
		}
		return c.handler.HandleOrderStatusChanged(ctx, env.EventID, e)
	case domain.EventOrderCancelled:
		var e domain.OrderCancelledPayload
		if !c.decode(ctx, env, &e) {
			return nil
		}
		return c.handler.HandleOrderCancelled(ctx, env.EventID, e)
	default:
		mylogger.Debug(ctx, c.logger, "Ignored event type", zap.String("event", env.Event))
	}

	return nil
}

func (c *Consumer) decode(ctx context.Context, env outboxDomain.Envelope, out any) bool {
	if err := json.Unmarshal(env.Payload, out); err != nil {
		mylogger.Error(ctx, c.logger, "Error parsing event payload",
			zap.String("event", env.Event),
			zap.Int64("event_id", env.EventID),
			zap.Error(err),
		)
		return false
	}
	return true
}

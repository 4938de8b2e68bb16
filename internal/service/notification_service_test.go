package service

import (
	"context"
	"errors"
	"testing"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	placed    []string
	shipped   []string
	delivered []string
	cancelled []string
	err       error
}

func (f *fakeSender) SendOrderPlaced(_ context.Context, e domain.OrderCreatedPayload) error {
	if f.err != nil {
		return f.err
	}
	f.placed = append(f.placed, e.OrderNumber)
	return nil
}

func (f *fakeSender) SendOrderShipped(_ context.Context, e domain.OrderStatusChangedPayload) error {
	f.shipped = append(f.shipped, e.OrderNumber)
	return nil
}

func (f *fakeSender) SendOrderDelivered(_ context.Context, e domain.OrderStatusChangedPayload) error {
	f.delivered = append(f.delivered, e.OrderNumber)
	return nil
}

func (f *fakeSender) SendOrderCancelled(_ context.Context, e domain.OrderCancelledPayload) error {
	f.cancelled = append(f.cancelled, e.OrderNumber)
	return nil
}

// memoryOnce mirrors dedup.Once: an id is remembered only if action succeeds.
func memoryOnce() OnceFunc {
	seen := map[int64]bool{}
	return func(ctx context.Context, eventID int64, action func(ctx context.Context) error) error {
		if seen[eventID] {
			return nil
		}
		if err := action(ctx); err != nil {
			return err
		}
		seen[eventID] = true
		return nil
	}
}

func TestNotification_OrderCreatedDeduplicated(t *testing.T) {
	sender := &fakeSender{}
	svc := NewNotificationService(sender, memoryOnce(), zap.NewNop())
	ctx := context.Background()

	e := domain.OrderCreatedPayload{OrderNumber: "MTA1"}
	require.NoError(t, svc.HandleOrderCreated(ctx, 1, e))
	require.NoError(t, svc.HandleOrderCreated(ctx, 1, e))

	assert.Equal(t, []string{"MTA1"}, sender.placed)
}

func TestNotification_FailedSendIsRetryable(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	svc := NewNotificationService(sender, memoryOnce(), zap.NewNop())
	ctx := context.Background()

	e := domain.OrderCreatedPayload{OrderNumber: "MTA1"}
	require.Error(t, svc.HandleOrderCreated(ctx, 5, e))

	sender.err = nil
	require.NoError(t, svc.HandleOrderCreated(ctx, 5, e))
	assert.Equal(t, []string{"MTA1"}, sender.placed)
}

func TestNotification_StatusChangedRouting(t *testing.T) {
	sender := &fakeSender{}
	svc := NewNotificationService(sender, memoryOnce(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.HandleOrderStatusChanged(ctx, 1, domain.OrderStatusChangedPayload{OrderNumber: "A", To: "confirmed"}))
	require.NoError(t, svc.HandleOrderStatusChanged(ctx, 2, domain.OrderStatusChangedPayload{OrderNumber: "B", To: "shipped"}))
	require.NoError(t, svc.HandleOrderStatusChanged(ctx, 3, domain.OrderStatusChangedPayload{OrderNumber: "C", To: "delivered"}))
	require.NoError(t, svc.HandleOrderCancelled(ctx, 4, domain.OrderCancelledPayload{OrderNumber: "D"}))

	assert.Equal(t, []string{"B"}, sender.shipped)
	assert.Equal(t, []string{"C"}, sender.delivered)
	assert.Equal(t, []string{"D"}, sender.cancelled)
}

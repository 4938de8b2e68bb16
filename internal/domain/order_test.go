package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func TestOrder_CanBeCancelled(t *testing.T) {
	statuses := []OrderStatus{
		OrderStatusNew, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
	}
	payments := []PaymentStatus{
		PaymentPending, PaymentProcessing, PaymentCompleted,
		PaymentFailed, PaymentRefunded, PaymentCancelled,
	}

	for _, s := range statuses {
		for _, p := range payments {
			o := Order{Status: s, PaymentStatus: p}
			want := (s == OrderStatusNew || s == OrderStatusConfirmed) && p != PaymentCompleted
			assert.Equal(t, want, o.CanBeCancelled(), "status=%s payment=%s", s, p)
		}
	}
}

func TestOrder_TransitionStampsOnce(t *testing.T) {
	o := &Order{Status: OrderStatusProcessing, PaymentStatus: PaymentCompleted}

	require.NoError(t, o.TransitionTo(OrderStatusShipped, t0))
	require.NotNil(t, o.ShippedAt)
	assert.Equal(t, t0, *o.ShippedAt)

	later := t0.Add(time.Hour)
	require.NoError(t, o.TransitionTo(OrderStatusShipped, later))
	assert.Equal(t, t0, *o.ShippedAt)

	require.NoError(t, o.TransitionTo(OrderStatusDelivered, later))
	assert.Equal(t, later, *o.DeliveredAt)
	assert.Equal(t, t0, *o.ShippedAt)
}

func TestOrder_TransitionRules(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		payment PaymentStatus
		to      OrderStatus
		wantErr error
	}{
		{"confirm", OrderStatusNew, PaymentPending, OrderStatusConfirmed, nil},
		{"skip to processing", OrderStatusNew, PaymentPending, OrderStatusProcessing, nil},
		{"backwards", OrderStatusShipped, PaymentCompleted, OrderStatusConfirmed, ErrInvalidTransition},
		{"out of cancelled", OrderStatusCancelled, PaymentCancelled, OrderStatusConfirmed, ErrInvalidTransition},
		{"unknown", OrderStatusNew, PaymentPending, OrderStatus("lost"), ErrInvalidTransition},
		{"cancel new", OrderStatusNew, PaymentPending, OrderStatusCancelled, nil},
		{"cancel paid", OrderStatusConfirmed, PaymentCompleted, OrderStatusCancelled, ErrOrderNotCancellable},
		{"cancel shipped", OrderStatusShipped, PaymentPending, OrderStatusCancelled, ErrOrderNotCancellable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.from, PaymentStatus: tt.payment}
			err := o.TransitionTo(tt.to, t0)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, o.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, o.Status)
		})
	}
}

func TestOrder_CancelSetsPaymentStatus(t *testing.T) {
	o := &Order{Status: OrderStatusConfirmed, PaymentStatus: PaymentProcessing}
	require.NoError(t, o.Cancel(t0))
	assert.Equal(t, OrderStatusCancelled, o.Status)
	assert.Equal(t, PaymentCancelled, o.PaymentStatus)
	require.NotNil(t, o.CancelledAt)

	require.NoError(t, o.Cancel(t0.Add(time.Minute)))
	assert.Equal(t, t0, *o.CancelledAt)
}

func TestOrder_SetPaymentStatus(t *testing.T) {
	o := &Order{Status: OrderStatusNew, PaymentStatus: PaymentPending}

	require.NoError(t, o.SetPaymentStatus(PaymentProcessing, t0))
	require.NoError(t, o.SetPaymentStatus(PaymentCompleted, t0))
	require.NotNil(t, o.PaidAt)

	require.NoError(t, o.SetPaymentStatus(PaymentCompleted, t0.Add(time.Hour)))
	assert.Equal(t, t0, *o.PaidAt)

	assert.ErrorIs(t, o.SetPaymentStatus(PaymentPending, t0), ErrInvalidPaymentStatus)

	failed := &Order{PaymentStatus: PaymentProcessing}
	require.NoError(t, failed.SetPaymentStatus(PaymentFailed, t0))
	assert.Nil(t, failed.PaidAt)
	require.NoError(t, failed.SetPaymentStatus(PaymentProcessing, t0))
}

func TestOrder_Recalculate(t *testing.T) {
	o := &Order{TaxAmount: 180, ShippingAmount: 99, DiscountAmount: 200}
	o.Recalculate()
	assert.Zero(t, o.TotalAmount)

	o.Items = []OrderItem{
		{Price: 1000, Quantity: 2},
		{Price: 500, Quantity: 1},
	}
	o.Recalculate()
	assert.Equal(t, int64(2500), o.Subtotal)
	assert.Equal(t, int64(2500+180+99-200), o.TotalAmount)

	o.DiscountAmount = 10000
	o.Recalculate()
	assert.Zero(t, o.TotalAmount)
}

func TestItemsFromCart(t *testing.T) {
	cart := NewCart(UserOwner(1))
	require.NoError(t, cart.AddItem(CartItem{ProductID: 3, VariantID: ptr(int64(4)), Name: "Cup", SKU: "CUP-S", Price: 700, Quantity: 2}))

	items := ItemsFromCart(cart)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1400), items[0].Subtotal)
	assert.Equal(t, "CUP-S", items[0].SKU)
	assert.Equal(t, int64(4), *items[0].VariantID)
}

func TestGenerateOrderNumber(t *testing.T) {
	re := regexp.MustCompile(`^MTA250314092653\d{3}$`)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, re, GenerateOrderNumber(t0))
	}
}

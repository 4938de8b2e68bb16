package domain

import (
	"fmt"
	"math/rand/v2"
	"time"
)

type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// position along the fulfilment chain; cancelled is off the chain.
var statusRank = map[OrderStatus]int{
	OrderStatusNew:        0,
	OrderStatusConfirmed:  1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == OrderStatusCancelled
}

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentCancelled  PaymentStatus = "cancelled"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentCancelled},
	PaymentProcessing: {PaymentCompleted, PaymentFailed, PaymentCancelled},
	PaymentFailed:     {PaymentProcessing, PaymentCompleted, PaymentCancelled},
	PaymentCompleted:  {PaymentRefunded, PaymentCancelled},
}

type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodCOD      PaymentMethod = "cod"
)

type ShippingAddress struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Order struct {
	ID             int64           `json:"id"`
	OrderNumber    string          `json:"order_number"`
	UserID         int64           `json:"user_id"`
	Items          []OrderItem     `json:"items"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Subtotal       int64           `json:"subtotal"`
	TaxAmount      int64           `json:"tax_amount"`
	ShippingAmount int64           `json:"shipping_amount"`
	DiscountAmount int64           `json:"discount_amount"`
	TotalAmount    int64           `json:"total_amount"`
	CouponID       *int64          `json:"coupon_id,omitempty"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	Shipping       ShippingAddress `json:"shipping_address"`
	Notes          string          `json:"notes,omitempty"`

	RazorpayOrderID   string `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string `json:"razorpay_payment_id,omitempty"`
	ShipmentID        string `json:"shipment_id,omitempty"`
	AWBCode           string `json:"awb_code,omitempty"`
	Courier           string `json:"courier,omitempty"`
	TrackingURL       string `json:"tracking_url,omitempty"`

	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	ProcessingAt *time.Time `json:"processing_at,omitempty"`
	ShippedAt    *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

type OrderItem struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"order_id"`
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Name      string `json:"name"`
	SKU       string `json:"sku,omitempty"`
	Size      string `json:"size,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

// CanBeCancelled reports whether the customer may still cancel.
func (o *Order) CanBeCancelled() bool {
	if o.PaymentStatus == PaymentCompleted {
		return false
	}
	return o.Status == OrderStatusNew || o.Status == OrderStatusConfirmed
}

// TransitionTo moves the order forward along new, confirmed, processing,
// shipped, delivered. Skipping ahead is allowed, moving back is not. The
// target state's timestamp is stamped only if unset, so re-entering the
// current state is a no-op.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) error {
	if next == OrderStatusCancelled {
		return o.Cancel(now)
	}

	nextRank, ok := statusRank[next]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}

	if o.Status == next {
		o.stamp(next, now)
		return nil
	}

	curRank, ok := statusRank[o.Status]
	if !ok || nextRank < curRank {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}

	o.Status = next
	o.stamp(next, now)
	o.UpdatedAt = now
	return nil
}

// Cancel cancels the order. Payment moves to refunded when it had completed,
// cancelled otherwise.
func (o *Order) Cancel(now time.Time) error {
	if o.Status == OrderStatusCancelled {
		o.stamp(OrderStatusCancelled, now)
		return nil
	}

	if !o.CanBeCancelled() {
		return fmt.Errorf("%w: status %s, payment %s", ErrOrderNotCancellable, o.Status, o.PaymentStatus)
	}

	if o.PaymentStatus == PaymentCompleted {
		o.PaymentStatus = PaymentRefunded
	} else {
		o.PaymentStatus = PaymentCancelled
	}

	o.Status = OrderStatusCancelled
	o.stamp(OrderStatusCancelled, now)
	o.UpdatedAt = now
	return nil
}

func (o *Order) stamp(status OrderStatus, now time.Time) {
	var field **time.Time
	switch status {
	case OrderStatusConfirmed:
		field = &o.ConfirmedAt
	case OrderStatusProcessing:
		field = &o.ProcessingAt
	case OrderStatusShipped:
		field = &o.ShippedAt
	case OrderStatusDelivered:
		field = &o.DeliveredAt
	case OrderStatusCancelled:
		field = &o.CancelledAt
	default:
		return
	}

	if *field == nil {
		t := now
		*field = &t
	}
}

// SetPaymentStatus applies a payment callback. Completing stamps PaidAt once.
func (o *Order) SetPaymentStatus(next PaymentStatus, now time.Time) error {
	if o.PaymentStatus == next {
		if next == PaymentCompleted && o.PaidAt == nil {
			t := now
			o.PaidAt = &t
		}
		return nil
	}

	allowed := false
	for _, s := range paymentTransitions[o.PaymentStatus] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidPaymentStatus, o.PaymentStatus, next)
	}

	o.PaymentStatus = next
	if next == PaymentCompleted && o.PaidAt == nil {
		t := now
		o.PaidAt = &t
	}
	o.UpdatedAt = now
	return nil
}

// Recalculate derives line subtotals, the order subtotal and the total. The
// total is only derived once items are present and never goes below zero.
func (o *Order) Recalculate() {
	if len(o.Items) == 0 {
		return
	}

	var subtotal int64
	for idx := range o.Items {
		o.Items[idx].Subtotal = o.Items[idx].Price * int64(o.Items[idx].Quantity)
		subtotal += o.Items[idx].Subtotal
	}

	o.Subtotal = subtotal
	total := o.Subtotal + o.TaxAmount + o.ShippingAmount - o.DiscountAmount
	if total < 0 {
		total = 0
	}
	o.TotalAmount = total
}

// ItemsFromCart snapshots cart lines into order lines.
func ItemsFromCart(cart *Cart) []OrderItem {
	items := make([]OrderItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		items = append(items, OrderItem{
			ProductID: ci.ProductID,
			VariantID: ci.VariantID,
			Name:      ci.Name,
			SKU:       ci.SKU,
			Size:      ci.Size,
			ImageURL:  ci.ImageURL,
			Price:     ci.Price,
			Quantity:  ci.Quantity,
			Subtotal:  ci.Price * int64(ci.Quantity),
		})
	}
	return items
}

// GenerateOrderNumber returns MTA + yyMMddHHmmss + three random digits.
// Collisions are possible; callers retry on a unique violation.
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("MTA%s%03d", now.Format("060102150405"), rand.IntN(1000))
}

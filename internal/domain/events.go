package domain

import "time"

const AggregateOrder = "order"

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
	EventPaymentCompleted   = "PaymentCompleted"
)

// Recipient is who the notifier emails about an order.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type OrderCreatedPayload struct {
	OrderID       int64     `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	UserID        int64     `json:"user_id"`
	Recipient     Recipient `json:"recipient"`
	TotalAmount   int64     `json:"total_amount"`
	PaymentMethod string    `json:"payment_method"`
	ItemCount     int       `json:"item_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type OrderStatusChangedPayload struct {
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      int64     `json:"user_id"`
	Recipient   Recipient `json:"recipient"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	AWBCode     string    `json:"awb_code,omitempty"`
	Courier     string    `json:"courier,omitempty"`
	TrackingURL string    `json:"tracking_url,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
}

type OrderCancelledPayload struct {
	OrderID       int64     `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	UserID        int64     `json:"user_id"`
	Recipient     Recipient `json:"recipient"`
	PaymentStatus string    `json:"payment_status"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

type PaymentCompletedPayload struct {
	OrderID           int64     `json:"order_id"`
	OrderNumber       string    `json:"order_number"`
	UserID            int64     `json:"user_id"`
	Amount            int64     `json:"amount"`
	RazorpayPaymentID string    `json:"razorpay_payment_id"`
	PaidAt            time.Time `json:"paid_at"`
}

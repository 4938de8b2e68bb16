package shiprocket

import "strings"

type ShipmentItem struct {
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Units        int    `json:"units"`
	SellingPrice string `json:"selling_price"`
}

// ShipmentRequest is the ad-hoc order payload. Prices are rupee strings.
type ShipmentRequest struct {
	OrderID         string         `json:"order_id"`
	OrderDate       string         `json:"order_date"`
	PickupLocation  string         `json:"pickup_location"`
	BillingName     string         `json:"billing_customer_name"`
	BillingAddress  string         `json:"billing_address"`
	BillingAddress2 string         `json:"billing_address_2,omitempty"`
	BillingCity     string         `json:"billing_city"`
	BillingPincode  string         `json:"billing_pincode"`
	BillingState    string         `json:"billing_state"`
	BillingCountry  string         `json:"billing_country"`
	BillingEmail    string         `json:"billing_email"`
	BillingPhone    string         `json:"billing_phone"`
	ShippingIsBill  bool           `json:"shipping_is_billing"`
	Items           []ShipmentItem `json:"order_items"`
	PaymentMethod   string         `json:"payment_method"`
	SubTotal        string         `json:"sub_total"`
	Length          float64        `json:"length"`
	Breadth         float64        `json:"breadth"`
	Height          float64        `json:"height"`
	Weight          float64        `json:"weight"`
}

type Shipment struct {
	ShiprocketOrderID int64  `json:"shiprocket_order_id"`
	ShipmentID        int64  `json:"shipment_id"`
	Status            string `json:"status"`
	AWBCode           string `json:"awb_code"`
	Courier           string `json:"courier"`
	TrackingURL       string `json:"tracking_url"`
}

type Activity struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	Activity string `json:"activity"`
	Location string `json:"location"`
}

type Tracking struct {
	AWBCode       string     `json:"awb_code"`
	TrackStatus   int        `json:"track_status"`
	CurrentStatus string     `json:"current_status"`
	Courier       string     `json:"courier,omitempty"`
	Destination   string     `json:"destination,omitempty"`
	TrackURL      string     `json:"track_url,omitempty"`
	Activities    []Activity `json:"activities"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type createOrderResponse struct {
	OrderID     int64  `json:"order_id"`
	ShipmentID  int64  `json:"shipment_id"`
	Status      string `json:"status"`
	AWBCode     string `json:"awb_code"`
	CourierName string `json:"courier_name"`
}

type assignAWBResponse struct {
	AWBAssignStatus int `json:"awb_assign_status"`
	Response        struct {
		Data struct {
			AWBCode     string `json:"awb_code"`
			CourierName string `json:"courier_name"`
		} `json:"data"`
	} `json:"response"`
}

type trackResponse struct {
	TrackingData struct {
		TrackStatus   int `json:"track_status"`
		ShipmentTrack []struct {
			CurrentStatus string `json:"current_status"`
			CourierName   string `json:"courier_name"`
			Destination   string `json:"destination"`
		} `json:"shipment_track"`
		Activities []Activity `json:"shipment_track_activities"`
		TrackURL   string     `json:"track_url"`
	} `json:"tracking_data"`
}

// WebhookPayload is the status push Shiprocket sends for an AWB.
type WebhookPayload struct {
	AWB            string `json:"awb"`
	CurrentStatus  string `json:"current_status"`
	ShipmentStatus string `json:"shipment_status"`
	OrderID        string `json:"order_id"`
	Courier        string `json:"courier_name"`
}

// Milestone is the order-level meaning of a courier status.
type Milestone int

const (
	MilestoneNone Milestone = iota
	MilestoneShipped
	MilestoneDelivered
)

// MilestoneFor maps a courier status string to an order milestone.
func MilestoneFor(status string) Milestone {
	s := strings.ToUpper(strings.TrimSpace(status))
	switch {
	case s == "DELIVERED":
		return MilestoneDelivered
	case s == "SHIPPED", s == "IN TRANSIT", s == "PICKED UP", s == "OUT FOR DELIVERY",
		strings.HasPrefix(s, "IN TRANSIT"), s == "REACHED AT DESTINATION HUB":
		return MilestoneShipped
	default:
		return MilestoneNone
	}
}

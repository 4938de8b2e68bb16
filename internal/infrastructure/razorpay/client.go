package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/upstream"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/utils"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const serviceName = "razorpay"

type Config struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

// Order is the subset of a Razorpay order the checkout needs.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		cfg:     cfg,
		http:    upstream.NewHTTPClient(cfg.Timeout),
		breaker: utils.NewBreaker("RazorpayAPI", logger),
		logger:  logger,
		tracer:  otel.Tracer("infrastructure/razorpay"),
	}
}

func (c *Client) KeyID() string {
	return c.cfg.KeyID
}

// CreateOrder registers an order with Razorpay. Amount is in paise.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	ctx, span := c.tracer.Start(ctx, "Razorpay.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("amount", amount),
		attribute.String("receipt", receipt),
	)

	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, err
	}

	order, err := utils.ExecuteWithBreaker(c.breaker, func() (*Order, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/orders", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 300 {
			return nil, &upstream.StatusError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(raw)}
		}

		var out Order
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode razorpay order: %w", err)
		}
		if out.ID == "" {
			return nil, fmt.Errorf("razorpay order without id")
		}

		return &out, nil
	})
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, c.logger, "Razorpay create order failed", zap.String("receipt", receipt), zap.Error(err))

		return nil, upstream.Classify(serviceName, err)
	}

	span.SetAttributes(attribute.String("razorpay_order_id", order.ID))

	return order, nil
}

// VerifyPaymentSignature checks the checkout callback signature, an
// HMAC-SHA256 of "order_id|payment_id" keyed with the key secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verify(c.cfg.KeySecret, []byte(orderID+"|"+paymentID), signature)
}

// VerifyWebhookSignature checks X-Razorpay-Signature over the raw body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return verify(c.cfg.WebhookSecret, body, signature)
}

func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}

	expected, err := hex.DecodeString(Sign(secret, payload))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}

	return hmac.Equal(expected, got)
}

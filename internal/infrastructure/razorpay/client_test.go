package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL:       url,
		KeyID:         "rzp_test_key",
		KeySecret:     "key_secret",
		WebhookSecret: "hook_secret",
		Timeout:       2 * time.Second,
	}, zap.NewNop())
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "key_secret", pass)

		var req createOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(259900), req.Amount)
		assert.Equal(t, "MTA250101120000123", req.Receipt)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_Abc123","amount":259900,"currency":"INR","receipt":"MTA250101120000123","status":"created"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	order, err := client.CreateOrder(context.Background(), 259900, "INR", "MTA250101120000123", nil)
	require.NoError(t, err)
	assert.Equal(t, "order_Abc123", order.ID)
	assert.Equal(t, "created", order.Status)
}

func TestCreateOrder_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"description":"amount too small"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.CreateOrder(context.Background(), 1, "INR", "r", nil)
	require.ErrorIs(t, err, upstream.ErrUpstream)

	var statusErr *upstream.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestCreateOrder_BreakerOpens(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	for i := 0; i < 5; i++ {
		_, err := client.CreateOrder(context.Background(), 100, "INR", "r", nil)
		require.ErrorIs(t, err, upstream.ErrUpstream)
	}

	_, err := client.CreateOrder(context.Background(), 100, "INR", "r", nil)
	require.ErrorIs(t, err, upstream.ErrUnavailable)
	assert.Equal(t, 5, calls)
}

func TestVerifyPaymentSignature(t *testing.T) {
	client := newTestClient("http://unused")
	sig := Sign("key_secret", []byte("order_1|pay_1"))

	assert.True(t, client.VerifyPaymentSignature("order_1", "pay_1", sig))
	assert.False(t, client.VerifyPaymentSignature("order_1", "pay_2", sig))
	assert.False(t, client.VerifyPaymentSignature("order_1", "pay_1", "zz"))
	assert.False(t, client.VerifyPaymentSignature("order_1", "pay_1", ""))
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := newTestClient("http://unused")
	body := []byte(`{"event":"payment.captured"}`)

	assert.True(t, client.VerifyWebhookSignature(body, Sign("hook_secret", body)))
	assert.False(t, client.VerifyWebhookSignature(body, Sign("key_secret", body)))
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_9","amount":1000,"status":"captured"}}}}`)

	ev, err := ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentCaptured, ev.Event)
	assert.Equal(t, "order_9", ev.Payload.Payment.Entity.OrderID)
	assert.Equal(t, "pay_9", ev.Payload.Payment.Entity.ID)
}

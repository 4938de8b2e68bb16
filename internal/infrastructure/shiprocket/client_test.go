package shiprocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL:        url,
		Email:          "ops@mytradeaward.com",
		Password:       "secret",
		PickupLocation: "Primary",
		Timeout:        2 * time.Second,
	}, zap.NewNop())
}

func TestCreateShipment(t *testing.T) {
	var logins atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/external/auth/login", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ops@mytradeaward.com", body["email"])
		_, _ = w.Write([]byte(`{"token":"tok-1"}`))
	})
	mux.HandleFunc("/v1/external/orders/create/adhoc", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var req ShipmentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "MTA250101120000123", req.OrderID)
		assert.Equal(t, "Primary", req.PickupLocation)

		_, _ = w.Write([]byte(`{"order_id":991,"shipment_id":1771,"status":"NEW"}`))
	})
	mux.HandleFunc("/v1/external/courier/assign/awb", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(1771), body["shipment_id"])
		_, _ = w.Write([]byte(`{"awb_assign_status":1,"response":{"data":{"awb_code":"AWB123","courier_name":"Delhivery"}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(srv.URL)
	shipment, err := client.CreateShipment(context.Background(), ShipmentRequest{OrderID: "MTA250101120000123"})
	require.NoError(t, err)

	assert.Equal(t, int64(1771), shipment.ShipmentID)
	assert.Equal(t, "AWB123", shipment.AWBCode)
	assert.Equal(t, "Delhivery", shipment.Courier)
	assert.Equal(t, "https://shiprocket.co/tracking/AWB123", shipment.TrackingURL)
	assert.Equal(t, int32(1), logins.Load())
}

func TestTrack_RelogsOnExpiredToken(t *testing.T) {
	var logins atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/external/auth/login", func(w http.ResponseWriter, r *http.Request) {
		n := logins.Add(1)
		if n == 1 {
			_, _ = w.Write([]byte(`{"token":"stale"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"fresh"}`))
	})
	mux.HandleFunc("/v1/external/courier/track/awb/AWB123", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"tracking_data":{"track_status":1,"shipment_track":[{"current_status":"IN TRANSIT","courier_name":"Delhivery"}],"shipment_track_activities":[{"date":"2025-01-02 10:00:00","status":"X","activity":"Picked up","location":"Mumbai"}],"track_url":"https://shiprocket.co/tracking/AWB123"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(srv.URL)
	tracking, err := client.Track(context.Background(), "AWB123")
	require.NoError(t, err)

	assert.Equal(t, "IN TRANSIT", tracking.CurrentStatus)
	assert.Equal(t, "Delhivery", tracking.Courier)
	require.Len(t, tracking.Activities, 1)
	assert.Equal(t, "Picked up", tracking.Activities[0].Activity)
	assert.Equal(t, int32(2), logins.Load())
}

func TestTrack_LoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Invalid email and password combination"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Track(context.Background(), "AWB123")
	require.ErrorIs(t, err, upstream.ErrUpstream)
}

func TestMilestoneFor(t *testing.T) {
	tests := []struct {
		status string
		want   Milestone
	}{
		{"SHIPPED", MilestoneShipped},
		{"In Transit", MilestoneShipped},
		{"OUT FOR DELIVERY", MilestoneShipped},
		{"Delivered", MilestoneDelivered},
		{" DELIVERED ", MilestoneDelivered},
		{"PICKUP SCHEDULED", MilestoneNone},
		{"", MilestoneNone},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, MilestoneFor(tt.status))
		})
	}
}

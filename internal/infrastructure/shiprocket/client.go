package shiprocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
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

const (
	serviceName = "shiprocket"
	// Shiprocket tokens last ten days; refresh a day early.
	tokenTTL = 9 * 24 * time.Hour
)

var errUnauthorized = errors.New("shiprocket token rejected")

type Config struct {
	BaseURL        string
	Email          string
	Password       string
	PickupLocation string
	Timeout        time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		cfg:     cfg,
		http:    upstream.NewHTTPClient(cfg.Timeout),
		breaker: utils.NewBreaker("ShiprocketAPI", logger),
		logger:  logger,
		tracer:  otel.Tracer("infrastructure/shiprocket"),
		now:     time.Now,
	}
}

func (c *Client) PickupLocation() string {
	return c.cfg.PickupLocation
}

// CreateShipment creates an ad-hoc order and assigns an AWB to its shipment.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	ctx, span := c.tracer.Start(ctx, "Shiprocket.CreateShipment")
	defer span.End()

	span.SetAttributes(attribute.String("order_number", req.OrderID))

	if req.PickupLocation == "" {
		req.PickupLocation = c.cfg.PickupLocation
	}

	var created createOrderResponse
	if err := c.call(ctx, http.MethodPost, "/v1/external/orders/create/adhoc", req, &created); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, c.logger, "Shiprocket create order failed", zap.String("order_number", req.OrderID), zap.Error(err))

		return nil, err
	}

	shipment := &Shipment{
		ShiprocketOrderID: created.OrderID,
		ShipmentID:        created.ShipmentID,
		Status:            created.Status,
		AWBCode:           created.AWBCode,
		Courier:           created.CourierName,
	}

	if shipment.AWBCode == "" && shipment.ShipmentID != 0 {
		var assigned assignAWBResponse
		err := c.call(ctx, http.MethodPost, "/v1/external/courier/assign/awb", map[string]int64{"shipment_id": shipment.ShipmentID}, &assigned)
		if err != nil {
			// The order exists at Shiprocket; AWB can be assigned from their panel.
			mylogger.Warn(ctx, c.logger, "Shiprocket AWB assignment failed", zap.Int64("shipment_id", shipment.ShipmentID), zap.Error(err))
		} else {
			shipment.AWBCode = assigned.Response.Data.AWBCode
			shipment.Courier = assigned.Response.Data.CourierName
		}
	}

	if shipment.AWBCode != "" {
		shipment.TrackingURL = TrackingURL(shipment.AWBCode)
	}

	return shipment, nil
}

func (c *Client) Track(ctx context.Context, awb string) (*Tracking, error) {
	ctx, span := c.tracer.Start(ctx, "Shiprocket.Track")
	defer span.End()

	span.SetAttributes(attribute.String("awb_code", awb))

	var resp trackResponse
	if err := c.call(ctx, http.MethodGet, "/v1/external/courier/track/awb/"+url.PathEscape(awb), nil, &resp); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, c.logger, "Shiprocket tracking failed", zap.String("awb_code", awb), zap.Error(err))

		return nil, err
	}

	t := resp.TrackingData
	out := &Tracking{
		AWBCode:     awb,
		TrackStatus: t.TrackStatus,
		TrackURL:    t.TrackURL,
		Activities:  t.Activities,
	}
	if len(t.ShipmentTrack) > 0 {
		out.CurrentStatus = t.ShipmentTrack[0].CurrentStatus
		out.Courier = t.ShipmentTrack[0].CourierName
		out.Destination = t.ShipmentTrack[0].Destination
	}
	if out.Activities == nil {
		out.Activities = []Activity{}
	}

	return out, nil
}

// call performs an authenticated request through the breaker. A rejected
// token is dropped and the request retried once with a fresh login.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	err := c.callOnce(ctx, method, path, in, out)
	if errors.Is(err, errUnauthorized) {
		c.invalidate()
		err = c.callOnce(ctx, method, path, in, out)
	}
	if errors.Is(err, errUnauthorized) {
		err = &upstream.StatusError{Service: serviceName, StatusCode: http.StatusUnauthorized, Body: "authentication failed"}
	}
	return upstream.Classify(serviceName, err)
}

func (c *Client) callOnce(ctx context.Context, method, path string, in, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	_, err = utils.ExecuteWithBreaker(c.breaker, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, method, path, token, in, out)
	})
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		return errUnauthorized
	}
	if resp.StatusCode >= 300 {
		return &upstream.StatusError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode shiprocket response: %w", err)
	}
	return nil
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	ctx, span := c.tracer.Start(ctx, "Shiprocket.Login")
	defer span.End()

	var resp loginResponse
	_, err := utils.ExecuteWithBreaker(c.breaker, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodPost, "/v1/external/auth/login", "", map[string]string{
			"email":    c.cfg.Email,
			"password": c.cfg.Password,
		}, &resp)
	})
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, c.logger, "Shiprocket login failed", zap.Error(err))

		return "", err
	}
	if resp.Token == "" {
		return "", &upstream.StatusError{Service: serviceName, StatusCode: http.StatusOK, Body: "login returned no token"}
	}

	c.token = resp.Token
	c.expiresAt = c.now().Add(tokenTTL)

	mylogger.Info(ctx, c.logger, "Shiprocket token refreshed")

	return c.token, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func TrackingURL(awb string) string {
	return "https://shiprocket.co/tracking/" + url.PathEscape(awb)
}

package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Sender interface {
	SendOrderPlaced(ctx context.Context, e domain.OrderCreatedPayload) error
	SendOrderShipped(ctx context.Context, e domain.OrderStatusChangedPayload) error
	SendOrderDelivered(ctx context.Context, e domain.OrderStatusChangedPayload) error
	SendOrderCancelled(ctx context.Context, e domain.OrderCancelledPayload) error
}

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	StoreURL string
}

// SendFunc has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpSender struct {
	cfg    Config
	send   SendFunc
	logger *zap.Logger
	tracer trace.Tracer
}

func NewSMTPSender(cfg Config, logger *zap.Logger) Sender {
	return newSender(cfg, smtp.SendMail, logger)
}

func newSender(cfg Config, send SendFunc, logger *zap.Logger) *smtpSender {
	if cfg.From == "" {
		cfg.From = cfg.User
	}

	return &smtpSender{
		cfg:    cfg,
		send:   send,
		logger: logger,
		tracer: otel.Tracer("infrastructure/email"),
	}
}

func (s *smtpSender) SendOrderPlaced(ctx context.Context, e domain.OrderCreatedPayload) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendOrderPlaced")
	defer span.End()

	span.SetAttributes(attribute.String("order_number", e.OrderNumber))

	body := fmt.Sprintf(`
		<h1>Thank you for your order, %s!</h1>
		<p>We have received order <b>%s</b> for <b>₹%s</b>.</p>
		<p>We will let you know as soon as it ships.</p>
		<a href="%s">View your order</a>
	`, html.EscapeString(e.Recipient.Name), e.OrderNumber, Rupees(e.TotalAmount), s.orderLink(e.OrderID))

	return s.deliver(ctx, span, e.Recipient.Email, "Order "+e.OrderNumber+" confirmed", body)
}

func (s *smtpSender) SendOrderShipped(ctx context.Context, e domain.OrderStatusChangedPayload) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendOrderShipped")
	defer span.End()

	span.SetAttributes(attribute.String("order_number", e.OrderNumber))

	tracking := ""
	if e.TrackingURL != "" {
		tracking = fmt.Sprintf(`<p>Tracking number %s. <a href="%s">Track your package</a></p>`,
			html.EscapeString(e.AWBCode), e.TrackingURL)
	}

	body := fmt.Sprintf(`
		<h1>Your order is on its way</h1>
		<p>Order <b>%s</b> has shipped%s.</p>
		%s
	`, e.OrderNumber, via(e.Courier), tracking)

	return s.deliver(ctx, span, e.Recipient.Email, "Order "+e.OrderNumber+" shipped", body)
}

func (s *smtpSender) SendOrderDelivered(ctx context.Context, e domain.OrderStatusChangedPayload) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendOrderDelivered")
	defer span.End()

	span.SetAttributes(attribute.String("order_number", e.OrderNumber))

	body := fmt.Sprintf(`
		<h1>Delivered!</h1>
		<p>Order <b>%s</b> has been delivered. We hope you love your award.</p>
		<a href="%s">View your order</a>
	`, e.OrderNumber, s.orderLink(e.OrderID))

	return s.deliver(ctx, span, e.Recipient.Email, "Order "+e.OrderNumber+" delivered", body)
}

func (s *smtpSender) SendOrderCancelled(ctx context.Context, e domain.OrderCancelledPayload) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendOrderCancelled")
	defer span.End()

	span.SetAttributes(attribute.String("order_number", e.OrderNumber))

	refund := ""
	if e.PaymentStatus == string(domain.PaymentRefunded) {
		refund = "<p>Your payment will be refunded to the original payment method.</p>"
	}

	body := fmt.Sprintf(`
		<h1>Order cancelled</h1>
		<p>Order <b>%s</b> has been cancelled.</p>
		%s
	`, e.OrderNumber, refund)

	return s.deliver(ctx, span, e.Recipient.Email, "Order "+e.OrderNumber+" cancelled", body)
}

func (s *smtpSender) deliver(ctx context.Context, span trace.Span, to, subject, body string) error {
	if to == "" {
		mylogger.Warn(ctx, s.logger, "Skipping email without recipient", zap.String("subject", subject))
		return nil
	}

	msg := []byte(buildMessage(s.cfg.From, to, subject, body))
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)

	mylogger.Info(ctx, s.logger, "Sending email", zap.String("to", to), zap.String("subject", subject))

	if err := s.send(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, s.logger, "Error sending email", zap.String("to", to), zap.String("subject", subject), zap.Error(err))

		return fmt.Errorf("failed to send mail: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Email sent successfully", zap.String("to", to))
	return nil
}

func (s *smtpSender) orderLink(orderID int64) string {
	return fmt.Sprintf("%s/orders/%d", strings.TrimRight(s.cfg.StoreURL, "/"), orderID)
}

func buildMessage(from, to, subject, body string) string {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n")
	b.WriteString(body)
	return b.String()
}

// Rupees formats paise as a rupee amount with two decimals.
func Rupees(paise int64) string {
	return decimal.New(paise, -2).StringFixed(2)
}

func via(courier string) string {
	if courier == "" {
		return ""
	}
	return " via " + html.EscapeString(courier)
}

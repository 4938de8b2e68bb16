package service_test

import (
	"fmt"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/razorpay"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
)

func (s *IntegrationTestSuite) placeRazorpayOrder(email string) (*domain.User, *service.PaymentOrder) {
	user := s.registerUser(email)
	s.fillCart(user.ID, 100000, 1)
	order := s.checkout(user.ID, domain.PaymentMethodRazorpay, "")

	po, err := s.PaymentService.CreatePaymentOrder(s.Ctx, user.ID, order.ID)
	s.Require().NoError(err)

	return user, po
}

func (s *IntegrationTestSuite) TestCreatePaymentOrder_ReusesOpenOrder() {
	user, po := s.placeRazorpayOrder("pay-reuse@example.com")

	s.NotEmpty(po.RazorpayOrderID)
	s.Equal("rzp_test_key", po.KeyID)
	s.Equal("INR", po.Currency)

	calls := s.razorpayCalls.Load()
	again, err := s.PaymentService.CreatePaymentOrder(s.Ctx, user.ID, po.OrderID)
	s.Require().NoError(err)

	s.Equal(po.RazorpayOrderID, again.RazorpayOrderID)
	s.Equal(calls, s.razorpayCalls.Load())

	order, err := s.OrderService.GetForUser(s.Ctx, user.ID, po.OrderID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentProcessing, order.PaymentStatus)
}

func (s *IntegrationTestSuite) TestCreatePaymentOrder_CODNotPayable() {
	user := s.registerUser("pay-cod@example.com")
	s.fillCart(user.ID, 100000, 1)
	order := s.checkout(user.ID, domain.PaymentMethodCOD, "")

	_, err := s.PaymentService.CreatePaymentOrder(s.Ctx, user.ID, order.ID)
	s.Require().ErrorIs(err, service.ErrPaymentNotRequired)
}

func (s *IntegrationTestSuite) TestVerifyPayment_Success() {
	user, po := s.placeRazorpayOrder("pay-ok@example.com")

	sig := razorpay.Sign(razorpaySecret, []byte(po.RazorpayOrderID+"|pay_001"))
	order, err := s.PaymentService.Verify(s.Ctx, user.ID, service.VerifyPaymentInput{
		RazorpayOrderID:   po.RazorpayOrderID,
		RazorpayPaymentID: "pay_001",
		Signature:         sig,
	})
	s.Require().NoError(err)

	s.Equal(domain.PaymentCompleted, order.PaymentStatus)
	s.Equal(domain.OrderStatusConfirmed, order.Status)
	s.Equal("pay_001", order.RazorpayPaymentID)
	s.NotNil(order.PaidAt)
	s.NotNil(order.ConfirmedAt)

	s.Equal([]string{
		domain.EventOrderCreated,
		domain.EventPaymentCompleted,
		domain.EventOrderStatusChanged,
	}, s.outboxEvents(order.ID))

	_, err = s.PaymentService.CreatePaymentOrder(s.Ctx, user.ID, order.ID)
	s.Require().ErrorIs(err, service.ErrOrderAlreadyPaid)

	_, err = s.OrderService.Cancel(s.Ctx, user.ID, order.ID)
	s.Require().ErrorIs(err, domain.ErrOrderNotCancellable)
}

func (s *IntegrationTestSuite) TestVerifyPayment_BadSignature() {
	user, po := s.placeRazorpayOrder("pay-bad@example.com")

	_, err := s.PaymentService.Verify(s.Ctx, user.ID, service.VerifyPaymentInput{
		RazorpayOrderID:   po.RazorpayOrderID,
		RazorpayPaymentID: "pay_002",
		Signature:         "deadbeef",
	})
	s.Require().ErrorIs(err, service.ErrInvalidSignature)

	order, err := s.OrderService.GetForUser(s.Ctx, user.ID, po.OrderID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentFailed, order.PaymentStatus)
	s.Equal(domain.OrderStatusNew, order.Status)

	again, err := s.PaymentService.CreatePaymentOrder(s.Ctx, user.ID, po.OrderID)
	s.Require().NoError(err, "a failed attempt can be retried")
	s.NotEqual(po.RazorpayOrderID, again.RazorpayOrderID)
}

func (s *IntegrationTestSuite) TestPaymentWebhook() {
	_, po := s.placeRazorpayOrder("pay-hook@example.com")

	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_hook","order_id":%q,"amount":118000,"status":"captured"}}}}`,
		po.RazorpayOrderID,
	))

	err := s.PaymentService.HandleWebhook(s.Ctx, body, "bad")
	s.Require().ErrorIs(err, service.ErrInvalidWebhook)

	sig := razorpay.Sign(razorpayHook, body)
	s.Require().NoError(s.PaymentService.HandleWebhook(s.Ctx, body, sig))
	s.Require().NoError(s.PaymentService.HandleWebhook(s.Ctx, body, sig), "redelivery is a no-op")

	events := s.outboxEvents(po.OrderID)
	completed := 0
	for _, ev := range events {
		if ev == domain.EventPaymentCompleted {
			completed++
		}
	}
	s.Equal(1, completed)

	unknown := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_unknown"}}}}`)
	s.Require().NoError(s.PaymentService.HandleWebhook(s.Ctx, unknown, razorpay.Sign(razorpayHook, unknown)))
}

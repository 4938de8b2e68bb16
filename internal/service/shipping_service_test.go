package service_test

import (
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/shiprocket"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
)

func (s *IntegrationTestSuite) shippedCODOrder(email string) (*domain.User, *domain.Order) {
	user := s.registerUser(email)
	s.fillCart(user.ID, 100000, 1)
	order := s.checkout(user.ID, domain.PaymentMethodCOD, "")

	shipped, err := s.ShippingService.CreateShipment(s.Ctx, order.ID)
	s.Require().NoError(err)

	return user, shipped
}

func (s *IntegrationTestSuite) TestCreateShipment_Success() {
	_, order := s.shippedCODOrder("ship@example.com")

	s.Equal("1771", order.ShipmentID)
	s.Equal("AWB123", order.AWBCode)
	s.Equal("Delhivery", order.Courier)
	s.Equal(domain.OrderStatusProcessing, order.Status)
	s.NotNil(order.ProcessingAt)

	_, err := s.ShippingService.CreateShipment(s.Ctx, order.ID)
	s.Require().ErrorIs(err, service.ErrShipmentExists)
}

func (s *IntegrationTestSuite) TestCreateShipment_UnpaidRazorpay() {
	user := s.registerUser("ship-unpaid@example.com")
	s.fillCart(user.ID, 100000, 1)
	order := s.checkout(user.ID, domain.PaymentMethodRazorpay, "")

	_, err := s.ShippingService.CreateShipment(s.Ctx, order.ID)
	s.Require().ErrorIs(err, service.ErrNotShippable)
}

func (s *IntegrationTestSuite) TestTrack_Ownership() {
	user, order := s.shippedCODOrder("track@example.com")
	other := s.registerUser("track-other@example.com")

	tracking, err := s.ShippingService.Track(s.Ctx, user.ID, false, order.AWBCode)
	s.Require().NoError(err)
	s.Equal("IN TRANSIT", tracking.CurrentStatus)

	_, err = s.ShippingService.Track(s.Ctx, other.ID, false, order.AWBCode)
	s.Require().ErrorIs(err, repository.ErrOrderNotFound)

	_, err = s.ShippingService.Track(s.Ctx, other.ID, true, order.AWBCode)
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestShippingWebhook_Milestones() {
	user, order := s.shippedCODOrder("hook@example.com")

	err := s.ShippingService.HandleWebhook(s.Ctx, "wrong", shiprocket.WebhookPayload{AWB: order.AWBCode, CurrentStatus: "DELIVERED"})
	s.Require().ErrorIs(err, service.ErrInvalidWebhook)

	s.Require().NoError(s.ShippingService.HandleWebhook(s.Ctx, webhookToken, shiprocket.WebhookPayload{AWB: order.AWBCode, CurrentStatus: "In Transit"}))

	got, err := s.OrderService.GetForUser(s.Ctx, user.ID, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusShipped, got.Status)

	s.Require().NoError(s.ShippingService.HandleWebhook(s.Ctx, webhookToken, shiprocket.WebhookPayload{AWB: order.AWBCode, CurrentStatus: "DELIVERED"}))
	s.Require().NoError(s.ShippingService.HandleWebhook(s.Ctx, webhookToken, shiprocket.WebhookPayload{AWB: order.AWBCode, CurrentStatus: "SHIPPED"}), "late updates are ignored")

	got, err = s.OrderService.GetForUser(s.Ctx, user.ID, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusDelivered, got.Status)
	s.NotNil(got.DeliveredAt)

	s.Require().NoError(s.ShippingService.HandleWebhook(s.Ctx, webhookToken, shiprocket.WebhookPayload{AWB: "NOPE", CurrentStatus: "DELIVERED"}))
}

package service_test

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	"go.uber.org/zap"
)

func (s *IntegrationTestSuite) createCoupon(code string, limit *int) *domain.Coupon {
	c, err := s.CouponService.Create(s.Ctx, &domain.Coupon{
		Code:          code,
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: 10,
		UsageLimit:    limit,
		IsActive:      true,
	})
	s.Require().NoError(err)
	return c
}

func (s *IntegrationTestSuite) TestCheckout_Success() {
	user := s.registerUser("checkout@example.com")
	s.fillCart(user.ID, 100000, 2)
	s.createCoupon("save10", nil)

	order := s.checkout(user.ID, domain.PaymentMethodRazorpay, "save10")

	s.NotEmpty(order.OrderNumber)
	s.Equal(domain.OrderStatusNew, order.Status)
	s.Equal(domain.PaymentPending, order.PaymentStatus)
	s.Equal(int64(200000), order.Subtotal)
	s.Equal(int64(36000), order.TaxAmount)
	s.Equal(int64(0), order.ShippingAmount)
	s.Equal(int64(20000), order.DiscountAmount)
	s.Equal(int64(216000), order.TotalAmount)
	s.Equal("SAVE10", order.CouponCode)
	s.Equal("Pune", order.Shipping.City)

	cart, err := s.CartService.Get(s.Ctx, domain.UserOwner(user.ID))
	s.Require().NoError(err)
	s.Empty(cart.Items)

	var timesUsed, usages int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT times_used FROM coupons WHERE code = 'SAVE10'`).Scan(&timesUsed))
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM coupon_usages WHERE order_id = $1`, order.ID).Scan(&usages))
	s.Equal(1, timesUsed)
	s.Equal(1, usages)

	s.Equal([]string{domain.EventOrderCreated}, s.outboxEvents(order.ID))

	s.Require().Eventually(func() bool {
		var publishedAt *time.Time
		err := s.DbPool.QueryRow(s.Ctx, `
			SELECT published_at FROM outbox
			WHERE aggregate_id = $1 AND event_type = $2
		`, strconv.FormatInt(order.ID, 10), domain.EventOrderCreated).Scan(&publishedAt)
		return err == nil && publishedAt != nil
	}, 10*time.Second, 100*time.Millisecond)
}

func (s *IntegrationTestSuite) TestCheckout_EmptyCart() {
	user := s.registerUser("empty@example.com")

	_, err := s.OrderService.Checkout(s.Ctx, user.ID, service.CheckoutInput{PaymentMethod: domain.PaymentMethodCOD})
	s.Require().ErrorIs(err, service.ErrCartEmpty)
}

func (s *IntegrationTestSuite) TestCheckout_SmallOrderPaysShipping() {
	user := s.registerUser("small@example.com")
	s.fillCart(user.ID, 50000, 1)

	order := s.checkout(user.ID, domain.PaymentMethodCOD, "")

	s.Equal(int64(9900), order.ShippingAmount)
	s.Equal(int64(50000+9000+9900), order.TotalAmount)
}

func (s *IntegrationTestSuite) TestCheckout_CouponLimitRollsBack() {
	limit := 1
	s.createCoupon("ONCE", &limit)

	first := s.registerUser("first@example.com")
	second := s.registerUser("second@example.com")
	s.fillCart(first.ID, 100000, 1)
	s.fillCart(second.ID, 100000, 1)

	s.checkout(first.ID, domain.PaymentMethodRazorpay, "ONCE")

	_, err := s.OrderService.Checkout(s.Ctx, second.ID, service.CheckoutInput{CouponCode: "once"})
	s.Require().ErrorIs(err, domain.ErrCouponExhausted)

	cart, err := s.CartService.Get(s.Ctx, domain.UserOwner(second.ID))
	s.Require().NoError(err)
	s.Len(cart.Items, 1, "failed checkout must leave the cart intact")

	orders, total, err := s.OrderService.ListForUser(s.Ctx, second.ID, 0, 0)
	s.Require().NoError(err)
	s.Empty(orders)
	s.Equal(int64(0), total)
}

func (s *IntegrationTestSuite) TestCheckout_StaleCartIsCleaned() {
	user := s.registerUser("stale@example.com")
	owner := domain.UserOwner(user.ID)

	gone, goneVariant := s.createProduct("Retired Plaque", 80000)
	kept, keptVariant := s.createProduct("Walnut Plaque", 120000)
	for _, in := range []service.AddItemInput{
		{ProductID: gone.ID, VariantID: &goneVariant, Quantity: 1},
		{ProductID: kept.ID, VariantID: &keptVariant, Quantity: 2},
	} {
		_, err := s.CartService.AddItem(s.Ctx, owner, in)
		s.Require().NoError(err)
	}

	s.Require().NoError(s.ProductService.Delete(s.Ctx, gone.ID))

	_, err := s.OrderService.Checkout(s.Ctx, user.ID, service.CheckoutInput{PaymentMethod: domain.PaymentMethodCOD})
	s.Require().ErrorIs(err, service.ErrCartChanged)

	cart, err := s.CartService.Get(s.Ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1, "removed product must be dropped from the stored cart")
	s.Equal(kept.ID, cart.Items[0].ProductID)
	s.Equal(2, cart.Items[0].Quantity)

	orders, _, err := s.OrderService.ListForUser(s.Ctx, user.ID, 0, 0)
	s.Require().NoError(err)
	s.Empty(orders)

	order := s.checkout(user.ID, domain.PaymentMethodCOD, "")
	s.Require().Len(order.Items, 1)
	s.Equal(int64(240000), order.Subtotal)
}

func (s *IntegrationTestSuite) TestRecordUsage_SameOrderTwice() {
	s.createCoupon("TWICE", nil)
	user := s.registerUser("twice@example.com")
	s.fillCart(user.ID, 100000, 1)

	order := s.checkout(user.ID, domain.PaymentMethodCOD, "TWICE")
	s.Require().NotNil(order.CouponID)

	couponRepo := repository.NewCouponRepository(s.DbPool, zap.NewNop())

	tx, err := s.DbPool.Begin(s.Ctx)
	s.Require().NoError(err)
	defer func() { _ = tx.Rollback(s.Ctx) }()

	err = couponRepo.RecordUsage(s.Ctx, tx, &domain.CouponUsage{
		CouponID:       *order.CouponID,
		UserID:         user.ID,
		OrderID:        order.ID,
		DiscountAmount: order.DiscountAmount,
	})
	s.Require().ErrorIs(err, repository.ErrCouponAlreadyApplied)
	s.Require().NoError(tx.Rollback(s.Ctx))

	var timesUsed, usages int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT times_used FROM coupons WHERE code = 'TWICE'`).Scan(&timesUsed))
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM coupon_usages WHERE order_id = $1`, order.ID).Scan(&usages))
	s.Equal(1, timesUsed)
	s.Equal(1, usages)
}

func (s *IntegrationTestSuite) TestCheckout_ConcurrentCouponRedemption() {
	limit := 1
	s.createCoupon("RACE", &limit)

	users := make([]*domain.User, 4)
	for i := range users {
		users[i] = s.registerUser("race" + strconv.Itoa(i) + "@example.com")
		s.fillCart(users[i].ID, 100000, 1)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(users))
	for i, u := range users {
		wg.Add(1)
		go func(i int, userID int64) {
			defer wg.Done()
			_, errs[i] = s.OrderService.Checkout(s.Ctx, userID, service.CheckoutInput{CouponCode: "RACE"})
		}(i, u.ID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(errors.Is(err, domain.ErrCouponExhausted), "unexpected error: %v", err)
	}
	s.Equal(1, succeeded)
}

func (s *IntegrationTestSuite) TestCancelOrder_Success() {
	user := s.registerUser("cancel@example.com")
	s.fillCart(user.ID, 100000, 1)
	order := s.checkout(user.ID, domain.PaymentMethodCOD, "")

	cancelled, err := s.OrderService.Cancel(s.Ctx, user.ID, order.ID)
	s.Require().NoError(err)

	s.Equal(domain.OrderStatusCancelled, cancelled.Status)
	s.Equal(domain.PaymentCancelled, cancelled.PaymentStatus)
	s.NotNil(cancelled.CancelledAt)
	s.Equal([]string{domain.EventOrderCreated, domain.EventOrderCancelled}, s.outboxEvents(order.ID))

	_, err = s.OrderService.Cancel(s.Ctx, user.ID, order.ID)
	s.Require().NoError(err)
	s.Len(s.outboxEvents(order.ID), 2)
}

func (s *IntegrationTestSuite) TestCancelOrder_AfterShipping() {
	user := s.registerUser("late-cancel@example.com")
	s.fillCart(user.ID, 100000, 1)
	order := s.checkout(user.ID, domain.PaymentMethodCOD, "")

	_, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusProcessing)
	s.Require().NoError(err)

	_, err = s.OrderService.Cancel(s.Ctx, user.ID, order.ID)
	s.Require().ErrorIs(err, domain.ErrOrderNotCancellable)
}

func (s *IntegrationTestSuite) TestCancelOrder_OtherUser() {
	owner := s.registerUser("owner@example.com")
	other := s.registerUser("other@example.com")
	s.fillCart(owner.ID, 100000, 1)
	order := s.checkout(owner.ID, domain.PaymentMethodCOD, "")

	_, err := s.OrderService.Cancel(s.Ctx, other.ID, order.ID)
	s.Require().ErrorIs(err, repository.ErrOrderNotFound)
}

func (s *IntegrationTestSuite) TestUpdateStatus_ForwardOnly() {
	user := s.registerUser("status@example.com")
	s.fillCart(user.ID, 100000, 1)
	order := s.checkout(user.ID, domain.PaymentMethodCOD, "")

	shipped, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusShipped)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusShipped, shipped.Status)
	s.Require().NotNil(shipped.ShippedAt)
	stamped := *shipped.ShippedAt

	again, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusShipped)
	s.Require().NoError(err)
	s.WithinDuration(stamped, *again.ShippedAt, time.Millisecond)

	_, err = s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusConfirmed)
	s.Require().ErrorIs(err, domain.ErrInvalidTransition)

	s.Equal([]string{domain.EventOrderCreated, domain.EventOrderStatusChanged}, s.outboxEvents(order.ID))
}

func (s *IntegrationTestSuite) TestDeleteOrder_HidesFromListings() {
	user := s.registerUser("delete@example.com")
	s.fillCart(user.ID, 100000, 1)
	order := s.checkout(user.ID, domain.PaymentMethodCOD, "")

	s.Require().NoError(s.OrderService.Delete(s.Ctx, order.ID))

	orders, _, err := s.OrderService.ListAll(s.Ctx, repository.OrderFilter{Limit: 10})
	s.Require().NoError(err)
	s.Empty(orders)

	_, err = s.OrderService.GetForUser(s.Ctx, user.ID, order.ID)
	s.Require().ErrorIs(err, repository.ErrOrderNotFound)
}

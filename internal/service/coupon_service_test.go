package service_test

import (
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
)

func (s *IntegrationTestSuite) TestCoupon_QuoteAndDeactivate() {
	maxDiscount := int64(15000)
	c, err := s.CouponService.Create(s.Ctx, &domain.Coupon{
		Code:              " welcome ",
		DiscountType:      domain.DiscountPercentage,
		DiscountValue:     20,
		MinOrderAmount:    50000,
		MaxDiscountAmount: &maxDiscount,
		IsActive:          true,
	})
	s.Require().NoError(err)
	s.Equal("WELCOME", c.Code)

	quote, err := s.CouponService.Quote(s.Ctx, "Welcome", 100000)
	s.Require().NoError(err)
	s.Equal(int64(15000), quote.Discount)
	s.Equal(int64(85000), quote.FinalAmount)

	_, err = s.CouponService.Quote(s.Ctx, "WELCOME", 10000)
	s.Require().ErrorIs(err, domain.ErrCouponMinOrder)

	_, err = s.CouponService.Create(s.Ctx, &domain.Coupon{Code: "welcome", DiscountType: domain.DiscountFixed, DiscountValue: 100, IsActive: true})
	s.Require().ErrorIs(err, repository.ErrCouponCodeTaken)

	s.Require().NoError(s.CouponService.Deactivate(s.Ctx, c.ID))

	_, err = s.CouponService.Quote(s.Ctx, "WELCOME", 100000)
	s.Require().ErrorIs(err, domain.ErrCouponInactive)
}

func (s *IntegrationTestSuite) TestCoupon_Update() {
	c := s.createCoupon("FLAT", nil)

	fixed := domain.DiscountFixed
	value := int64(5000)
	updated, err := s.CouponService.Update(s.Ctx, c.ID, &service.UpdateCouponInput{DiscountType: &fixed, DiscountValue: &value})
	s.Require().NoError(err)
	s.Equal(domain.DiscountFixed, updated.DiscountType)

	quote, err := s.CouponService.Quote(s.Ctx, "FLAT", 3000)
	s.Require().NoError(err)
	s.Equal(int64(3000), quote.Discount, "discount never exceeds the order")
	s.Equal(int64(0), quote.FinalAmount)
}

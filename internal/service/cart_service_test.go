package service_test

import (
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
)

func (s *IntegrationTestSuite) TestCart_AddMergesSameVariant() {
	user := s.registerUser("cart@example.com")
	owner := domain.UserOwner(user.ID)
	p, variantID := s.createProduct("Crystal Trophy", 150000)

	_, err := s.CartService.AddItem(s.Ctx, owner, service.AddItemInput{ProductID: p.ID, VariantID: &variantID, Quantity: 1})
	s.Require().NoError(err)

	cart, err := s.CartService.AddItem(s.Ctx, owner, service.AddItemInput{ProductID: p.ID, VariantID: &variantID, Quantity: 2})
	s.Require().NoError(err)

	s.Require().Len(cart.Items, 1)
	s.Equal(3, cart.Items[0].Quantity)
	s.Equal(3, cart.TotalItems)
	s.Equal(int64(450000), cart.TotalAmount)

	stored, err := s.CartService.Get(s.Ctx, owner)
	s.Require().NoError(err)
	s.Equal(cart.TotalAmount, stored.TotalAmount)
}

func (s *IntegrationTestSuite) TestCart_UpdateToZeroRemoves() {
	user := s.registerUser("cart-zero@example.com")
	owner := domain.UserOwner(user.ID)
	p, variantID := s.createProduct("Acrylic Plaque", 99900)

	cart, err := s.CartService.AddItem(s.Ctx, owner, service.AddItemInput{ProductID: p.ID, VariantID: &variantID, Quantity: 1})
	s.Require().NoError(err)

	cart, err = s.CartService.UpdateItem(s.Ctx, owner, cart.Items[0].ID, 0)
	s.Require().NoError(err)

	s.Empty(cart.Items)
	s.Equal(int64(0), cart.TotalAmount)
	s.Equal(0, cart.TotalItems)
}

func (s *IntegrationTestSuite) TestCart_ValidateDropsDeletedProduct() {
	user := s.registerUser("cart-validate@example.com")
	owner := domain.UserOwner(user.ID)
	keep, keepVariant := s.createProduct("Walnut Plaque", 120000)
	gone, goneVariant := s.createProduct("Retired Plaque", 80000)

	_, err := s.CartService.AddItem(s.Ctx, owner, service.AddItemInput{ProductID: keep.ID, VariantID: &keepVariant, Quantity: 1})
	s.Require().NoError(err)
	_, err = s.CartService.AddItem(s.Ctx, owner, service.AddItemInput{ProductID: gone.ID, VariantID: &goneVariant, Quantity: 1})
	s.Require().NoError(err)

	s.Require().NoError(s.ProductService.Delete(s.Ctx, gone.ID))

	res, err := s.CartService.Validate(s.Ctx, owner)
	s.Require().NoError(err)

	s.Require().Len(res.Errors, 1)
	s.Equal(gone.ID, res.Errors[0].ProductID)
	s.Require().Len(res.Cart.Items, 1)
	s.Equal(keep.ID, res.Cart.Items[0].ProductID)
	s.Equal(int64(120000), res.Cart.TotalAmount)
}

func (s *IntegrationTestSuite) TestCart_MergeGuestIntoUser() {
	user := s.registerUser("merge@example.com")
	guest := s.CartService.NewGuest()
	p, variantID := s.createProduct("Glass Award", 50000)

	_, err := s.CartService.AddItem(s.Ctx, guest, service.AddItemInput{ProductID: p.ID, VariantID: &variantID, Quantity: 2})
	s.Require().NoError(err)
	_, err = s.CartService.AddItem(s.Ctx, domain.UserOwner(user.ID), service.AddItemInput{ProductID: p.ID, VariantID: &variantID, Quantity: 1})
	s.Require().NoError(err)

	cart, err := s.CartService.Merge(s.Ctx, user.ID, guest.ID)
	s.Require().NoError(err)

	s.Require().Len(cart.Items, 1)
	s.Equal(3, cart.Items[0].Quantity)
	s.Equal(int64(150000), cart.TotalAmount)

	guestCart, err := s.CartService.Get(s.Ctx, guest)
	s.Require().NoError(err)
	s.Empty(guestCart.Items)
}

func (s *IntegrationTestSuite) TestCart_SyncUsesCatalogPrices() {
	guest := s.CartService.NewGuest()
	p, variantID := s.createProduct("Metal Medal", 30000)

	local := &domain.Cart{
		Owner: guest,
		Items: []domain.CartItem{{ProductID: p.ID, VariantID: &variantID, Name: "Metal Medal", Price: 1, Quantity: 4}},
	}

	res, err := s.CartService.Sync(s.Ctx, guest, local)
	s.Require().NoError(err)

	s.True(res.Synced)
	s.Require().Len(res.Cart.Items, 1)
	s.Equal(int64(30000), res.Cart.Items[0].Price)
	s.Equal(int64(120000), res.Cart.TotalAmount)
}

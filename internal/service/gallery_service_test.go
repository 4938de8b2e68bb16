package service_test

import (
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
)

func (s *IntegrationTestSuite) TestGallery_CreateListDelete() {
	item, err := s.GalleryService.Create(s.Ctx, &domain.GalleryItem{Title: "Annual awards night", ImageURL: "https://cdn.example.com/g1.jpg", Category: "events"})
	s.Require().NoError(err)

	items, err := s.GalleryService.List(s.Ctx, "events")
	s.Require().NoError(err)
	s.Len(items, 1)

	s.Require().NoError(s.GalleryService.Delete(s.Ctx, item.ID))

	items, err = s.GalleryService.List(s.Ctx, "")
	s.Require().NoError(err)
	s.Empty(items)

	s.Require().ErrorIs(s.GalleryService.Delete(s.Ctx, item.ID), repository.ErrGalleryItemNotFound)
}

func (s *IntegrationTestSuite) TestCustomization_GuestSubmission() {
	p, _ := s.createProduct("Engraved Plaque", 100000)
	guest := s.CartService.NewGuest()

	c, err := s.GalleryService.SubmitCustomization(s.Ctx, guest, &domain.Customization{
		ProductID:     p.ID,
		EngravingText: " Employee of the Year ",
		Font:          "serif",
	})
	s.Require().NoError(err)
	s.Nil(c.UserID)
	s.Require().NotNil(c.GuestID)
	s.Equal(guest.ID, *c.GuestID)
	s.Equal("Employee of the Year", c.EngravingText)

	list, total, err := s.GalleryService.ListCustomizations(s.Ctx, 0, 0)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(list, 1)

	s.Require().NoError(s.ProductService.Delete(s.Ctx, p.ID))
	_, err = s.GalleryService.SubmitCustomization(s.Ctx, guest, &domain.Customization{ProductID: p.ID})
	s.Require().ErrorIs(err, repository.ErrProductNotFound)
}

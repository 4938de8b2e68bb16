package service_test

import (
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
)

func (s *IntegrationTestSuite) TestCreateProduct_UniqueSlugs() {
	first, err := s.ProductService.Create(s.Ctx, service.CreateProductInput{Name: "Gold Plaque", BasePrice: 100000})
	s.Require().NoError(err)
	second, err := s.ProductService.Create(s.Ctx, service.CreateProductInput{Name: "Gold  Plaque!", BasePrice: 100000})
	s.Require().NoError(err)

	s.Equal("gold-plaque", first.Slug)
	s.Equal("gold-plaque-2", second.Slug)
}

func (s *IntegrationTestSuite) TestCreateProduct_FirstImageIsPrimary() {
	p, err := s.ProductService.Create(s.Ctx, service.CreateProductInput{
		Name:      "Silver Shield",
		BasePrice: 80000,
		Images: []domain.ProductImage{
			{URL: "https://cdn.example.com/a.jpg"},
			{URL: "https://cdn.example.com/b.jpg"},
		},
	})
	s.Require().NoError(err)
	s.Require().Len(p.Images, 2)
	s.True(p.Images[0].IsPrimary)
	s.False(p.Images[1].IsPrimary)

	p, err = s.ProductService.SetPrimaryImage(s.Ctx, p.Images[1].ID)
	s.Require().NoError(err)

	primaries := 0
	for _, img := range p.Images {
		if img.IsPrimary {
			primaries++
			s.Equal("https://cdn.example.com/b.jpg", img.URL)
		}
	}
	s.Equal(1, primaries)
}

func (s *IntegrationTestSuite) TestSetFeatured_SingleProduct() {
	a, _ := s.createProduct("Featured A", 100000)
	b, _ := s.createProduct("Featured B", 100000)

	_, err := s.ProductService.SetFeatured(s.Ctx, a.ID, true)
	s.Require().NoError(err)

	featured, err := s.ProductService.GetFeatured(s.Ctx)
	s.Require().NoError(err)
	s.Equal(a.ID, featured.ID)

	_, err = s.ProductService.SetFeatured(s.Ctx, b.ID, true)
	s.Require().NoError(err)

	featured, err = s.ProductService.GetFeatured(s.Ctx)
	s.Require().NoError(err)
	s.Equal(b.ID, featured.ID, "cache must be invalidated on write")

	var count int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM products WHERE is_featured`).Scan(&count))
	s.Equal(1, count)
}

func (s *IntegrationTestSuite) TestGetBySlug_CacheInvalidatedOnUpdate() {
	p, _ := s.createProduct("Cached Trophy", 100000)

	got, err := s.ProductService.GetBySlug(s.Ctx, p.Slug)
	s.Require().NoError(err)
	s.Equal(int64(100000), got.BasePrice)

	n, err := s.Redis.Exists(s.Ctx, "product:slug:"+p.Slug).Result()
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	price := int64(125000)
	_, err = s.ProductService.Update(s.Ctx, p.ID, &domain.UpdateProductInput{BasePrice: &price})
	s.Require().NoError(err)

	got, err = s.ProductService.GetBySlug(s.Ctx, p.Slug)
	s.Require().NoError(err)
	s.Equal(price, got.BasePrice)

	s.Require().NoError(s.ProductService.Delete(s.Ctx, p.ID))

	_, err = s.ProductService.GetBySlug(s.Ctx, p.Slug)
	s.Require().ErrorIs(err, repository.ErrProductNotFound)
}

func (s *IntegrationTestSuite) TestListProducts_HidesInactive() {
	s.createProduct("Visible Plaque", 100000)
	hidden, _ := s.createProduct("Hidden Plaque", 100000)

	inactive := false
	_, err := s.ProductService.Update(s.Ctx, hidden.ID, &domain.UpdateProductInput{IsActive: &inactive})
	s.Require().NoError(err)

	products, total, err := s.ProductService.List(s.Ctx, domain.ProductFilter{Search: "plaque", Limit: 10})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(products, 1)
	s.Equal("Visible Plaque", products[0].Name)
}

func (s *IntegrationTestSuite) TestVariants() {
	p, variantID := s.createProduct("Variant Plaque", 100000)

	p, err := s.ProductService.AddVariant(s.Ctx, p.ID, &domain.ProductVariant{Size: "12x15", SKU: "variant-plaque-12x15", Price: 150000, IsActive: true})
	s.Require().NoError(err)
	s.Len(p.Variants, 2)

	_, err = s.ProductService.AddVariant(s.Ctx, p.ID, &domain.ProductVariant{Size: "dup", SKU: "variant-plaque-12x15", Price: 1, IsActive: true})
	s.Require().ErrorIs(err, repository.ErrSKUTaken)

	p, err = s.ProductService.DeleteVariant(s.Ctx, variantID)
	s.Require().NoError(err)
	s.Require().Len(p.Variants, 1)
	s.Equal("12x15", p.Variants[0].Size)
}

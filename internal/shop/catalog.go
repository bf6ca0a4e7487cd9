package shop

import (
	"context"

	"github.com/optiplus/storefront/internal/models"
	"github.com/optiplus/storefront/internal/store"
)

const (
	homeFeaturedLimit = 8
	homeBrandLimit    = 6
	relatedLimit      = 4
)

type HomeView struct {
	Featured   []models.Product  `json:"featured_products"`
	Brands     []models.Brand    `json:"brands"`
	Categories []models.Category `json:"categories"`
}

func (s *Service) Home(ctx context.Context) (*HomeView, error) {
	featured, err := store.FeaturedProducts(ctx, s.db, homeFeaturedLimit)
	if err != nil {
		return nil, err
	}
	brands, err := store.ListBrands(ctx, s.db, true, homeBrandLimit)
	if err != nil {
		return nil, err
	}
	categories, err := store.ListCategories(ctx, s.db, true)
	if err != nil {
		return nil, err
	}

	return &HomeView{Featured: featured, Brands: brands, Categories: categories}, nil
}

func (s *Service) Products(ctx context.Context, filter store.ProductFilter, page int) (*store.OffsetPage, error) {
	return store.ListProducts(ctx, s.db, filter, page, store.DefaultPageSize)
}

// Offers lists in-stock products with a sale price.
func (s *Service) Offers(ctx context.Context, filter store.ProductFilter, page int) (*store.OffsetPage, error) {
	filter.OnSale = true
	return store.ListProducts(ctx, s.db, filter, page, store.DefaultPageSize)
}

func (s *Service) CategoryProducts(ctx context.Context, slug string, filter store.ProductFilter, page int) (*models.Category, *store.OffsetPage, error) {
	category, err := store.GetCategoryBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, nil, err
	}

	filter.CategorySlug = category.Slug
	products, err := store.ListProducts(ctx, s.db, filter, page, store.DefaultPageSize)
	if err != nil {
		return nil, nil, err
	}
	return category, products, nil
}

func (s *Service) BrandProducts(ctx context.Context, slug string, filter store.ProductFilter, page int) (*models.Brand, *store.OffsetPage, error) {
	brand, err := store.GetBrandBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, nil, err
	}

	filter.BrandSlug = brand.Slug
	products, err := store.ListProducts(ctx, s.db, filter, page, store.DefaultPageSize)
	if err != nil {
		return nil, nil, err
	}
	return brand, products, nil
}

func (s *Service) Brands(ctx context.Context) ([]models.Brand, error) {
	return store.ListBrands(ctx, s.db, true, 0)
}

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return store.ListCategories(ctx, s.db, true)
}

type ProductView struct {
	Product *models.Product  `json:"product"`
	Related []models.Product `json:"related_products"`
}

func (s *Service) Product(ctx context.Context, slug string) (*ProductView, error) {
	product, err := store.GetProductBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}

	related, err := store.RelatedProducts(ctx, s.db, product, relatedLimit)
	if err != nil {
		return nil, err
	}

	return &ProductView{Product: product, Related: related}, nil
}

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/models"
	"github.com/shopspring/decimal"
)

func TestListProductsFilters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cat := seedCatalog(t, db)

	cat.product(t, db, "Budget Round", "20.00", "")
	cat.product(t, db, "Mid Round", "60.00", "45.00")
	cat.product(t, db, "Luxury Round", "300.00", "")

	page, err := ListProducts(ctx, db, ProductFilter{
		MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(50)),
		Sort:     SortPriceLow,
	}, 1, 0)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}

	products := page.Items.([]models.Product)
	if len(products) != 2 || products[0].Name != "Mid Round" || products[1].Name != "Luxury Round" {
		t.Errorf("Unexpected price filter result: %+v", products)
	}

	offers, err := ListProducts(ctx, db, ProductFilter{OnSale: true}, 1, 0)
	if err != nil {
		t.Fatalf("List offers: %v", err)
	}
	if offers.Total != 1 {
		t.Errorf("Expected one offer, got %d", offers.Total)
	}

	search, err := ListProducts(ctx, db, ProductFilter{Query: "luxury"}, 1, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if search.Total != 1 {
		t.Errorf("Expected one search hit, got %d", search.Total)
	}

	wildcard, err := ListProducts(ctx, db, ProductFilter{Query: "%"}, 1, 0)
	if err != nil {
		t.Fatalf("Search wildcard: %v", err)
	}
	if wildcard.Total != 0 {
		t.Errorf("A literal %% should not match everything, got %d", wildcard.Total)
	}

	byBrand, err := ListProducts(ctx, db, ProductFilter{BrandSlug: cat.brand.Slug}, 1, 0)
	if err != nil {
		t.Fatalf("List by brand: %v", err)
	}
	if byBrand.Total != 3 {
		t.Errorf("Expected 3 products for brand, got %d", byBrand.Total)
	}
}

func TestListProductsClampsPage(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cat := seedCatalog(t, db)

	for _, name := range []string{"One", "Two", "Three"} {
		cat.product(t, db, name, "10.00", "")
	}

	page, err := ListProducts(ctx, db, ProductFilter{}, 99, 2)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if page.Page != 2 || page.TotalPages != 2 {
		t.Errorf("Expected clamp to page 2 of 2, got %d of %d", page.Page, page.TotalPages)
	}
	if len(page.Items.([]models.Product)) != 1 {
		t.Errorf("Expected 1 product on the last page")
	}
}

func TestGetProductBySlugHidesUnavailable(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cat := seedCatalog(t, db)
	product := cat.product(t, db, "Hidden Gem", "10.00", "")

	if product.Slug != "hidden-gem" {
		t.Errorf("Expected slug hidden-gem, got %s", product.Slug)
	}

	err := UpdateProduct(ctx, db, product.ID, ProductUpdate{Price: product.Price, IsAvailable: false}, product.Version)
	if err != nil {
		t.Fatalf("Update product: %v", err)
	}

	if _, err := GetProductBySlug(ctx, db, "hidden-gem"); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestOptimisticLocking(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cat := seedCatalog(t, db)
	product := cat.product(t, db, "Versioned", "10.00", "")

	upd := ProductUpdate{Price: decimal.NewFromInt(12), StockQuantity: 3, IsAvailable: true}
	if err := UpdateProduct(ctx, db, product.ID, upd, product.Version); err != nil {
		t.Fatalf("First update: %v", err)
	}

	err := UpdateProduct(ctx, db, product.ID, upd, product.Version)
	if !errors.Is(err, database.ErrOptimisticLockFailed) {
		t.Errorf("Expected ErrOptimisticLockFailed, got %v", err)
	}
}

func TestBrandsAndCategories(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cat := seedCatalog(t, db)

	if cat.brand.Slug != "ray-ban" {
		t.Errorf("Expected slug ray-ban, got %s", cat.brand.Slug)
	}

	if err := SetBrandActive(ctx, db, cat.brand.ID, false); err != nil {
		t.Fatalf("Deactivate brand: %v", err)
	}

	brands, err := ListBrands(ctx, db, true, 0)
	if err != nil {
		t.Fatalf("List brands: %v", err)
	}
	if len(brands) != 0 {
		t.Errorf("Expected no active brands, got %d", len(brands))
	}

	categories, err := ListCategories(ctx, db, true)
	if err != nil {
		t.Fatalf("List categories: %v", err)
	}
	if len(categories) != 1 {
		t.Errorf("Expected 1 category, got %d", len(categories))
	}

	if _, err := GetCategoryBySlug(ctx, db, "missing"); !errors.Is(err, database.ErrCategoryNotFound) {
		t.Errorf("Expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCreateUserUniqueness(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	nu := NewUser{Email: "Jane@Example.com", PhoneNumber: "+254700000001", FirstName: "Jane", PasswordHash: "x"}
	user, err := CreateUser(ctx, db, nu)
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	if user.Email != "jane@example.com" {
		t.Errorf("Expected lowercased email, got %s", user.Email)
	}

	dupEmail := nu
	dupEmail.PhoneNumber = "+254700000002"
	if _, err := CreateUser(ctx, db, dupEmail); !errors.Is(err, database.ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}

	dupPhone := nu
	dupPhone.Email = "other@example.com"
	if _, err := CreateUser(ctx, db, dupPhone); !errors.Is(err, database.ErrPhoneTaken) {
		t.Errorf("Expected ErrPhoneTaken, got %v", err)
	}

	if _, err := GetUserByEmail(ctx, db, "JANE@example.com"); err != nil {
		t.Errorf("Lookup should be case-insensitive: %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, created, err := Subscribe(ctx, db, "news@example.com")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if !created {
		t.Error("Expected a new subscriber")
	}

	_, created, err = Subscribe(ctx, db, "news@example.com")
	if err != nil {
		t.Fatalf("Subscribe again: %v", err)
	}
	if created {
		t.Error("Second subscribe should not create")
	}
}

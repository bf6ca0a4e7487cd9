package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/optiplus/storefront/internal/models"
	"github.com/shopspring/decimal"
)

type catalogFixture struct {
	brand    *models.Brand
	category *models.Category
}

func seedCatalog(t *testing.T, db *sql.DB) catalogFixture {
	t.Helper()
	ctx := context.Background()

	brand, err := CreateBrand(ctx, db, "Ray-Ban", "", "Classic frames")
	if err != nil {
		t.Fatalf("Create brand: %v", err)
	}

	category, err := CreateCategory(ctx, db, "Sunglasses", "", "Shades", 1)
	if err != nil {
		t.Fatalf("Create category: %v", err)
	}

	return catalogFixture{brand: brand, category: category}
}

func (f catalogFixture) product(t *testing.T, db *sql.DB, name, price, sale string) *models.Product {
	t.Helper()

	np := NewProduct{
		CategoryID:    f.category.ID,
		BrandID:       f.brand.ID,
		Name:          name,
		SKU:           "SKU-" + Slugify(name),
		Description:   name + " frames",
		FrameShape:    models.FrameShapeRound,
		FrameMaterial: models.FrameMaterialMetal,
		Price:         decimal.RequireFromString(price),
		StockQuantity: 10,
	}
	if sale != "" {
		np.SalePrice = decimal.NewNullDecimal(decimal.RequireFromString(sale))
	}

	product, err := CreateProduct(context.Background(), db, np)
	if err != nil {
		t.Fatalf("Create product %q: %v", name, err)
	}
	return product
}

var userSeq int

func createTestUser(t *testing.T, db *sql.DB) *models.User {
	t.Helper()
	userSeq++

	user, err := CreateUser(context.Background(), db, NewUser{
		Email:        fmt.Sprintf("user%d@example.com", userSeq),
		PhoneNumber:  fmt.Sprintf("+2547000000%02d", userSeq),
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func testDetails(user *models.User) OrderDetails {
	return OrderDetails{
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Email:         user.Email,
		Phone:         user.PhoneNumber,
		Address:       "1 Moi Avenue",
		City:          "Nairobi",
		PostalCode:    "00100",
		PaymentMethod: models.PaymentMethodMpesa,
	}
}

func userCart(t *testing.T, db *sql.DB, userID int64) *models.Cart {
	t.Helper()

	cart, err := ResolveUserCart(context.Background(), db, userID)
	if err != nil {
		t.Fatalf("Resolve user cart: %v", err)
	}
	return cart
}

func addItem(t *testing.T, db *sql.DB, cartID, productID int64, qty int) {
	t.Helper()

	if _, err := AddItem(context.Background(), db, cartID, productID, qty); err != nil {
		t.Fatalf("Add item: %v", err)
	}
}

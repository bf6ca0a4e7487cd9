package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

type Brand struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description,omitempty"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Product struct {
	ID            int64               `json:"id"`
	CategoryID    int64               `json:"category_id"`
	CategoryName  string              `json:"category_name"`
	BrandID       int64               `json:"brand_id"`
	BrandName     string              `json:"brand_name"`
	Name          string              `json:"name"`
	Slug          string              `json:"slug"`
	SKU           string              `json:"sku"`
	Description   string              `json:"description,omitempty"`
	FrameShape    string              `json:"frame_shape"`
	FrameMaterial string              `json:"frame_material"`
	Price         decimal.Decimal     `json:"price"`
	SalePrice     decimal.NullDecimal `json:"sale_price"`
	IsAvailable   bool                `json:"is_available"`
	InStock       bool                `json:"in_stock"`
	StockQuantity int                 `json:"stock_quantity"`
	Featured      bool                `json:"featured"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Version       int                 `json:"version"`
}

// EffectivePrice is the sale price when one is set, otherwise the list price.
func EffectivePrice(price decimal.Decimal, sale decimal.NullDecimal) decimal.Decimal {
	if sale.Valid {
		return sale.Decimal
	}
	return price
}

func (p *Product) EffectivePrice() decimal.Decimal {
	return EffectivePrice(p.Price, p.SalePrice)
}

// DiscountPercentage is zero for products without a sale price.
func (p *Product) DiscountPercentage() decimal.Decimal {
	if !p.SalePrice.Valid || p.Price.IsZero() {
		return decimal.Zero
	}
	return p.Price.Sub(p.SalePrice.Decimal).Div(p.Price).Mul(decimal.NewFromInt(100)).Round(2)
}

const (
	FrameShapeRound     = "round"
	FrameShapeSquare    = "square"
	FrameShapeOval      = "oval"
	FrameShapeRectangle = "rectangle"
	FrameShapeCatEye    = "cat_eye"
	FrameShapeAviator   = "aviator"
	FrameShapeWayfarer  = "wayfarer"
)

const (
	FrameMaterialMetal    = "metal"
	FrameMaterialPlastic  = "plastic"
	FrameMaterialAcetate  = "acetate"
	FrameMaterialTitanium = "titanium"
	FrameMaterialWood     = "wood"
)

var (
	FrameShapes    = []string{FrameShapeRound, FrameShapeSquare, FrameShapeOval, FrameShapeRectangle, FrameShapeCatEye, FrameShapeAviator, FrameShapeWayfarer}
	FrameMaterials = []string{FrameMaterialMetal, FrameMaterialPlastic, FrameMaterialAcetate, FrameMaterialTitanium, FrameMaterialWood}
)

// Cart is owned by exactly one of UserID or SessionKey.
type Cart struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id,omitempty"`
	SessionKey *string   `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cart_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Order struct {
	ID             int64           `json:"id"`
	OrderNumber    string          `json:"order_id"`
	UserID         *int64          `json:"user_id,omitempty"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	City           string          `json:"city"`
	PostalCode     string          `json:"postal_code"`
	Notes          string          `json:"order_notes,omitempty"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	PaymentPhone   *string         `json:"payment_phone,omitempty"`
	TransactionRef *string         `json:"transaction_ref,omitempty"`
	TrackingNumber *string         `json:"tracking_number,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
	Items          []OrderItem     `json:"items,omitempty"`
}

// OrderItem keeps the product name and unit price as they were at purchase.
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"-"`
	ProductID   *int64          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (i OrderItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Subscriber struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

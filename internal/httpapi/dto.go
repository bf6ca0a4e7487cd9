package httpapi

import (
	"time"

	"github.com/optiplus/storefront/internal/models"
	"github.com/optiplus/storefront/internal/store"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type productDTO struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Slug               string  `json:"slug"`
	SKU                string  `json:"sku"`
	Description        string  `json:"description"`
	Brand              string  `json:"brand"`
	Category           string  `json:"category"`
	FrameShape         string  `json:"frame_shape"`
	FrameMaterial      string  `json:"frame_material"`
	Price              string  `json:"price"`
	SalePrice          *string `json:"sale_price"`
	EffectivePrice     string  `json:"effective_price"`
	DiscountPercentage string  `json:"discount_percentage"`
	InStock            bool    `json:"in_stock"`
	StockQuantity      int     `json:"stock_quantity"`
	Featured           bool    `json:"featured"`
}

func toProduct(p *models.Product) productDTO {
	dto := productDTO{
		ID:                 p.ID,
		Name:               p.Name,
		Slug:               p.Slug,
		SKU:                p.SKU,
		Description:        p.Description,
		Brand:              p.BrandName,
		Category:           p.CategoryName,
		FrameShape:         p.FrameShape,
		FrameMaterial:      p.FrameMaterial,
		Price:              money(p.Price),
		EffectivePrice:     money(p.EffectivePrice()),
		DiscountPercentage: p.DiscountPercentage().Round(0).String(),
		InStock:            p.InStock,
		StockQuantity:      p.StockQuantity,
		Featured:           p.Featured,
	}
	if p.SalePrice.Valid {
		sale := money(p.SalePrice.Decimal)
		dto.SalePrice = &sale
	}
	return dto
}

func toProducts(products []models.Product) []productDTO {
	out := make([]productDTO, len(products))
	for i := range products {
		out[i] = toProduct(&products[i])
	}
	return out
}

type productPageDTO struct {
	Items      []productDTO `json:"items"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

func toProductPage(page *store.OffsetPage) productPageDTO {
	products, _ := page.Items.([]models.Product)
	return productPageDTO{
		Items:      toProducts(products),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
}

type cartLineDTO struct {
	ItemID      int64   `json:"item_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	ProductSlug string  `json:"product_slug"`
	Brand       string  `json:"brand"`
	Price       string  `json:"price"`
	SalePrice   *string `json:"sale_price"`
	UnitPrice   string  `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	Total       string  `json:"total"`
}

type cartDTO struct {
	Items     []cartLineDTO `json:"items"`
	Subtotal  string        `json:"subtotal"`
	Total     string        `json:"total"`
	ItemCount int           `json:"item_count"`
}

func toCart(summary *store.CartSummary) cartDTO {
	dto := cartDTO{
		Items:     make([]cartLineDTO, len(summary.Items)),
		Subtotal:  money(summary.Total),
		Total:     money(summary.Total),
		ItemCount: summary.ItemCount,
	}
	for i, line := range summary.Items {
		item := cartLineDTO{
			ItemID:      line.ItemID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			ProductSlug: line.ProductSlug,
			Brand:       line.BrandName,
			Price:       money(line.Price),
			UnitPrice:   money(line.UnitPrice),
			Quantity:    line.Quantity,
			Total:       money(line.LineTotal),
		}
		if line.SalePrice.Valid {
			sale := money(line.SalePrice.Decimal)
			item.SalePrice = &sale
		}
		dto.Items[i] = item
	}
	return dto
}

type orderItemDTO struct {
	ProductID   *int64 `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	Total       string `json:"total"`
}

type orderDTO struct {
	OrderID        string         `json:"order_id"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Address        string         `json:"address"`
	City           string         `json:"city"`
	PostalCode     string         `json:"postal_code"`
	Notes          string         `json:"order_notes"`
	TotalAmount    string         `json:"total_amount"`
	Status         string         `json:"status"`
	PaymentStatus  string         `json:"payment_status"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentPhone   *string        `json:"payment_phone,omitempty"`
	TransactionRef *string        `json:"transaction_ref,omitempty"`
	TrackingNumber *string        `json:"tracking_number,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Items          []orderItemDTO `json:"items,omitempty"`
}

func toOrder(o *models.Order) orderDTO {
	dto := orderDTO{
		OrderID:        o.OrderNumber,
		FirstName:      o.FirstName,
		LastName:       o.LastName,
		Email:          o.Email,
		Phone:          o.Phone,
		Address:        o.Address,
		City:           o.City,
		PostalCode:     o.PostalCode,
		Notes:          o.Notes,
		TotalAmount:    money(o.TotalAmount),
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		PaymentMethod:  string(o.PaymentMethod),
		PaymentPhone:   o.PaymentPhone,
		TransactionRef: o.TransactionRef,
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, orderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       money(item.Price),
			Quantity:    item.Quantity,
			Total:       money(item.Total()),
		})
	}
	return dto
}

type userDTO struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
}

func toUser(u *models.User) userDTO {
	return userDTO{
		ID:          u.ID,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
	}
}

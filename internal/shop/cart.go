package shop

import (
	"context"

	"github.com/optiplus/storefront/internal/models"
	"github.com/optiplus/storefront/internal/session"
	"github.com/optiplus/storefront/internal/store"
	"github.com/shopspring/decimal"
)

// Visitor identifies who is shopping. UserID is zero for anonymous visitors,
// whose cart is tracked by the session.
type Visitor struct {
	UserID  int64
	Session *session.Session
}

func (v Visitor) Authenticated() bool {
	return v.UserID != 0
}

type CartResult struct {
	Message string
	Summary *store.CartSummary
	// ItemTotal is the updated line total, zero when the line was removed.
	ItemTotal decimal.Decimal
	Removed   bool
}

// resolveCart returns the visitor's cart, creating it on first use. For
// anonymous visitors the session is updated to point at the cart.
func (s *Service) resolveCart(ctx context.Context, v Visitor) (*models.Cart, error) {
	if v.Authenticated() {
		return store.ResolveUserCart(ctx, s.db, v.UserID)
	}

	cart, _, err := store.ResolveSessionCart(ctx, s.db, v.Session.Token, v.Session.CartID)
	if err != nil {
		return nil, err
	}
	v.Session.CartID = cart.ID
	return cart, nil
}

func (s *Service) Cart(ctx context.Context, v Visitor) (*store.CartSummary, error) {
	cart, err := s.resolveCart(ctx, v)
	if err != nil {
		return nil, err
	}
	return store.GetCartSummary(ctx, s.db, cart.ID)
}

func (s *Service) AddToCart(ctx context.Context, v Visitor, productID int64, quantity int) (*CartResult, error) {
	cart, err := s.resolveCart(ctx, v)
	if err != nil {
		return nil, err
	}

	if _, err := store.AddItem(ctx, s.db, cart.ID, productID, quantity); err != nil {
		return nil, err
	}

	summary, err := store.GetCartSummary(ctx, s.db, cart.ID)
	if err != nil {
		return nil, err
	}

	name := "Item"
	for _, line := range summary.Items {
		if line.ProductID == productID {
			name = line.ProductName
			break
		}
	}

	return &CartResult{Message: name + " added to cart", Summary: summary}, nil
}

func (s *Service) UpdateCartItem(ctx context.Context, v Visitor, itemID int64, quantity int) (*CartResult, error) {
	cart, err := s.resolveCart(ctx, v)
	if err != nil {
		return nil, err
	}

	_, removed, err := store.UpdateItem(ctx, s.db, cart.ID, itemID, quantity)
	if err != nil {
		return nil, err
	}

	summary, err := store.GetCartSummary(ctx, s.db, cart.ID)
	if err != nil {
		return nil, err
	}

	result := &CartResult{Summary: summary, Removed: removed, ItemTotal: decimal.Zero}
	if removed {
		result.Message = "Item removed from cart"
	} else {
		result.Message = "Cart updated successfully"
		if line, ok := summary.Line(itemID); ok {
			result.ItemTotal = line.LineTotal
		}
	}
	return result, nil
}

func (s *Service) RemoveCartItem(ctx context.Context, v Visitor, itemID int64) (*CartResult, error) {
	cart, err := s.resolveCart(ctx, v)
	if err != nil {
		return nil, err
	}

	if err := store.RemoveItem(ctx, s.db, cart.ID, itemID); err != nil {
		return nil, err
	}

	summary, err := store.GetCartSummary(ctx, s.db, cart.ID)
	if err != nil {
		return nil, err
	}

	return &CartResult{
		Message:   "Item removed from cart",
		Summary:   summary,
		ItemTotal: decimal.Zero,
		Removed:   true,
	}, nil
}

func (s *Service) ClearCart(ctx context.Context, v Visitor) (*CartResult, error) {
	cart, err := s.resolveCart(ctx, v)
	if err != nil {
		return nil, err
	}

	if _, err := store.ClearCart(ctx, s.db, cart.ID); err != nil {
		return nil, err
	}

	summary, err := store.GetCartSummary(ctx, s.db, cart.ID)
	if err != nil {
		return nil, err
	}

	return &CartResult{Message: "Cart cleared", Summary: summary, ItemTotal: decimal.Zero}, nil
}

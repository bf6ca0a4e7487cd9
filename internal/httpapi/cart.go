package httpapi

import (
	"net/http"

	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/shop"
)

const cartPath = "/cart"

func (s *Server) visitor(r *http.Request) shop.Visitor {
	return shop.Visitor{UserID: userIDFrom(r.Context()), Session: sessionFrom(r.Context())}
}

func (s *Server) handleCartDetail(w http.ResponseWriter, r *http.Request) {
	summary, err := s.shop.Cart(r.Context(), s.visitor(r))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.page(w, r, payload{"cart": toCart(summary)})
}

func cartExtra(result *shop.CartResult) payload {
	return payload{
		"cart_total": money(result.Summary.Total),
		"cart_count": result.Summary.ItemCount,
	}
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productID")
	if !ok {
		s.fail(w, r, database.ErrProductNotFound, cartPath)
		return
	}

	values, err := formValues(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "Malformed request body.", nil)
		return
	}
	qty, ok := quantity(values, 1)
	if !ok {
		s.fail(w, r, database.ErrInvalidQuantity, cartPath)
		return
	}

	result, err := s.shop.AddToCart(r.Context(), s.visitor(r), productID, qty)
	if err != nil {
		s.fail(w, r, err, cartPath)
		return
	}

	s.done(w, r, outcome{message: result.Message, redirect: cartPath, extra: cartExtra(result)})
}

func (s *Server) handleUpdateCart(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemID")
	if !ok {
		s.fail(w, r, database.ErrCartItemNotFound, cartPath)
		return
	}

	values, err := formValues(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "Malformed request body.", nil)
		return
	}
	qty, ok := quantity(values, 0)
	if !ok {
		s.fail(w, r, database.ErrInvalidQuantity, cartPath)
		return
	}

	result, err := s.shop.UpdateCartItem(r.Context(), s.visitor(r), itemID, qty)
	if err != nil {
		s.fail(w, r, err, cartPath)
		return
	}

	extra := cartExtra(result)
	extra["item_total"] = money(result.ItemTotal)
	s.done(w, r, outcome{message: result.Message, redirect: cartPath, extra: extra})
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemID")
	if !ok {
		s.fail(w, r, database.ErrCartItemNotFound, cartPath)
		return
	}

	result, err := s.shop.RemoveCartItem(r.Context(), s.visitor(r), itemID)
	if err != nil {
		s.fail(w, r, err, cartPath)
		return
	}

	s.done(w, r, outcome{message: result.Message, redirect: cartPath, extra: cartExtra(result)})
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	result, err := s.shop.ClearCart(r.Context(), s.visitor(r))
	if err != nil {
		s.fail(w, r, err, cartPath)
		return
	}

	s.done(w, r, outcome{message: result.Message, redirect: cartPath, extra: cartExtra(result)})
}

package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/models"
	"github.com/optiplus/storefront/internal/session"
	"github.com/optiplus/storefront/internal/shop"
	"go.uber.org/zap"
)

func orderPath(orderNumber, suffix string) string {
	return "/orders/" + orderNumber + suffix
}

func (s *Server) handleOrderList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := s.shop.Orders(r.Context(), userIDFrom(r.Context()), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	orders, _ := page.Items.([]models.Order)
	out := make([]orderDTO, len(orders))
	for i := range orders {
		out[i] = toOrder(&orders[i])
	}

	s.page(w, r, payload{
		"orders":      out,
		"next_cursor": page.NextCursor,
		"has_more":    page.HasMore,
	})
}

func (s *Server) handleCheckoutForm(w http.ResponseWriter, r *http.Request) {
	view, err := s.shop.CheckoutForm(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		if errors.Is(err, database.ErrCartEmpty) && !wantsJSON(r) {
			sessionFrom(r.Context()).AddFlash(session.FlashWarning, "Your cart is empty.")
			http.Redirect(w, r, cartPath, http.StatusSeeOther)
			return
		}
		s.fail(w, r, err, "")
		return
	}

	methods := make([]payload, len(view.PaymentMethods))
	for i, m := range view.PaymentMethods {
		methods[i] = payload{"value": m, "label": m.Label()}
	}

	s.page(w, r, payload{
		"form":            view.Form,
		"cart":            toCart(view.Cart),
		"payment_methods": methods,
		"total_amount":    money(view.Cart.Total),
		"shipping_cost":   "0.00",
	})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "Malformed request body.", nil)
		return
	}

	form := shop.CheckoutForm{
		FirstName:     values.Get("first_name"),
		LastName:      values.Get("last_name"),
		Email:         values.Get("email"),
		Phone:         values.Get("phone"),
		Address:       values.Get("address"),
		City:          values.Get("city"),
		PostalCode:    values.Get("postal_code"),
		Notes:         values.Get("order_notes"),
		PaymentMethod: values.Get("payment_method"),
	}

	userID := userIDFrom(r.Context())
	result, err := s.shop.Checkout(r.Context(), userID, form)
	if err != nil {
		fallback := "/orders/checkout"
		if errors.Is(err, database.ErrCartEmpty) {
			fallback = cartPath
		}
		s.fail(w, r, err, fallback)
		return
	}

	order := result.Order
	o := outcome{
		status:  http.StatusCreated,
		message: "Order placed successfully! Order ID: " + order.OrderNumber + ". A confirmation email has been sent to your email address.",
		extra: payload{
			"order":      toOrder(order),
			"email_sent": result.NotifyErr == nil,
		},
	}
	if result.NotifyErr != nil {
		s.logger.Warn("order placed without confirmation email",
			zap.String("order_id", order.OrderNumber),
			zap.Error(result.NotifyErr),
		)
		o.level = session.FlashWarning
		o.message = "Order placed successfully but there was an issue sending the confirmation email. " +
			"Please check your order details in your account."
	}

	if order.PaymentMethod == models.PaymentMethodMpesa {
		o.redirect = orderPath(order.OrderNumber, "/payment")
	} else {
		o.redirect = orderPath(order.OrderNumber, "/confirmation")
	}
	o.extra["redirect"] = o.redirect

	s.done(w, r, o)
}

func (s *Server) loadOrder(w http.ResponseWriter, r *http.Request) (*models.Order, bool) {
	order, err := s.shop.Order(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		s.fail(w, r, err, "")
		return nil, false
	}
	return order, true
}

func (s *Server) handleOrderDetail(w http.ResponseWriter, r *http.Request) {
	order, ok := s.loadOrder(w, r)
	if !ok {
		return
	}
	s.page(w, r, payload{"order": toOrder(order)})
}

func (s *Server) handleOrderConfirmation(w http.ResponseWriter, r *http.Request) {
	order, ok := s.loadOrder(w, r)
	if !ok {
		return
	}
	s.page(w, r, payload{
		"order":                     toOrder(order),
		"show_payment_instructions": order.PaymentStatus == models.PaymentStatusPending,
	})
}

func (s *Server) handlePaymentForm(w http.ResponseWriter, r *http.Request) {
	order, ok := s.loadOrder(w, r)
	if !ok {
		return
	}
	s.page(w, r, payload{"order": toOrder(order), "phone_number": order.Phone})
}

func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderID")

	values, err := formValues(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "Malformed request body.", nil)
		return
	}

	order, err := s.shop.ConfirmPayment(r.Context(), userIDFrom(r.Context()), orderNumber,
		shop.PaymentForm{PhoneNumber: values.Get("phone_number")})
	if err != nil {
		s.fail(w, r, err, orderPath(orderNumber, "/payment"))
		return
	}

	s.done(w, r, outcome{
		message:  "Payment processed successfully!",
		redirect: orderPath(order.OrderNumber, "/confirmation"),
		extra:    payload{"order": toOrder(order)},
	})
}

func (s *Server) handleResendEmail(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderID")

	err := s.shop.ResendConfirmation(r.Context(), userIDFrom(r.Context()), orderNumber)
	if errors.Is(err, database.ErrOrderNotFound) {
		s.fail(w, r, err, "/orders")
		return
	}
	if err != nil {
		s.logger.Warn("resend confirmation failed", zap.String("order_id", orderNumber), zap.Error(err))
		const msg = "Failed to send confirmation email. Please try again later."
		if wantsJSON(r) {
			respondError(w, http.StatusBadGateway, "email_failed", msg, nil)
			return
		}
		sessionFrom(r.Context()).AddFlash(session.FlashError, msg)
		http.Redirect(w, r, orderPath(orderNumber, ""), http.StatusSeeOther)
		return
	}

	s.done(w, r, outcome{
		message:  "Confirmation email has been resent.",
		redirect: orderPath(orderNumber, ""),
	})
}

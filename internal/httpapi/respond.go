package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/optiplus/storefront/internal/auth"
	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/session"
	"github.com/optiplus/storefront/internal/shop"
	"github.com/optiplus/storefront/internal/store"
	"go.uber.org/zap"
)

var quantityMessage = fmt.Sprintf("Quantity must be a whole number between 1 and %d.", store.MaxItemQuantity)

type payload map[string]any

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	body := payload{"success": false, "error": code, "message": message}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	respondJSON(w, status, body)
}

// page answers a read. Flash messages queued by earlier mutations are drained
// into the response.
func (s *Server) page(w http.ResponseWriter, r *http.Request, body payload) {
	if flashes := sessionFrom(r.Context()).PopFlashes(); len(flashes) > 0 {
		body["messages"] = flashes
	}
	respondJSON(w, http.StatusOK, body)
}

type outcome struct {
	status   int
	level    session.FlashLevel
	message  string
	redirect string
	extra    payload
}

// done answers a successful mutation: a JSON outcome for script callers, a
// flash message and a redirect for everyone else.
func (s *Server) done(w http.ResponseWriter, r *http.Request, o outcome) {
	if wantsJSON(r) {
		body := payload{"success": true, "message": o.message}
		for k, v := range o.extra {
			body[k] = v
		}
		status := o.status
		if status == 0 {
			status = http.StatusOK
		}
		respondJSON(w, status, body)
		return
	}

	level := o.level
	if level == "" {
		level = session.FlashSuccess
	}
	sessionFrom(r.Context()).AddFlash(level, o.message)
	http.Redirect(w, r, o.redirect, http.StatusSeeOther)
}

type apiError struct {
	status  int
	code    string
	message string
	fields  map[string]string
	retry   bool
}

func classify(err error) apiError {
	var verr *shop.ValidationError
	switch {
	case errors.As(err, &verr):
		return apiError{status: http.StatusUnprocessableEntity, code: "validation_failed",
			message: "Please correct the errors below.", fields: verr.Fields}
	case errors.Is(err, database.ErrInvalidQuantity):
		return apiError{status: http.StatusUnprocessableEntity, code: "validation_failed",
			message: quantityMessage,
			fields:  map[string]string{"quantity": quantityMessage}}
	case errors.Is(err, database.ErrInvalidCursor):
		return apiError{status: http.StatusBadRequest, code: "invalid_cursor",
			message: "The page cursor is not valid."}
	case errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrProductUnavailable):
		return apiError{status: http.StatusNotFound, code: "not_found", message: "Product not found."}
	case errors.Is(err, database.ErrCartItemNotFound):
		return apiError{status: http.StatusNotFound, code: "not_found", message: "Cart item not found."}
	case errors.Is(err, database.ErrOrderNotFound):
		return apiError{status: http.StatusNotFound, code: "not_found", message: "Order not found."}
	case errors.Is(err, database.ErrBrandNotFound),
		errors.Is(err, database.ErrCategoryNotFound),
		errors.Is(err, database.ErrUserNotFound):
		return apiError{status: http.StatusNotFound, code: "not_found", message: "Not found."}
	case errors.Is(err, database.ErrCartEmpty):
		return apiError{status: http.StatusConflict, code: "cart_empty", message: "Your cart is empty."}
	case errors.Is(err, database.ErrInvalidTransition):
		return apiError{status: http.StatusConflict, code: "invalid_transition",
			message: "This order cannot be changed in its current state."}
	case errors.Is(err, database.ErrUnsupportedPaymentMethod):
		return apiError{status: http.StatusConflict, code: "unsupported_payment_method",
			message: "This order is not paid by M-Pesa."}
	case errors.Is(err, database.ErrInvalidCredentials):
		return apiError{status: http.StatusUnauthorized, code: "invalid_credentials",
			message: "Invalid email or password."}
	case errors.Is(err, auth.ErrInvalidToken):
		return apiError{status: http.StatusUnauthorized, code: "unauthenticated",
			message: "Authentication required."}
	case database.IsRetryable(err),
		errors.Is(err, database.ErrOptimisticLockFailed),
		errors.Is(err, database.ErrOrderNumberExhausted):
		return apiError{status: http.StatusConflict, code: "transient_conflict",
			message: "The request conflicted with another update. Please try again.", retry: true}
	}
	return apiError{status: http.StatusInternalServerError, code: "internal_error",
		message: "Something went wrong. Please try again later."}
}

// fail answers an error. Page callers get the message as a flash and are sent
// to fallback; reads and script callers get a JSON error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	e := classify(err)
	if e.status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	if fallback != "" && !wantsJSON(r) {
		sess := sessionFrom(r.Context())
		sess.AddFlash(session.FlashError, e.message)
		for _, msg := range e.fields {
			sess.AddFlash(session.FlashError, msg)
		}
		http.Redirect(w, r, fallback, http.StatusSeeOther)
		return
	}

	if e.retry {
		w.Header().Set("Retry-After", "1")
	}
	respondError(w, e.status, e.code, e.message, e.fields)
}

// safeRedirect keeps redirects on this site.
func safeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") ||
		strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

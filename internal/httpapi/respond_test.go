package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/session"
	"github.com/optiplus/storefront/internal/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requestWithSession(method, target string) (*http.Request, *session.Session) {
	sess := session.New()
	r := httptest.NewRequest(method, target, nil)
	return r.WithContext(context.WithValue(r.Context(), sessionKey, sess)), sess
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&shop.ValidationError{Fields: map[string]string{"email": "required"}}, http.StatusUnprocessableEntity, "validation_failed"},
		{database.ErrInvalidQuantity, http.StatusUnprocessableEntity, "validation_failed"},
		{fmt.Errorf("add item: %w", database.ErrProductUnavailable), http.StatusNotFound, "not_found"},
		{database.ErrCartItemNotFound, http.StatusNotFound, "not_found"},
		{database.ErrOrderNotFound, http.StatusNotFound, "not_found"},
		{database.ErrCartEmpty, http.StatusConflict, "cart_empty"},
		{database.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{database.ErrUnsupportedPaymentMethod, http.StatusConflict, "unsupported_payment_method"},
		{database.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{database.ErrOptimisticLockFailed, http.StatusConflict, "transient_conflict"},
		{fmt.Errorf("decode cursor: %w", database.ErrInvalidCursor), http.StatusBadRequest, "invalid_cursor"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			e := classify(tt.err)
			assert.Equal(t, tt.status, e.status)
			assert.Equal(t, tt.code, e.code)
		})
	}

	assert.True(t, classify(database.ErrOrderNumberExhausted).retry)
}

func TestSafeRedirect(t *testing.T) {
	assert.Equal(t, "/orders/", safeRedirect("/orders/", "/"))
	assert.Equal(t, "/", safeRedirect("", "/"))
	assert.Equal(t, "/", safeRedirect("https://evil.example/", "/"))
	assert.Equal(t, "/", safeRedirect("//evil.example/", "/"))
	assert.Equal(t, "/", safeRedirect("/\\evil.example", "/"))
}

func TestWantsJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/cart/clear", nil)
	assert.False(t, wantsJSON(r))

	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	assert.True(t, wantsJSON(r))

	r = httptest.NewRequest(http.MethodPost, "/cart/clear", nil)
	r.Header.Set("Accept", "application/json, text/plain")
	assert.True(t, wantsJSON(r))
}

func TestDoneRedirectsWithFlash(t *testing.T) {
	s := &Server{logger: zap.NewNop()}
	r, sess := requestWithSession(http.MethodPost, "/cart/clear")
	w := httptest.NewRecorder()

	s.done(w, r, outcome{message: "Cart cleared", redirect: cartPath})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, cartPath, w.Header().Get("Location"))
	require.Len(t, sess.Flashes, 1)
	assert.Equal(t, session.Flash{Level: session.FlashSuccess, Message: "Cart cleared"}, sess.Flashes[0])
}

func TestDoneJSON(t *testing.T) {
	s := &Server{logger: zap.NewNop()}
	r, sess := requestWithSession(http.MethodPost, "/cart/clear")
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()

	s.done(w, r, outcome{message: "Cart cleared", redirect: cartPath, extra: payload{"cart_count": 0}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sess.Flashes)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Cart cleared", body["message"])
	assert.EqualValues(t, 0, body["cart_count"])
}

func TestFail(t *testing.T) {
	s := &Server{logger: zap.NewNop()}

	t.Run("page caller", func(t *testing.T) {
		r, sess := requestWithSession(http.MethodPost, "/cart/add/1")
		w := httptest.NewRecorder()

		s.fail(w, r, database.ErrProductNotFound, cartPath)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		require.Len(t, sess.Flashes, 1)
		assert.Equal(t, session.FlashError, sess.Flashes[0].Level)
	})

	t.Run("retryable", func(t *testing.T) {
		r, _ := requestWithSession(http.MethodPost, "/orders/checkout")
		r.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()

		s.fail(w, r, database.ErrOptimisticLockFailed, "/orders/checkout")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), `"transient_conflict"`)
	})

	t.Run("read", func(t *testing.T) {
		r, _ := requestWithSession(http.MethodGet, "/orders/OPT1")
		w := httptest.NewRecorder()

		s.fail(w, r, database.ErrOrderNotFound, "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "not_found", body["error"])
	})
}

func TestPageDrainsFlashes(t *testing.T) {
	s := &Server{logger: zap.NewNop()}
	r, sess := requestWithSession(http.MethodGet, "/cart")
	sess.AddFlash(session.FlashInfo, "hello")
	w := httptest.NewRecorder()

	s.page(w, r, payload{})

	assert.Empty(t, sess.Flashes)
	assert.Contains(t, w.Body.String(), "hello")
}

func TestQuantityBounds(t *testing.T) {
	n, ok := quantity(url.Values{}, 1)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	n, ok = quantity(url.Values{"quantity": {"3"}}, 1)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = quantity(url.Values{"quantity": {"3000000000"}}, 1)
	assert.False(t, ok)

	_, ok = quantity(url.Values{"quantity": {"two"}}, 1)
	assert.False(t, ok)
}

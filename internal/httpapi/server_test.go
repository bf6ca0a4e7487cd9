package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/optiplus/storefront/internal/auth"
	"github.com/optiplus/storefront/internal/config"
	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/models"
	"github.com/optiplus/storefront/internal/notify"
	"github.com/optiplus/storefront/internal/session"
	"github.com/optiplus/storefront/internal/shop"
	"github.com/optiplus/storefront/internal/store"
	"github.com/optiplus/storefront/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	svc := shop.NewService(db, notify.NewDispatcher(notify.NewLogSender(logger), logger), logger)
	srv := NewServer(svc,
		session.NewMemoryStore(time.Hour),
		auth.NewTokenIssuer("test-secret", time.Hour),
		config.SessionConfig{CookieName: "sessionid", TTL: time.Hour},
		logger,
	)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, db
}

func seedProduct(t *testing.T, db *sql.DB, name, price string) *models.Product {
	t.Helper()
	ctx := context.Background()

	brand, err := store.GetBrandBySlug(ctx, db, "oakley")
	if errors.Is(err, database.ErrBrandNotFound) {
		brand, err = store.CreateBrand(ctx, db, "Oakley", "oakley", "")
	}
	require.NoError(t, err)

	category, err := store.GetCategoryBySlug(ctx, db, "sunglasses")
	if errors.Is(err, database.ErrCategoryNotFound) {
		category, err = store.CreateCategory(ctx, db, "Sunglasses", "sunglasses", "", 1)
	}
	require.NoError(t, err)

	product, err := store.CreateProduct(ctx, db, store.NewProduct{
		CategoryID:    category.ID,
		BrandID:       brand.ID,
		Name:          name,
		SKU:           "SKU-" + store.Slugify(name),
		FrameShape:    models.FrameShapeWayfarer,
		FrameMaterial: models.FrameMaterialAcetate,
		Price:         decimal.RequireFromString(price),
		StockQuantity: 10,
	})
	require.NoError(t, err)
	return product
}

// client is a browser-like caller: it keeps cookies and does not follow
// redirects so tests can assert on them.
type client struct {
	t     *testing.T
	base  string
	http  *http.Client
	token string
}

func newClient(t *testing.T, ts *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: ts.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) send(req *http.Request) (*http.Response, map[string]any) {
	c.t.Helper()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	body := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func (c *client) get(path string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	return c.send(req)
}

func (c *client) getJSON(path string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	req.Header.Set("Accept", "application/json")
	return c.send(req)
}

func (c *client) postForm(path string, values url.Values) (*http.Response, map[string]any) {
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(values.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req)
}

func (c *client) postJSON(path string, body any) (*http.Response, map[string]any) {
	raw, err := json.Marshal(body)
	require.NoError(c.t, err)
	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(raw))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.send(req)
}

func (c *client) register(email, phone string) {
	c.t.Helper()
	resp, body := c.postJSON("/accounts/register", map[string]string{
		"email":        email,
		"phone_number": phone,
		"first_name":   "Achieng",
		"last_name":    "Otieno",
		"password1":    "correct-horse",
		"password2":    "correct-horse",
	})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode, body)
	c.token = body["token"].(string)
}

func messages(body map[string]any) []string {
	raw, _ := body["messages"].([]any)
	out := make([]string, 0, len(raw))
	for _, m := range raw {
		if flash, ok := m.(map[string]any); ok {
			out = append(out, fmt.Sprint(flash["message"]))
		}
	}
	return out
}

func cartItems(t *testing.T, body map[string]any) []map[string]any {
	t.Helper()
	cart, ok := body["cart"].(map[string]any)
	require.True(t, ok, "response has no cart: %v", body)
	raw, _ := cart["items"].([]any)
	items := make([]map[string]any, len(raw))
	for i, item := range raw {
		items[i] = item.(map[string]any)
	}
	return items
}

func TestAddToCartRedirectsWithFlash(t *testing.T) {
	ts, db := setupServer(t)
	product := seedProduct(t, db, "Holbrook", "120.00")
	c := newClient(t, ts)

	resp, _ := c.postForm(fmt.Sprintf("/cart/add/%d", product.ID), url.Values{"quantity": {"2"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))

	resp, body := c.get("/cart")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Holbrook added to cart"}, messages(body))

	items := cartItems(t, body)
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0]["quantity"])
	assert.Equal(t, "240.00", body["cart"].(map[string]any)["total"])

	_, body = c.get("/cart")
	assert.Empty(t, messages(body), "flashes are shown once")
}

func TestAddToCartJSON(t *testing.T) {
	ts, db := setupServer(t)
	product := seedProduct(t, db, "Frogskins", "90.00")
	c := newClient(t, ts)

	resp, body := c.postJSON(fmt.Sprintf("/cart/add/%d", product.ID), map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "270.00", body["cart_total"])
	assert.EqualValues(t, 3, body["cart_count"])

	resp, body = c.postJSON(fmt.Sprintf("/cart/add/%d", product.ID), map[string]any{"quantity": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["fields"], "quantity")

	resp, body = c.postJSON(fmt.Sprintf("/cart/add/%d", product.ID), map[string]any{"quantity": 3000000000})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["fields"], "quantity")

	resp, body = c.postJSON(fmt.Sprintf("/cart/add/%d", product.ID), map[string]any{"quantity": 999})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "line would pass the cap")
	assert.Contains(t, body["fields"], "quantity")

	resp, _ = c.postJSON("/cart/add/999999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrdersRequireAuthentication(t *testing.T) {
	ts, _ := setupServer(t)
	c := newClient(t, ts)

	resp, body := c.getJSON("/orders")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthenticated", body["error"])

	resp, _ = c.get("/orders/checkout")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/accounts/login?next=%2Forders%2Fcheckout", resp.Header.Get("Location"))

	c.token = "not-a-token"
	resp, _ = c.getJSON("/orders")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckoutAndPayment(t *testing.T) {
	ts, db := setupServer(t)
	product := seedProduct(t, db, "Radar EV", "150.00")
	c := newClient(t, ts)
	c.register("achieng@example.com", "+254711000001")

	resp, body := c.postJSON("/orders/checkout", map[string]string{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "cart_empty", body["error"])

	resp, _ = c.postJSON(fmt.Sprintf("/cart/add/%d", product.ID), map[string]any{"quantity": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = c.getJSON("/orders/checkout")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	form := body["form"].(map[string]any)
	assert.Equal(t, "achieng@example.com", form["email"])
	assert.Equal(t, "300.00", body["total_amount"])

	resp, body = c.postJSON("/orders/checkout", map[string]string{"first_name": "Achieng"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["fields"], "address")

	resp, body = c.postJSON("/orders/checkout", map[string]string{
		"first_name":     "Achieng",
		"last_name":      "Otieno",
		"email":          "achieng@example.com",
		"phone":          "+254711000001",
		"address":        "12 Moi Avenue",
		"city":           "Nairobi",
		"payment_method": "mpesa",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	order := body["order"].(map[string]any)
	orderID := order["order_id"].(string)
	assert.Regexp(t, `^OPT\d{12}[0-9a-f]{6}$`, orderID)
	assert.Equal(t, "300.00", order["total_amount"])
	assert.Equal(t, "/orders/"+orderID+"/payment", body["redirect"])
	assert.True(t, strings.HasPrefix(fmt.Sprint(body["message"]), "Order placed successfully! Order ID: "+orderID))

	_, body = c.getJSON("/cart")
	assert.Empty(t, cartItems(t, body))

	_, body = c.getJSON("/orders/" + orderID + "/confirmation")
	assert.Equal(t, true, body["show_payment_instructions"])

	resp, body = c.postJSON("/orders/"+orderID+"/payment", map[string]string{"phone_number": "0712345678"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	paid := body["order"].(map[string]any)
	assert.Equal(t, "processing", paid["status"])
	assert.Equal(t, "completed", paid["payment_status"])
	assert.Regexp(t, `^SIMULATED-[0-9A-F]{8}$`, paid["transaction_ref"])

	resp, body = c.postJSON("/orders/"+orderID+"/payment", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", body["error"])

	_, body = c.getJSON("/orders/" + orderID + "/confirmation")
	assert.Equal(t, false, body["show_payment_instructions"])

	_, before := c.getJSON("/orders/" + orderID)

	resp, body = c.postJSON("/orders/"+orderID+"/resend-email", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Confirmation email has been resent.", body["message"])

	_, after := c.getJSON("/orders/" + orderID)
	assert.Equal(t, before["order"], after["order"], "resending must not change the order or its items")

	_, body = c.getJSON("/orders")
	orders := body["orders"].([]any)
	require.Len(t, orders, 1)
	assert.Equal(t, false, body["has_more"])

	resp, body = c.getJSON("/orders?cursor=not!base64")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_cursor", body["error"])
}

func TestOtherUsersResourcesAreHidden(t *testing.T) {
	ts, db := setupServer(t)
	product := seedProduct(t, db, "Sutro", "200.00")

	owner := newClient(t, ts)
	owner.register("owner@example.com", "+254711000002")
	owner.postJSON(fmt.Sprintf("/cart/add/%d", product.ID), nil)
	_, body := owner.getJSON("/cart")
	itemID := cartItems(t, body)[0]["item_id"]

	other := newClient(t, ts)
	other.register("other@example.com", "+254711000003")

	resp, _ := other.postJSON(fmt.Sprintf("/cart/update/%v", itemID), map[string]any{"quantity": 5})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = other.postJSON(fmt.Sprintf("/cart/remove/%v", itemID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = owner.postJSON("/orders/checkout", map[string]string{
		"first_name": "Owner", "last_name": "One", "email": "owner@example.com",
		"phone": "+254711000002", "address": "1 Kenyatta Avenue", "city": "Nairobi",
		"payment_method": "bank",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	orderID := body["order"].(map[string]any)["order_id"].(string)
	assert.Equal(t, "/orders/"+orderID+"/confirmation", body["redirect"])

	resp, _ = other.getJSON("/orders/" + orderID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = owner.postJSON("/orders/"+orderID+"/payment", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "unsupported_payment_method", body["error"])
}

func TestLoginMergesAnonymousCart(t *testing.T) {
	ts, db := setupServer(t)
	product := seedProduct(t, db, "Gascan", "110.00")

	first := newClient(t, ts)
	first.register("kamau@example.com", "+254711000004")
	first.postJSON(fmt.Sprintf("/cart/add/%d", product.ID), nil)

	c := newClient(t, ts)
	c.postForm(fmt.Sprintf("/cart/add/%d", product.ID), url.Values{"quantity": {"2"}})

	resp, _ := c.postForm("/accounts/login?next=/orders/checkout", url.Values{
		"email":    {"kamau@example.com"},
		"password": {"correct-horse"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/orders/checkout", resp.Header.Get("Location"))

	_, body := c.get("/cart")
	assert.Contains(t, messages(body), "Welcome back, kamau@example.com!")
	items := cartItems(t, body)
	require.Len(t, items, 1)
	assert.EqualValues(t, 3, items[0]["quantity"])

	resp, _ = c.postForm("/accounts/login", url.Values{
		"email":    {"kamau@example.com"},
		"password": {"wrong-password"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/accounts/login", resp.Header.Get("Location"))

	resp, _ = c.postForm("/accounts/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = c.getJSON("/accounts/profile")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNewsletterSignup(t *testing.T) {
	ts, _ := setupServer(t)
	c := newClient(t, ts)

	resp, body := c.postJSON("/newsletter/signup", map[string]string{"email": "news@example.com"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Successfully subscribed to our newsletter!", body["message"])

	resp, body = c.postJSON("/newsletter/signup", map[string]string{"email": "NEWS@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "You are already subscribed to our newsletter.", body["message"])

	resp, _ = c.postJSON("/newsletter/signup", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCatalogReads(t *testing.T) {
	ts, db := setupServer(t)
	product := seedProduct(t, db, "Jupiter Squared", "95.00")
	seedProduct(t, db, "Latch", "130.00")
	c := newClient(t, ts)

	resp, body := c.get("/products/?sort=price_low")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["products"])

	resp, body = c.get("/products/product/" + product.Slug)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Jupiter Squared", body["product"].(map[string]any)["name"])

	resp, _ = c.get("/products/product/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = c.get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
